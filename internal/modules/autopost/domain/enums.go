package domain

//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

// QueueSource tells which image queue a channel is drawing from
// ENUM(channel,shared)
type QueueSource string
