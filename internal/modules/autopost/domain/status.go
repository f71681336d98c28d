package domain

// ChannelStatus is a snapshot of a channel's posting state
type ChannelStatus struct {
	ChannelID int64
	Title     string
	Enabled   bool
	Source    QueueSource
	QueueLen  int
	Cursor    int
}
