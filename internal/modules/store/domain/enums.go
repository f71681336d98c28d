//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package domain

// MemberStatus represents a user's join request state on a channel
// ENUM(pending,approved,blocked)
type MemberStatus string

// AppEnv represents the application environment
// ENUM(local,production,development,testing)
type AppEnv string
