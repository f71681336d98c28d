package errors

import "errors"

var (
	ErrMissingBotToken = errors.New("BOT_TOKEN environment variable is required")
	ErrMissingAdminID  = errors.New("ADMIN_ID environment variable is required")
	ErrChannelNotFound = errors.New("channel not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrUserBlocked     = errors.New("user is blocked")
	ErrCorruptState    = errors.New("state file is corrupt")
)
