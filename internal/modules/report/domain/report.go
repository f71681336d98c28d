package domain

// Stats is an aggregate snapshot of the bot's state
type Stats struct {
	Channels         int `json:"channels"`
	BulkChannels     int `json:"bulk_channels"`
	AutoPostChannels int `json:"autopost_channels"`
	Users            int `json:"users"`
	PendingRequests  int `json:"pending_requests"`
	ApprovedRequests int `json:"approved_requests"`
	BlockedUsers     int `json:"blocked_users"`
	SharedImages     int `json:"shared_images"`
	ChannelImages    int `json:"channel_images"`
	Unauthorized     int `json:"unauthorized_attempts"`
}

// ChannelUserStats breaks request counts down for one channel
type ChannelUserStats struct {
	ChannelID int64  `json:"channel_id"`
	Title     string `json:"title"`
	Approved  int    `json:"approved"`
	Pending   int    `json:"pending"`
	Blocked   int    `json:"blocked"`
}
