package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Document is the entire persisted state of the bot. It is loaded once at
// startup and rewritten to disk as a whole on every mutation.
type Document struct {
	Channels     map[int64]*Channel    `json:"channels"`
	Users        map[int64]*User       `json:"users"`
	SharedImages []Image               `json:"shared_images"`
	Unauthorized []UnauthorizedAttempt `json:"unauthorized_attempts"`
	Settings     Settings              `json:"settings"`
}

// Channel represents a Telegram channel managed by the admin
type Channel struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Username   string    `json:"username,omitempty"`
	InviteLink string    `json:"invite_link,omitempty"`
	BulkMode   bool      `json:"bulk_mode"`
	AutoPost   bool      `json:"auto_post"`
	Caption    string    `json:"caption,omitempty"`
	Images     []Image   `json:"images"`
	Cursor     int       `json:"cursor"`
	AddedAt    time.Time `json:"added_at"`
}

// User represents anyone who interacted with the bot or requested to join
// a managed channel
type User struct {
	ID           int64                 `json:"id"`
	FirstName    string                `json:"first_name,omitempty"`
	LastName     string                `json:"last_name,omitempty"`
	Username     string                `json:"username,omitempty"`
	Blocked      bool                  `json:"blocked"`
	BlockedAt    time.Time             `json:"blocked_at"`
	FirstSeen    time.Time             `json:"first_seen"`
	LastActivity time.Time             `json:"last_activity"`
	Memberships  map[int64]*Membership `json:"memberships"`
}

// Membership is a user's join request state on one channel
type Membership struct {
	Status      MemberStatus `json:"status"`
	RequestedAt time.Time    `json:"requested_at"`
	ApprovedAt  time.Time    `json:"approved_at"`
}

// Image is one entry of an upload queue
type Image struct {
	FileID  string    `json:"file_id"`
	AddedAt time.Time `json:"added_at"`
}

// UnauthorizedAttempt records a command sent by a non-admin identity
type UnauthorizedAttempt struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Command   string    `json:"command"`
	Timestamp time.Time `json:"timestamp"`
}

// Settings holds global mutable configuration
type Settings struct {
	DefaultCaption string `json:"default_caption,omitempty"`
}

// NewDocument returns an empty state document with initialized collections
func NewDocument() *Document {
	return &Document{
		Channels: make(map[int64]*Channel),
		Users:    make(map[int64]*User),
	}
}

// Normalize initializes collections left nil by JSON decoding and repairs
// cursors a hand-edited state file may have broken
func (d *Document) Normalize() {
	if d.Channels == nil {
		d.Channels = make(map[int64]*Channel)
	}
	if d.Users == nil {
		d.Users = make(map[int64]*User)
	}
	for _, ch := range d.Channels {
		// A negative cursor would turn the modulo reduction at the read
		// sites negative as well
		if ch.Cursor < 0 {
			ch.Cursor = 0
		}
	}
	for _, u := range d.Users {
		if u.Memberships == nil {
			u.Memberships = make(map[int64]*Membership)
		}
	}
}

// Clone returns a deep copy of the document via a JSON round trip
func (d *Document) Clone() (*Document, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var clone Document
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, err
	}
	clone.Normalize()
	return &clone, nil
}

// EnsureUser returns the tracked user, creating the record on first contact.
// Display metadata is refreshed from non-empty values only, so records built
// from bare id lists keep whatever was learned later.
func (d *Document) EnsureUser(id int64, firstName, lastName, username string) *User {
	now := time.Now()
	u, ok := d.Users[id]
	if !ok {
		u = &User{
			ID:          id,
			FirstSeen:   now,
			Memberships: make(map[int64]*Membership),
		}
		d.Users[id] = u
	}
	if firstName != "" {
		u.FirstName = firstName
	}
	if lastName != "" {
		u.LastName = lastName
	}
	if username != "" {
		u.Username = username
	}
	u.LastActivity = now
	return u
}

// ChannelName resolves a channel id to its title, falling back to the id
// for channels that were never registered
func (d *Document) ChannelName(id int64) string {
	if ch, ok := d.Channels[id]; ok && ch.Title != "" {
		return ch.Title
	}
	return strconv.FormatInt(id, 10)
}

// EnsureMembership returns the user's membership record for a channel,
// creating it in pending state
func (u *User) EnsureMembership(channelID int64) *Membership {
	if u.Memberships == nil {
		u.Memberships = make(map[int64]*Membership)
	}
	m, ok := u.Memberships[channelID]
	if !ok {
		m = &Membership{
			Status:      MemberStatusPending,
			RequestedAt: time.Now(),
		}
		u.Memberships[channelID] = m
	}
	return m
}

// Block marks the user blocked everywhere. Every per-channel status is
// rewritten so a blocked user is never left approved on any channel.
func (u *User) Block(now time.Time) {
	u.Blocked = true
	u.BlockedAt = now
	for _, m := range u.Memberships {
		m.Status = MemberStatusBlocked
	}
}

// DisplayName formats the user for admin-facing messages
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = strconv.FormatInt(u.ID, 10)
	}
	if u.Username != "" {
		name += " (@" + u.Username + ")"
	}
	return name
}
