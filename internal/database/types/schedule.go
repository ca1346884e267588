package types

import "time"

// DefaultEmbedColor is the embed color used when none is given.
const DefaultEmbedColor = 3447003

// ScheduledMessage is a recurring post definition.
type ScheduledMessage struct {
	ID              int64      `bun:",pk,autoincrement" json:"id"`
	GuildID         uint64     `bun:",notnull"          json:"guildId"`
	Name            string     `bun:",notnull"          json:"name"`
	ChannelID       uint64     `bun:",notnull"          json:"channelId"`
	Message         string     `bun:",notnull"          json:"message"`
	IntervalDays    int        `bun:",notnull"          json:"intervalDays"`
	IntervalHours   int        `bun:",notnull"          json:"intervalHours"`
	IntervalMinutes int        `bun:",notnull"          json:"intervalMinutes"`
	RoleIDs         []uint64   `bun:",type:json"        json:"roleIds"`
	NextRun         time.Time  `bun:",notnull"          json:"nextRun"`
	LastSent        *time.Time `bun:",nullzero"         json:"lastSent"`
	IsActive        bool       `bun:",notnull"          json:"isActive"`
	EmbedTitle      string     `bun:",notnull"          json:"embedTitle"`
	EmbedColor      int        `bun:",notnull"          json:"embedColor"`
	FailureCount    int        `bun:",notnull"          json:"failureCount"`
	CreatedBy       uint64     `bun:",notnull"          json:"createdBy"`
	CreatedAt       time.Time  `bun:",notnull"          json:"createdAt"`
}

// Interval returns the recurrence period of the message.
func (m *ScheduledMessage) Interval() time.Duration {
	return time.Duration(m.IntervalDays)*24*time.Hour +
		time.Duration(m.IntervalHours)*time.Hour +
		time.Duration(m.IntervalMinutes)*time.Minute
}

// Title returns the embed title, falling back to the schedule name.
func (m *ScheduledMessage) Title() string {
	if m.EmbedTitle != "" {
		return m.EmbedTitle
	}
	return m.Name
}

// ScheduledMessageUpdate carries a partial update. Nil fields are left untouched.
type ScheduledMessageUpdate struct {
	Name            *string
	ChannelID       *uint64
	Message         *string
	IntervalDays    *int
	IntervalHours   *int
	IntervalMinutes *int
	RoleIDs         *[]uint64
	EmbedTitle      *string
	EmbedColor      *int
}

// IsEmpty reports whether the update changes nothing.
func (u *ScheduledMessageUpdate) IsEmpty() bool {
	return u.Name == nil && u.ChannelID == nil && u.Message == nil &&
		u.IntervalDays == nil && u.IntervalHours == nil && u.IntervalMinutes == nil &&
		u.RoleIDs == nil && u.EmbedTitle == nil && u.EmbedColor == nil
}

// ChangesInterval reports whether the update touches any interval component.
func (u *ScheduledMessageUpdate) ChangesInterval() bool {
	return u.IntervalDays != nil || u.IntervalHours != nil || u.IntervalMinutes != nil
}
