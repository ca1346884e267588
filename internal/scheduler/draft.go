package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robalyx/sentinel/internal/database/types"
)

var (
	ErrEmptyMessage  = errors.New("the message must not be empty")
	ErrMessageLength = errors.New("the message is too long")
	ErrEmptyName     = errors.New("the name must not be empty")
	ErrInvalidColor  = errors.New("invalid embed color, use a hex value such as #3498db")
	ErrNothingToEdit = errors.New("nothing to update")
)

// MaxMessageLength is the longest accepted message body.
const MaxMessageLength = 2000

// Draft is a scheduled message as entered by a user.
type Draft struct {
	GuildID    uint64
	ChannelID  uint64
	Name       string
	Message    string
	Interval   Interval
	StartTime  string
	Roles      string
	EmbedTitle string
	EmbedColor string
	CreatedBy  uint64
}

// Build validates the draft and returns the message to store.
func (d *Draft) Build(now time.Time) (*types.ScheduledMessage, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return nil, ErrEmptyName
	}

	body := strings.TrimSpace(d.Message)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	if len([]rune(body)) > MaxMessageLength {
		return nil, fmt.Errorf("%w: at most %d characters", ErrMessageLength, MaxMessageLength)
	}

	if err := d.Interval.Validate(); err != nil {
		return nil, err
	}

	var start *time.Time
	if strings.TrimSpace(d.StartTime) != "" {
		parsed, err := ParseStartTime(d.StartTime)
		if err != nil {
			return nil, err
		}
		start = &parsed
	}

	color := types.DefaultEmbedColor
	if strings.TrimSpace(d.EmbedColor) != "" {
		parsed, err := ParseColor(d.EmbedColor)
		if err != nil {
			return nil, err
		}
		color = parsed
	}

	var roleIDs []uint64
	if strings.TrimSpace(d.Roles) != "" {
		roleIDs = ParseRoleMentions(d.Roles)
	}

	return &types.ScheduledMessage{
		GuildID:         d.GuildID,
		Name:            name,
		ChannelID:       d.ChannelID,
		Message:         body,
		IntervalDays:    d.Interval.Days,
		IntervalHours:   d.Interval.Hours,
		IntervalMinutes: d.Interval.Minutes,
		RoleIDs:         roleIDs,
		NextRun:         InitialNextRun(start, d.Interval.Duration(), now),
		IsActive:        true,
		EmbedTitle:      strings.TrimSpace(d.EmbedTitle),
		EmbedColor:      color,
		CreatedBy:       d.CreatedBy,
		CreatedAt:       now,
	}, nil
}

// Edit is a partial change to a stored message. Empty strings and nil
// pointers leave the field untouched.
type Edit struct {
	Name       string
	ChannelID  uint64
	Message    string
	Days       *int
	Hours      *int
	Minutes    *int
	StartTime  string
	Roles      string
	EmbedTitle string
	EmbedColor string
}

// Plan turns the edit into an update of current. The returned next run is
// nil unless a start time was given.
func (e *Edit) Plan(current *types.ScheduledMessage, now time.Time) (*types.ScheduledMessageUpdate, *time.Time, error) {
	patch := &types.ScheduledMessageUpdate{}

	if name := strings.TrimSpace(e.Name); name != "" {
		patch.Name = &name
	}
	if e.ChannelID != 0 {
		channelID := e.ChannelID
		patch.ChannelID = &channelID
	}
	if body := strings.TrimSpace(e.Message); body != "" {
		if len([]rune(body)) > MaxMessageLength {
			return nil, nil, fmt.Errorf("%w: at most %d characters", ErrMessageLength, MaxMessageLength)
		}
		patch.Message = &body
	}

	patch.IntervalDays = e.Days
	patch.IntervalHours = e.Hours
	patch.IntervalMinutes = e.Minutes

	interval := e.EffectiveInterval(current)
	if patch.ChangesInterval() {
		if err := interval.Validate(); err != nil {
			return nil, nil, err
		}
	}

	if strings.TrimSpace(e.Roles) != "" {
		roleIDs := ParseRoleMentions(e.Roles)
		patch.RoleIDs = &roleIDs
	}
	if title := strings.TrimSpace(e.EmbedTitle); title != "" {
		patch.EmbedTitle = &title
	}
	if strings.TrimSpace(e.EmbedColor) != "" {
		color, err := ParseColor(e.EmbedColor)
		if err != nil {
			return nil, nil, err
		}
		patch.EmbedColor = &color
	}

	var nextRun *time.Time
	if strings.TrimSpace(e.StartTime) != "" {
		start, err := ParseStartTime(e.StartTime)
		if err != nil {
			return nil, nil, err
		}
		next := InitialNextRun(&start, interval.Duration(), now)
		nextRun = &next
	}

	if patch.IsEmpty() && nextRun == nil {
		return nil, nil, ErrNothingToEdit
	}

	return patch, nextRun, nil
}

// EffectiveInterval merges the edited interval parts over the current ones.
func (e *Edit) EffectiveInterval(current *types.ScheduledMessage) Interval {
	interval := Interval{
		Days:    current.IntervalDays,
		Hours:   current.IntervalHours,
		Minutes: current.IntervalMinutes,
	}
	if e.Days != nil {
		interval.Days = *e.Days
	}
	if e.Hours != nil {
		interval.Hours = *e.Hours
	}
	if e.Minutes != nil {
		interval.Minutes = *e.Minutes
	}
	return interval
}

// ParseColor reads a hex color with an optional # or 0x prefix.
func ParseColor(s string) (int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "#")
	s = strings.TrimPrefix(strings.ToLower(s), "0x")

	value, err := strconv.ParseUint(s, 16, 32)
	if err != nil || value > 0xffffff {
		return 0, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return int(value), nil
}
