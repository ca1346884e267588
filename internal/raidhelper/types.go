package raidhelper

import (
	"bytes"
	"strconv"
	"time"
)

// FlexID accepts an identifier encoded either as a JSON string or a number.
type FlexID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) >= 2 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	*f = FlexID(data)
	return nil
}

// Uint64 returns the identifier as a snowflake, or zero when it is not numeric.
func (f FlexID) Uint64() uint64 {
	id, err := strconv.ParseUint(string(f), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Signup is one entry of an event's signup list.
type Signup struct {
	UserID    FlexID `json:"userId"`
	Name      string `json:"name"`
	ClassName string `json:"className"`
	SpecName  string `json:"specName"`
	Status    string `json:"status"`
}

// Event is a posted Raid-Helper event.
type Event struct {
	ID          FlexID   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ChannelID   FlexID   `json:"channelId"`
	LeaderID    FlexID   `json:"leaderId"`
	LeaderName  string   `json:"leaderName"`
	StartTime   int64    `json:"startTime"`
	EndTime     int64    `json:"endTime"`
	SignUps     []Signup `json:"signUps"`
}

// Start returns the event start as a UTC time. Start times are Unix seconds.
func (e *Event) Start() time.Time {
	return time.Unix(e.StartTime, 0).UTC()
}

// SignedUpUserIDs returns the distinct user IDs of the signups.
func (e *Event) SignedUpUserIDs() []uint64 {
	seen := make(map[uint64]struct{}, len(e.SignUps))
	ids := make([]uint64, 0, len(e.SignUps))

	for _, signup := range e.SignUps {
		id := signup.UserID.Uint64()
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	return ids
}

// eventsResponse is the body of the server events listing.
type eventsResponse struct {
	PostedEvents []Event `json:"postedEvents"`
}

// Comparison splits role members by whether they signed up for an event.
type Comparison struct {
	// SignedUp are role members with a signup.
	SignedUp []uint64
	// Missing are role members without a signup.
	Missing []uint64
	// Extra are signups from users outside the role.
	Extra []uint64
}

// Percentage returns the share of role members who signed up.
func (c *Comparison) Percentage() float64 {
	total := len(c.SignedUp) + len(c.Missing)
	if total == 0 {
		return 0
	}
	return float64(len(c.SignedUp)) / float64(total) * 100
}
