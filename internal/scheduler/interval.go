package scheduler

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidInterval  = errors.New("the interval must be at least 1 minute")
	ErrIntervalTooLong  = errors.New("the interval must be at most 365 days")
	ErrInvalidStartTime = errors.New("invalid start time format, use YYYY-MM-DD HH:MM or DD.MM.YYYY HH:MM (UTC)")
)

// MaxIntervalDays bounds the recurrence period of a scheduled message.
const MaxIntervalDays = 365

// maxInterval is MaxIntervalDays as a duration.
const maxInterval = MaxIntervalDays * 24 * time.Hour

// startTimeLayouts lists the accepted start time formats, all read as UTC.
var startTimeLayouts = []string{ //nolint:gochecknoglobals // layout table
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"02.01.2006 15:04",
	"02.01.2006 15:04:05",
}

// roleMentionPattern matches a role mention such as <@&123>.
var roleMentionPattern = regexp.MustCompile(`<@&(\d+)>`)

// Interval is the recurrence period of a scheduled message.
type Interval struct {
	Days    int
	Hours   int
	Minutes int
}

// Duration returns the interval as a time.Duration.
func (i Interval) Duration() time.Duration {
	return time.Duration(i.Days)*24*time.Hour +
		time.Duration(i.Hours)*time.Hour +
		time.Duration(i.Minutes)*time.Minute
}

// IsZero reports whether the interval is shorter than one minute.
func (i Interval) IsZero() bool {
	return i.Duration() < time.Minute
}

// Validate rejects negative components, intervals under a minute and
// intervals over MaxIntervalDays. Components are bounded before they are
// summed so Duration cannot overflow.
func (i Interval) Validate() error {
	if i.Days < 0 || i.Hours < 0 || i.Minutes < 0 {
		return ErrInvalidInterval
	}
	if i.Days > MaxIntervalDays || i.Hours > MaxIntervalDays*24 || i.Minutes > MaxIntervalDays*24*60 {
		return ErrIntervalTooLong
	}
	if i.Duration() > maxInterval {
		return ErrIntervalTooLong
	}
	if i.IsZero() {
		return ErrInvalidInterval
	}
	return nil
}

// String renders the non-zero parts, e.g. "1 day, 2 hours".
func (i Interval) String() string {
	parts := make([]string, 0, 3)
	if i.Days > 0 {
		parts = append(parts, plural(i.Days, "day"))
	}
	if i.Hours > 0 {
		parts = append(parts, plural(i.Hours, "hour"))
	}
	if i.Minutes > 0 {
		parts = append(parts, plural(i.Minutes, "minute"))
	}
	if len(parts) == 0 {
		return "0 minutes"
	}
	return strings.Join(parts, ", ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// ParseStartTime reads a start time in one of the accepted layouts as UTC.
func ParseStartTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range startTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidStartTime, s)
}

// InitialNextRun computes the first run of a schedule. Without a start the
// first run is one interval from now. A past start is advanced by whole
// intervals to the earliest instant not before now.
func InitialNextRun(start *time.Time, interval time.Duration, now time.Time) time.Time {
	if start == nil {
		return now.Add(interval)
	}

	next := start.UTC()
	if !next.Before(now) || interval <= 0 {
		return next
	}

	elapsed := now.Sub(next)
	steps := elapsed / interval
	if elapsed%interval != 0 {
		steps++
	}

	return next.Add(steps * interval)
}

// ParseRoleMentions extracts role IDs from role mentions. The literal "none"
// yields an empty non-nil slice, which clears roles during an edit.
func ParseRoleMentions(s string) []uint64 {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "none") {
		return []uint64{}
	}

	matches := roleMentionPattern.FindAllStringSubmatch(s, -1)
	ids := make([]uint64, 0, len(matches))
	seen := make(map[uint64]struct{}, len(matches))

	for _, match := range matches {
		id, err := strconv.ParseUint(match[1], 10, 64)
		if err != nil {
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

// MentionRoles renders role IDs as space-separated mentions.
func MentionRoles(ids []uint64) string {
	mentions := make([]string, 0, len(ids))
	for _, id := range ids {
		mentions = append(mentions, "<@&"+strconv.FormatUint(id, 10)+">")
	}
	return strings.Join(mentions, " ")
}
