package raidhelper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/robalyx/sentinel/pkg/utils"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the public Raid-Helper API.
	DefaultBaseURL = "https://raid-helper.dev"
	// MaxListedEvents caps the events returned by Events.
	MaxListedEvents = 25
	// EventLookback keeps events that started within this window.
	EventLookback = 24 * time.Hour
)

var (
	ErrNotConfigured = errors.New("raid-helper API is not configured")
	ErrEventNotFound = errors.New("raid-helper event not found")
	ErrUnexpectedAPI = errors.New("raid-helper API returned an error")
)

// Client talks to the Raid-Helper REST API.
type Client struct {
	http     *http.Client
	baseURL  string
	apiKey   string
	serverID uint64
	retry    utils.RetryOptions
	now      func() time.Time
	logger   *zap.Logger
}

// NewClient creates a new Raid-Helper client.
func NewClient(cfg *config.RaidHelper, logger *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		http:     &http.Client{Timeout: 15 * time.Second},
		baseURL:  baseURL,
		apiKey:   cfg.APIKey,
		serverID: cfg.ServerID,
		retry:    utils.GetHTTPRetryOptions(),
		now:      time.Now,
		logger:   logger.Named("raidhelper"),
	}
}

// SetRetryOptions replaces the retry options.
func (c *Client) SetRetryOptions(opts utils.RetryOptions) {
	c.retry = opts
}

// SetClock replaces the clock used to filter events.
func (c *Client) SetClock(now func() time.Time) {
	c.now = now
}

// Configured reports whether an API key and server ID are set.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.serverID != 0
}

// Events returns the posted events that started less than a day ago or lie
// in the future, ordered by start time and capped at MaxListedEvents. The
// second value is the number of matching events before the cap.
func (c *Client) Events(ctx context.Context) ([]Event, int, error) {
	if !c.Configured() {
		return nil, 0, ErrNotConfigured
	}

	var resp eventsResponse
	if err := c.get(ctx, "/api/v3/servers/"+c.server()+"/events", &resp); err != nil {
		return nil, 0, err
	}

	cutoff := c.now().Add(-EventLookback).Unix()

	events := make([]Event, 0, len(resp.PostedEvents))
	for _, event := range resp.PostedEvents {
		if event.StartTime > 0 && event.StartTime > cutoff {
			events = append(events, event)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTime < events[j].StartTime
	})

	total := len(events)
	if total > MaxListedEvents {
		events = events[:MaxListedEvents]
	}

	c.logger.Debug("Fetched events",
		zap.Int("posted", len(resp.PostedEvents)),
		zap.Int("upcoming", total))

	return events, total, nil
}

// Signups returns one event with its signups.
func (c *Client) Signups(ctx context.Context, eventID string) (*Event, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	var event Event
	path := "/api/v2/servers/" + c.server() + "/events/" + url.PathEscape(eventID)
	if err := c.get(ctx, path, &event); err != nil {
		return nil, err
	}

	return &event, nil
}

func (c *Client) server() string {
	return strconv.FormatUint(c.serverID, 10)
}

// get performs an authorized GET and decodes the JSON body. Server errors and
// transport failures are retried; client errors are not.
func (c *Client) get(ctx context.Context, path string, out any) error {
	opts := c.retry
	opts.Notify = func(err error, wait time.Duration) {
		c.logger.Warn("Retrying Raid-Helper request",
			zap.String("path", path),
			zap.Error(err),
			zap.Duration("wait", wait))
	}

	body, err := utils.WithRetry(ctx, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Authorization", c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		if err != nil {
			return nil, err
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, backoff.Permanent(ErrEventNotFound)
		case resp.StatusCode >= http.StatusInternalServerError:
			return nil, fmt.Errorf("%w: status %d", ErrUnexpectedAPI, resp.StatusCode)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			c.logger.Error("Raid-Helper API error",
				zap.String("path", path),
				zap.Int("status", resp.StatusCode),
				zap.ByteString("body", data))
			return nil, backoff.Permanent(fmt.Errorf("%w: status %d", ErrUnexpectedAPI, resp.StatusCode))
		}

		return data, nil
	}, opts)
	if err != nil {
		return err
	}

	if err := sonic.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode raid-helper response: %w", err)
	}

	return nil
}

// CompareSignups splits role members into signed up and missing, and lists
// signups from users outside the role. Every list is sorted.
func CompareSignups(members, signups []uint64) *Comparison {
	signed := make(map[uint64]struct{}, len(signups))
	for _, id := range signups {
		signed[id] = struct{}{}
	}

	inRole := make(map[uint64]struct{}, len(members))
	result := &Comparison{
		SignedUp: []uint64{},
		Missing:  []uint64{},
		Extra:    []uint64{},
	}

	for _, id := range members {
		if _, dup := inRole[id]; dup {
			continue
		}
		inRole[id] = struct{}{}

		if _, ok := signed[id]; ok {
			result.SignedUp = append(result.SignedUp, id)
		} else {
			result.Missing = append(result.Missing, id)
		}
	}

	for id := range signed {
		if _, ok := inRole[id]; !ok {
			result.Extra = append(result.Extra, id)
		}
	}

	for _, ids := range [][]uint64{result.SignedUp, result.Missing, result.Extra} {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}

	return result
}
