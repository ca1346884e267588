package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/robalyx/sentinel/internal/rest/render"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/robalyx/sentinel/pkg/utils"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	errBlocked    = "Temporarily blocked for repeated rate limit violations"
	errRateLimit  = "Rate limit exceeded"
	headerRetryAt = "Retry-After"
)

type limiterState struct {
	mu           sync.Mutex
	limiter      *rate.Limiter
	strikes      int
	blockedUntil time.Time
}

// RateLimiter limits requests per client address. Clients that keep hitting
// the limit are blocked for a while.
type RateLimiter struct {
	limiters *utils.TTLMap[string, *limiterState]
	config   *config.RateLimit
	logger   *zap.Logger
}

// NewRateLimiter creates the rate limiting middleware. Idle client state is
// dropped until ctx is cancelled.
func NewRateLimiter(ctx context.Context, cfg *config.RateLimit, logger *zap.Logger) *RateLimiter {
	ttl := time.Duration(cfg.BlockDuration*2) * time.Second
	if ttl < time.Minute {
		ttl = time.Minute
	}

	return &RateLimiter{
		limiters: utils.NewTTLMap[string, *limiterState](ctx, ttl),
		config:   cfg,
		logger:   logger,
	}
}

// Middleware implements bunrouter.MiddlewareFunc.
func (m *RateLimiter) Middleware(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		allowed, retryAfter, detail := m.check(clientIP(req.RemoteAddr), time.Now())
		if !allowed {
			if retryAfter > 0 {
				w.Header().Set(headerRetryAt, fmt.Sprintf("%.0f", retryAfter.Seconds()))
			}
			return render.Errorf(http.StatusTooManyRequests, detail)
		}
		return next(w, req)
	}
}

func (m *RateLimiter) state(client string) *limiterState {
	state := &limiterState{
		limiter: rate.NewLimiter(rate.Limit(m.config.RequestsPerSecond), m.config.BurstSize),
	}
	if !m.limiters.SetIfAbsent(client, state) {
		if existing, ok := m.limiters.Get(client); ok {
			return existing
		}
	}
	return state
}

// check reports whether the request may proceed, with the wait before retrying.
func (m *RateLimiter) check(client string, now time.Time) (bool, time.Duration, string) {
	state := m.state(client)
	state.mu.Lock()
	defer state.mu.Unlock()

	if now.Before(state.blockedUntil) {
		return false, state.blockedUntil.Sub(now).Round(time.Second), errBlocked
	}

	if state.limiter.AllowN(now, 1) {
		state.strikes = 0
		return true, 0, ""
	}

	state.strikes++
	if state.strikes >= m.config.StrikeLimit {
		block := time.Duration(m.config.BlockDuration) * time.Second
		state.blockedUntil = now.Add(block)
		state.strikes = 0

		m.logger.Warn("Client blocked for repeated rate limit violations",
			zap.String("ip", client),
			zap.Duration("duration", block))

		return false, block, errBlocked
	}

	return false, time.Second, errRateLimit
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
