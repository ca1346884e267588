package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/rueidis"
	"github.com/robalyx/sentinel/pkg/utils"
)

// ErrCodeAlreadyUsed is returned when an authorization code is presented twice.
var ErrCodeAlreadyUsed = errors.New("authorization code has already been used")

// DefaultCodeTTL is how long a claimed code is remembered.
const DefaultCodeTTL = 5 * time.Minute

// CodeStore remembers one-time OAuth authorization codes.
type CodeStore interface {
	// Claim marks the code as used, failing with ErrCodeAlreadyUsed when it
	// was claimed before and has not yet expired.
	Claim(ctx context.Context, code string) error
}

// MemoryCodeStore keeps claimed codes in process memory.
type MemoryCodeStore struct {
	codes *utils.TTLMap[string, struct{}]
}

// NewMemoryCodeStore creates a code store that forgets codes after ttl.
// The sweep goroutine stops when ctx is cancelled.
func NewMemoryCodeStore(ctx context.Context, ttl time.Duration) *MemoryCodeStore {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &MemoryCodeStore{codes: utils.NewTTLMap[string, struct{}](ctx, ttl)}
}

// Claim implements CodeStore.
func (s *MemoryCodeStore) Claim(_ context.Context, code string) error {
	if !s.codes.SetIfAbsent(code, struct{}{}) {
		return ErrCodeAlreadyUsed
	}
	return nil
}

// RedisCodeStore shares claimed codes between API replicas.
type RedisCodeStore struct {
	client rueidis.Client
	ttl    time.Duration
}

// NewRedisCodeStore creates a code store backed by Redis.
func NewRedisCodeStore(client rueidis.Client, ttl time.Duration) *RedisCodeStore {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &RedisCodeStore{client: client, ttl: ttl}
}

// Claim implements CodeStore using SET NX so only the first caller wins.
func (s *RedisCodeStore) Claim(ctx context.Context, code string) error {
	cmd := s.client.B().Set().Key(codeKey(code)).Value("1").Nx().Ex(s.ttl).Build()

	err := s.client.Do(ctx, cmd).Error()
	if rueidis.IsRedisNil(err) {
		return ErrCodeAlreadyUsed
	}
	if err != nil {
		return fmt.Errorf("failed to claim authorization code: %w", err)
	}

	return nil
}

func codeKey(code string) string {
	return "sentinel:auth:code:" + code
}
