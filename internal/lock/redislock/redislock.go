// Package redislock provides a rental.UnitLocker shared across processes through Redis.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix            = "rental:lock:"
	defaultTTL           = 10 * time.Second
	defaultRetryInterval = 25 * time.Millisecond
	releaseTimeout       = 2 * time.Second
)

var (
	ErrInvalidTTL = errors.New("redislock: ttl must be positive")
	ErrNilClient  = errors.New("redislock: client is required")
)

// releaseScript deletes the key only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// Client is the subset of go-redis used by the locker.
type Client interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// Option configures a Locker.
type Option func(*Locker)

// WithTTL bounds how long a crashed holder can keep a key.
func WithTTL(ttl time.Duration) Option {
	return func(locker *Locker) {
		locker.ttl = ttl
	}
}

// WithRetryInterval sets the pause between acquisition attempts.
func WithRetryInterval(interval time.Duration) Option {
	return func(locker *Locker) {
		if interval > 0 {
			locker.retryInterval = interval
		}
	}
}

// WithLogger reports release failures.
func WithLogger(logger *zap.Logger) Option {
	return func(locker *Locker) {
		if logger != nil {
			locker.logger = logger
		}
	}
}

// Locker acquires keys with SET NX PX and releases them with a token check.
type Locker struct {
	client        Client
	ttl           time.Duration
	retryInterval time.Duration
	logger        *zap.Logger
	newToken      func() string
}

// New constructs a Locker over client.
func New(client Client, options ...Option) (*Locker, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	locker := &Locker{
		client:        client,
		ttl:           defaultTTL,
		retryInterval: defaultRetryInterval,
		logger:        zap.NewNop(),
		newToken:      uuid.NewString,
	}
	for _, option := range options {
		option(locker)
	}
	if locker.ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	return locker, nil
}

// NewFromURL parses a redis:// URL and constructs a Locker on a new client.
func NewFromURL(rawURL string, options ...Option) (*Locker, *redis.Client, error) {
	parsed, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("redislock: parse url: %w", err)
	}
	client := redis.NewClient(parsed)
	locker, err := New(client, options...)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return locker, client, nil
}

// Lock retries until the key is acquired or ctx is done.
func (locker *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := locker.newToken()
	for {
		acquired, err := locker.client.SetNX(ctx, redisKey, token, locker.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("lock %s: %w", key, ctxErr)
			}
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		if acquired {
			return locker.releaseFunc(redisKey, token), nil
		}
		timer := time.NewTimer(locker.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("lock %s: %w", key, ctx.Err())
		case <-timer.C:
		}
	}
}

func (locker *Locker) releaseFunc(redisKey string, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() { locker.release(redisKey, token) })
	}
}

func (locker *Locker) release(redisKey string, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := releaseScript.Run(ctx, locker.client, []string{redisKey}, token).Err(); err != nil {
		locker.logger.Warn("redis lock release failed", zap.String("key", redisKey), zap.Error(err))
	}
}
