package redis

import (
	// Go Internal Packages
	"context"
	"fmt"
	"time"

	// Local Packages
	errors "pix-stream/errors"

	// External Packages
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Both scripts act only while the key still holds the caller's token, so an
// expired holder can never extend or delete a lease taken over by someone else.
var (
	refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

const releaseTimeout = 2 * time.Second

// Lease is a time-bounded, renewable mutual-exclusion token stored in Redis.
type Lease struct {
	client *redis.Client
	logger *zap.Logger
}

func NewLease(client *redis.Client, logger *zap.Logger) *Lease {
	return &Lease{client: client, logger: logger}
}

// AcquireOrRefresh runs body while holding key. The lease is taken only if
// absent or expired, is extended every refresh while body runs and deleted
// when body returns. errors.ErrLeaseHeld is returned when another holder
// owns the key; body is not run in that case.
func (l *Lease) AcquireOrRefresh(ctx context.Context, key string, timeout, refresh time.Duration, body func(ctx context.Context) error) error {
	if err := ValidateLease(timeout, refresh); err != nil {
		return err
	}

	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, key, token, timeout).Result()
	if err != nil {
		return errors.PersistenceErr("acquire lease "+key, err)
	}
	if !acquired {
		return errors.ErrLeaseHeld
	}
	l.logger.Debug("lease acquired", zap.String("key", key), zap.Duration("timeout", timeout))

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(ctx, key, token, timeout, refresh, stop, done)

	bodyErr := body(ctx)

	close(stop)
	<-done
	l.release(key, token)
	return bodyErr
}

func (l *Lease) keepAlive(ctx context.Context, key, token string, timeout, refresh time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := refreshScript.Run(ctx, l.client, []string{key}, token, timeout.Milliseconds()).Int()
			if err != nil {
				// best effort: the lease silently expires if refreshes keep failing
				l.logger.Warn("lease refresh failed", zap.String("key", key), zap.Error(err))
				continue
			}
			if n == 0 {
				l.logger.Warn("lease lost before job finished", zap.String("key", key))
				return
			}
		}
	}
}

func (l *Lease) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		l.logger.Warn("lease release failed, waiting for expiry", zap.String("key", key), zap.Error(err))
	}
}

// ValidateLease enforces a refresh interval strictly shorter than the timeout.
func ValidateLease(timeout, refresh time.Duration) error {
	if timeout <= 0 || refresh <= 0 {
		return errors.E(errors.Invalid, "lease timeout and refresh interval must be positive", nil)
	}
	if refresh >= timeout {
		return errors.E(errors.Invalid, fmt.Sprintf("lease refresh interval %s must be shorter than timeout %s", refresh, timeout), nil)
	}
	return nil
}
