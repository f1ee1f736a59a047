package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrNotObtained is returned when another holder owns the lock.
var ErrNotObtained = errors.New("lock: not obtained")

// Locker guards a critical section across processes. The lock is held until
// release is called; ttl only bounds how long it survives a crashed holder.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// RedisLocker implements Locker with bsm/redislock.
type RedisLocker struct {
	client *redislock.Client
}

func NewRedisLocker(rdb redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb)}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lk, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrNotObtained
	}
	if err != nil {
		return nil, err
	}

	stop := make(chan struct{})
	if ttl > time.Millisecond {
		go keepAlive(lk, ttl, stop)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			_ = lk.Release(context.Background())
		})
	}, nil
}

// keepAlive extends the lock every half ttl until stop is closed or the lock is lost.
func keepAlive(lk *redislock.Lock, ttl time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := lk.Refresh(context.Background(), ttl, nil); err != nil {
				return
			}
		}
	}
}

// Noop never contends. Used when redis is not configured.
type Noop struct{}

func (Noop) Obtain(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}
