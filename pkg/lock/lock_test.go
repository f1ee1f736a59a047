package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLockerExcludesSecondHolder(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	locker := NewRedisLocker(client)
	ctx := context.Background()

	release, err := locker.Obtain(ctx, "lock:sync:a", time.Minute)
	require.NoError(t, err)

	_, err = locker.Obtain(ctx, "lock:sync:a", time.Minute)
	assert.ErrorIs(t, err, ErrNotObtained)

	other, err := locker.Obtain(ctx, "lock:sync:b", time.Minute)
	require.NoError(t, err)
	other()

	release()
	again, err := locker.Obtain(ctx, "lock:sync:a", time.Minute)
	require.NoError(t, err)
	again()
}

func TestNoopAlwaysObtains(t *testing.T) {
	release, err := Noop{}.Obtain(context.Background(), "k", time.Second)
	require.NoError(t, err)
	release()
}

func TestRedisLockerOutlivesTTLWhileHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	locker := NewRedisLocker(client)
	ctx := context.Background()
	const ttl = 200 * time.Millisecond

	release, err := locker.Obtain(ctx, "lock:sync:long", ttl)
	require.NoError(t, err)

	// miniredis only expires keys on FastForward; the refreshes in between
	// reset the TTL, so the key outlives more than a TTL of fast-forwarding.
	for i := 0; i < 3; i++ {
		time.Sleep(ttl)
		mr.FastForward(ttl / 2)
		_, err = locker.Obtain(ctx, "lock:sync:long", ttl)
		require.ErrorIs(t, err, ErrNotObtained)
	}

	release()
	release()
	again, err := locker.Obtain(ctx, "lock:sync:long", ttl)
	require.NoError(t, err)
	again()
}
