//go:build integration

package verification_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/handygo/internal/services/verification"
	"github.com/Windi-Fikriyansyah/handygo/internal/testutil/containers"
)

func TestRedisGuard(t *testing.T) {
	rdb := containers.NewRedis(t)
	ctx := context.Background()

	// Two guards on one Redis behave like two API instances.
	a, b := verification.NewRedisGuard(rdb), verification.NewRedisGuard(rdb)
	user := uuid.New()

	release, err := a.Acquire(ctx, user, time.Minute)
	require.NoError(t, err)

	_, err = b.Acquire(ctx, user, time.Minute)
	assert.ErrorIs(t, err, verification.ErrBusy)

	release()
	releaseB, err := b.Acquire(ctx, user, time.Minute)
	require.NoError(t, err)

	// A stale release from the first holder must not free b's lock.
	release()
	_, err = a.Acquire(ctx, user, time.Minute)
	assert.ErrorIs(t, err, verification.ErrBusy)
	releaseB()

	t.Run("lock expires", func(t *testing.T) {
		other := uuid.New()
		_, err := a.Acquire(ctx, other, 200*time.Millisecond)
		require.NoError(t, err)
		require.Eventually(t, func() bool {
			r, err := b.Acquire(ctx, other, time.Minute)
			if err != nil {
				return false
			}
			r()
			return true
		}, 3*time.Second, 50*time.Millisecond)
	})
}
