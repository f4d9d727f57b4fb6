package verification_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/handygo/internal/models"
	"github.com/Windi-Fikriyansyah/handygo/internal/services/verification"
)

func TestLocalGuard(t *testing.T) {
	g := verification.NewLocalGuard()
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	release, err := g.Acquire(ctx, a, time.Second)
	require.NoError(t, err)

	_, err = g.Acquire(ctx, a, time.Second)
	assert.ErrorIs(t, err, verification.ErrBusy)

	releaseB, err := g.Acquire(ctx, b, time.Second)
	require.NoError(t, err, "other users are independent")
	releaseB()

	release()
	release()

	again, err := g.Acquire(ctx, a, time.Second)
	require.NoError(t, err)
	again()
}

func TestStubProvider(t *testing.T) {
	ctx := context.Background()
	var seen []int
	record := func(p int) { seen = append(seen, p) }

	out, err := verification.NewStubProvider(time.Millisecond, 1, 1).Evaluate(ctx, verification.Submission{}, record)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, out)
	assert.Equal(t, []int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}, seen)

	out, err = verification.NewStubProvider(time.Millisecond, 0, 1).Evaluate(ctx, verification.Submission{}, func(int) {})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationRejected, out)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = verification.NewStubProvider(time.Hour, 1, 1).Evaluate(cancelled, verification.Submission{}, func(int) {})
	assert.ErrorIs(t, err, context.Canceled)
}
