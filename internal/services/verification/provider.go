package verification

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/handygo/internal/models"
)

// Submission is what a provider gets to inspect.
type Submission struct {
	UserID       uuid.UUID
	DocumentType models.DocumentType
	DocumentPath string
	SelfiePath   string
}

// Provider decides whether a submission passes. It must return
// VerificationVerified or VerificationRejected, or an error when no decision
// could be made. progress may be called with values in 0..100.
type Provider interface {
	Evaluate(ctx context.Context, sub Submission, progress func(pct int)) (models.VerificationStatus, error)
}

// StubProvider is the development provider: it reports progress on a fixed
// tick and approves a configurable share of submissions at random.
type StubProvider struct {
	tick        time.Duration
	successRate float64

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewStubProvider(tick time.Duration, successRate float64, seed int64) *StubProvider {
	if tick <= 0 {
		tick = 200 * time.Millisecond
	}
	return &StubProvider{
		tick:        tick,
		successRate: successRate,
		rnd:         rand.New(rand.NewSource(seed)),
	}
}

func (p *StubProvider) Evaluate(ctx context.Context, _ Submission, progress func(int)) (models.VerificationStatus, error) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for pct := 10; pct <= 100; pct += 10 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
			progress(pct)
		}
	}

	p.mu.Lock()
	roll := p.rnd.Float64()
	p.mu.Unlock()

	if roll < p.successRate {
		return models.VerificationVerified, nil
	}
	return models.VerificationRejected, nil
}
