package lifecycle

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/handygo/internal/db/dbtest"
	"github.com/Windi-Fikriyansyah/handygo/internal/metrics"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
)

type sentEvent struct {
	recipients []uuid.UUID
	eventType  string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (r *recordingNotifier) Notify(_ context.Context, recipients []uuid.UUID, eventType string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sentEvent{recipients: recipients, eventType: eventType})
}

func (r *recordingNotifier) last() sentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return sentEvent{}
	}
	return r.events[len(r.events)-1]
}

var fixedNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

const (
	tomorrow = "2026-03-11"
	nextWeek = "2026-03-17"
	pastDay  = "2026-03-08"
)

type fixture struct {
	t     *testing.T
	db    *gorm.DB
	svc   *Service
	notes *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return fixtureOn(t, dbtest.Open(t))
}

func fixtureOn(t *testing.T, gdb *gorm.DB) *fixture {
	t.Helper()
	notes := &recordingNotifier{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(gdb, notes, metrics.New(prometheus.NewRegistry()), log).
		WithClock(func() time.Time { return fixedNow })
	return &fixture{t: t, db: gdb, svc: svc, notes: notes}
}

func (f *fixture) user(name string, role models.Role) *models.User {
	f.t.Helper()
	u := &models.User{
		Name:     name,
		Email:    strings.ToLower(name) + "@example.com",
		Password: "x",
		Role:     role,
		IsActive: true,
	}
	require.NoError(f.t, f.db.Create(u).Error)
	return u
}

func (f *fixture) service(name string, price int64) *models.Service {
	f.t.Helper()
	s := &models.Service{Name: name, Description: name, Category: "plumbing", Price: price, Duration: "1h"}
	require.NoError(f.t, f.db.Create(s).Error)
	return s
}

func (f *fixture) contractor(name string, services ...uuid.UUID) (*models.User, *models.Contractor) {
	f.t.Helper()
	u := f.user(name, models.RoleContractor)
	c := &models.Contractor{
		UserID:     u.ID,
		Name:       name,
		Location:   "Bandung",
		Rating:     4.5,
		ServiceIDs: services,
	}
	require.NoError(f.t, f.db.Create(c).Error)
	return u, c
}

func (f *fixture) postJob(client *models.User, title string, budget int64) *models.Job {
	f.t.Helper()
	job, err := f.svc.PostJob(context.Background(), client.ID, PostJobInput{
		Title:       title,
		Description: "kitchen sink drips all night",
		Category:    "plumbing",
		Budget:      budget,
		Location:    "Bandung",
		Deadline:    nextWeek,
	})
	require.NoError(f.t, err)
	return job
}
