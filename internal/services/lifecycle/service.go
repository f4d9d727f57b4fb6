// Package lifecycle owns every status field in the marketplace: jobs and
// their applications, job cards and bookings. Nothing else writes status.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	"github.com/Windi-Fikriyansyah/handygo/internal/metrics"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
)

// Notifier pushes an event to the given users. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, recipients []uuid.UUID, eventType string, data any)
}

const (
	EventApplicationReceived = "job.application_received"
	EventJobAssigned         = "job.assigned"
	EventJobCompleted        = "job.completed"
	EventJobCardCreated      = "job_card.created"
	EventJobCardStatus       = "job_card.status_changed"
	EventBookingCreated      = "booking.created"
	EventBookingStatus       = "booking.status_changed"
)

type Service struct {
	db       *gorm.DB
	notifier Notifier
	metrics  *metrics.Metrics
	log      *slog.Logger
	now      func() time.Time
}

func New(db *gorm.DB, notifier Notifier, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{
		db:       db,
		notifier: notifier,
		metrics:  m,
		log:      log.With("component", "lifecycle"),
		now:      time.Now,
	}
}

// WithClock replaces the time source; used by tests pinning "today".
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (s *Service) conflict(code, msg string) error {
	s.metrics.ObserveConflict(code)
	return apperr.Conflict(code, msg)
}

func (s *Service) transitioned(entity string, id uuid.UUID, from, to string, actor models.Actor) {
	s.metrics.ObserveTransition(entity, from, to)
	s.log.Info("status transition",
		"entity", entity,
		"id", id,
		"from", from,
		"to", to,
		"actor", actor.UserID,
	)
}

func loadUser(tx *gorm.DB, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := tx.First(&u, "id = ?", id).Error; err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	return &u, nil
}

func loadContractor(tx *gorm.DB, id uuid.UUID) (*models.Contractor, error) {
	var c models.Contractor
	if err := tx.First(&c, "id = ?", id).Error; err != nil {
		return nil, apperr.FromDB(err, "contractor")
	}
	return &c, nil
}

// contractorOf resolves the contractor profile owned by actor, or nil if the
// actor is not a contractor or has no profile yet.
func contractorOf(tx *gorm.DB, actor models.Actor) (*models.Contractor, error) {
	if actor.Role != models.RoleContractor {
		return nil, nil
	}
	var c models.Contractor
	err := tx.Where("user_id = ?", actor.UserID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("failed to load contractor profile", err)
	}
	return &c, nil
}

func loadService(tx *gorm.DB, id uuid.UUID) (*models.Service, error) {
	var svc models.Service
	if err := tx.First(&svc, "id = ?", id).Error; err != nil {
		return nil, apperr.FromDB(err, "service")
	}
	return &svc, nil
}

const dayLayout = "2006-01-02"

var clockRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// earliestZone is the last offset to reach any calendar day. A date with no
// offset is in the past only once it has ended everywhere.
var earliestZone = time.FixedZone("UTC-12", -12*60*60)

// parseDay accepts YYYY-MM-DD or RFC3339. The calendar date is taken in the
// input's own offset and returned as midnight UTC; loc is the zone the date
// was written in, earliestZone for date-only input.
func parseDay(s string) (day time.Time, loc *time.Location, ok bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dayLayout, s); err == nil {
		return t, earliestZone, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), t.Location(), true
	}
	return time.Time{}, nil, false
}

// today is the current calendar date in loc, as midnight UTC.
func (s *Service) today(loc *time.Location) time.Time {
	y, m, d := s.now().In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// checkDay validates a required, not-in-the-past date field.
func (s *Service) checkDay(errs apperr.FieldErrors, field, value string) time.Time {
	if strings.TrimSpace(value) == "" {
		errs.Add(field, field+" is required")
		return time.Time{}
	}
	day, loc, ok := parseDay(value)
	if !ok {
		errs.Add(field, field+" must be a date (YYYY-MM-DD)")
		return time.Time{}
	}
	if day.Before(s.today(loc)) {
		errs.Add(field, field+" must not be in the past")
	}
	return day
}

func checkClock(errs apperr.FieldErrors, field, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		errs.Add(field, field+" is required")
	} else if !clockRe.MatchString(value) {
		errs.Add(field, field+" must be HH:MM")
	}
	return value
}
