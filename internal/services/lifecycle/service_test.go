package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
)

func TestCheckDayUsesCallerOffset(t *testing.T) {
	// 22:00 on the 9th in UTC-5, already the 10th in UTC and Tokyo.
	svc := newFixture(t).svc.WithClock(func() time.Time {
		return time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	})

	tests := []struct {
		value string
		day   string
		past  bool
	}{
		{"2026-03-09T22:00:00-05:00", "2026-03-09", false},
		{"2026-03-09T18:00:00-05:00", "2026-03-09", false},
		{"2026-03-09T10:00:00Z", "2026-03-09", true},
		{"2026-03-10T08:00:00+09:00", "2026-03-10", false},
		{"2026-03-09T23:00:00+09:00", "2026-03-09", true},
		{"2026-03-09", "2026-03-09", false},
		{"2026-03-08", "2026-03-08", true},
		{"2026-03-10", "2026-03-10", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			errs := apperr.FieldErrors{}
			day := svc.checkDay(errs, "date", tt.value)
			assert.Equal(t, tt.day, day.Format(dayLayout))
			assert.Equal(t, time.UTC, day.Location())
			assert.Equal(t, tt.past, len(errs["date"]) > 0, "%v", errs)
		})
	}
}

func TestCheckDayRejectsGarbage(t *testing.T) {
	svc := newFixture(t).svc
	errs := apperr.FieldErrors{}
	svc.checkDay(errs, "deadline", "next tuesday")
	assert.Equal(t, []string{"deadline must be a date (YYYY-MM-DD)"}, errs["deadline"])

	errs = apperr.FieldErrors{}
	svc.checkDay(errs, "deadline", " ")
	assert.Equal(t, []string{"deadline is required"}, errs["deadline"])
}
