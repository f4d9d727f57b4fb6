package lifecycle

import (
	"context"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
)

type DashboardStats struct {
	ActiveJobCards    int64            `json:"active_job_cards"`
	ActiveBookings    int64            `json:"active_bookings"`
	CompletedJobCards int64            `json:"completed_job_cards"`
	CompletedBookings int64            `json:"completed_bookings"`
	OpenApplications  int64            `json:"open_applications"`
	AssignedJobs      int64            `json:"assigned_jobs"`
	TotalEarned       int64            `json:"total_earned"`
	Upcoming          []models.JobCard `json:"upcoming"`
}

// ContractorDashboard summarises the work of the contractor behind
// requestedBy.
func (s *Service) ContractorDashboard(ctx context.Context, requestedBy models.Actor) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	c, err := contractorOf(db, requestedBy)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("contractor profile")
	}

	var st DashboardStats
	counts := []struct {
		dst   *int64
		model any
		where string
		args  []any
	}{
		{&st.ActiveJobCards, &models.JobCard{}, "contractor_id = ? AND status IN ?",
			[]any{c.ID, []models.JobCardStatus{models.JobCardPending, models.JobCardInProgress}}},
		{&st.CompletedJobCards, &models.JobCard{}, "contractor_id = ? AND status = ?",
			[]any{c.ID, models.JobCardCompleted}},
		{&st.ActiveBookings, &models.Booking{}, "contractor_id = ? AND status IN ?",
			[]any{c.ID, []models.BookingStatus{models.BookingPending, models.BookingConfirmed}}},
		{&st.CompletedBookings, &models.Booking{}, "contractor_id = ? AND status = ?",
			[]any{c.ID, models.BookingCompleted}},
		{&st.AssignedJobs, &models.Job{}, "assigned_contractor_id = ? AND status = ?",
			[]any{c.ID, models.JobStatusAssigned}},
	}
	for _, q := range counts {
		if err := db.Model(q.model).Where(q.where, q.args...).Count(q.dst).Error; err != nil {
			return nil, apperr.Internal("failed to load dashboard", err)
		}
	}

	if err := db.Model(&models.JobApplication{}).
		Joins("JOIN jobs ON jobs.id = job_applications.job_id").
		Where("job_applications.contractor_id = ? AND jobs.status = ?", c.ID, models.JobStatusOpen).
		Count(&st.OpenApplications).Error; err != nil {
		return nil, apperr.Internal("failed to load dashboard", err)
	}

	var cardsEarned, bookingsEarned int64
	if err := db.Model(&models.JobCard{}).
		Where("contractor_id = ? AND status = ?", c.ID, models.JobCardCompleted).
		Select("COALESCE(SUM(cost), 0)").
		Scan(&cardsEarned).Error; err != nil {
		return nil, apperr.Internal("failed to load dashboard", err)
	}
	if err := db.Model(&models.Booking{}).
		Where("contractor_id = ? AND status = ?", c.ID, models.BookingCompleted).
		Select("COALESCE(SUM(total_price), 0)").
		Scan(&bookingsEarned).Error; err != nil {
		return nil, apperr.Internal("failed to load dashboard", err)
	}
	st.TotalEarned = cardsEarned + bookingsEarned

	st.Upcoming = []models.JobCard{}
	if err := db.Where("contractor_id = ? AND status IN ?", c.ID,
		[]models.JobCardStatus{models.JobCardPending, models.JobCardInProgress}).
		Order("date ASC, time ASC").
		Limit(5).
		Find(&st.Upcoming).Error; err != nil {
		return nil, apperr.Internal("failed to load dashboard", err)
	}
	return &st, nil
}
