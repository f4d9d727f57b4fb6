package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
)

func TestContractorDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1 := f.user("C1", models.RoleClient)
	s1 := f.service("S1", 120)
	t1User, t1 := f.contractor("T1", s1.ID)

	in := CreateJobCardInput{ContractorID: t1.ID, ServiceID: s1.ID, Date: tomorrow, Time: "09:00", Address: "here"}
	done, err := f.svc.CreateJobCard(ctx, c1.ID, in)
	require.NoError(t, err)
	_, err = f.svc.CreateJobCard(ctx, c1.ID, in)
	require.NoError(t, err)
	for _, to := range []models.JobCardStatus{models.JobCardInProgress, models.JobCardCompleted} {
		_, err = f.svc.AdvanceJobCardStatus(ctx, done.ID, t1User.Actor(), to)
		require.NoError(t, err)
	}

	b := f.booking(c1, t1, s1)
	for _, to := range []models.BookingStatus{models.BookingConfirmed, models.BookingCompleted} {
		_, err = f.svc.AdvanceBookingStatus(ctx, b.ID, t1User.Actor(), to)
		require.NoError(t, err)
	}
	f.booking(c1, t1, s1)

	job := f.postJob(c1, "Leaky faucet", 150)
	_, err = f.svc.ApplyToJob(ctx, job.ID, t1.ID, "I can fix it")
	require.NoError(t, err)

	st, err := f.svc.ContractorDashboard(ctx, t1User.Actor())
	require.NoError(t, err)
	assert.EqualValues(t, 1, st.ActiveJobCards)
	assert.EqualValues(t, 1, st.CompletedJobCards)
	assert.EqualValues(t, 1, st.ActiveBookings)
	assert.EqualValues(t, 1, st.CompletedBookings)
	assert.EqualValues(t, 1, st.OpenApplications)
	assert.EqualValues(t, 0, st.AssignedJobs)
	assert.EqualValues(t, 240, st.TotalEarned)
	assert.Len(t, st.Upcoming, 1)
}

func TestContractorDashboardWithoutProfile(t *testing.T) {
	f := newFixture(t)
	u := f.user("T1", models.RoleContractor)

	_, err := f.svc.ContractorDashboard(context.Background(), u.Actor())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
