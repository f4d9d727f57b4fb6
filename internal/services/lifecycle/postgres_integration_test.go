//go:build integration

package lifecycle

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
	"github.com/Windi-Fikriyansyah/handygo/internal/testutil/containers"
)

func TestPostgres(t *testing.T) {
	gdb := containers.NewPostgres(t)

	t.Run("concurrent applications from many contractors", func(t *testing.T) {
		f := fixtureOn(t, gdb)
		client := f.user("PgClient1", models.RoleClient)
		job := f.postJob(client, "Paint fence", 300)

		const n = 10
		ids := make([]uuid.UUID, n)
		for i := range ids {
			_, c := f.contractor("PgApplicant" + string(rune('A'+i)))
			ids[i] = c.ID
		}

		var wg sync.WaitGroup
		errs := make([]error, n)
		for i, id := range ids {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = f.svc.ApplyToJob(context.Background(), job.ID, id, "on it")
			}()
		}
		wg.Wait()
		for _, err := range errs {
			assert.NoError(t, err)
		}

		got, err := f.svc.GetJob(context.Background(), job.ID)
		require.NoError(t, err)
		assert.Len(t, got.Applications, n)
	})

	t.Run("duplicate application is rejected under contention", func(t *testing.T) {
		f := fixtureOn(t, gdb)
		client := f.user("PgClient2", models.RoleClient)
		_, c := f.contractor("PgSolo")
		job := f.postJob(client, "Fix gate", 90)

		const n = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			ok, dupes int
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.svc.ApplyToJob(context.Background(), job.ID, c.ID, "me")
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					ok++
				} else if apperr.HasCode(err, apperr.CodeDuplicateApplication) {
					dupes++
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, ok)
		assert.Equal(t, n-1, dupes)
	})

	t.Run("racing assignments pick exactly one contractor", func(t *testing.T) {
		f := fixtureOn(t, gdb)
		client := f.user("PgClient3", models.RoleClient)
		_, a := f.contractor("PgRacerA")
		_, b := f.contractor("PgRacerB")
		job := f.postJob(client, "Tile bathroom", 800)
		ctx := context.Background()
		_, err := f.svc.ApplyToJob(ctx, job.ID, a.ID, "a")
		require.NoError(t, err)
		_, err = f.svc.ApplyToJob(ctx, job.ID, b.ID, "b")
		require.NoError(t, err)

		owner := client.Actor()
		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, id := range []uuid.UUID{a.ID, b.ID} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = f.svc.AssignJob(ctx, job.ID, owner, id)
			}()
		}
		wg.Wait()

		failures := 0
		for _, err := range errs {
			if err != nil {
				failures++
				assert.True(t, apperr.HasCode(err, apperr.CodeJobNotOpen), err)
			}
		}
		assert.Equal(t, 1, failures)

		got, err := f.svc.GetJob(ctx, job.ID)
		require.NoError(t, err)
		require.NotNil(t, got.AssignedContractorID)
		assert.Equal(t, models.JobStatusAssigned, got.Status)
	})

	t.Run("job card flow and dashboard", func(t *testing.T) {
		f := fixtureOn(t, gdb)
		client := f.user("PgClient4", models.RoleClient)
		svc := f.service("PgPlumbing", 120)
		tu, c := f.contractor("PgPlumber", svc.ID)
		ctx := context.Background()

		card, err := f.svc.CreateJobCard(ctx, client.ID, CreateJobCardInput{
			ContractorID: c.ID, ServiceID: svc.ID, Date: tomorrow, Time: "10:00", Address: "Jl. Braga 5",
		})
		require.NoError(t, err)

		actor := tu.Actor()
		_, err = f.svc.AdvanceJobCardStatus(ctx, card.ID, actor, models.JobCardInProgress)
		require.NoError(t, err)
		_, err = f.svc.AdvanceJobCardStatus(ctx, card.ID, actor, models.JobCardCompleted)
		require.NoError(t, err)

		stats, err := f.svc.ContractorDashboard(ctx, actor)
		require.NoError(t, err)
		assert.EqualValues(t, 1, stats.CompletedJobCards)
		assert.EqualValues(t, 120, stats.TotalEarned)
	})
}
