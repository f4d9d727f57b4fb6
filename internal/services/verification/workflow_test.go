package verification_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	"github.com/Windi-Fikriyansyah/handygo/internal/config"
	"github.com/Windi-Fikriyansyah/handygo/internal/db/dbtest"
	"github.com/Windi-Fikriyansyah/handygo/internal/metrics"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
	"github.com/Windi-Fikriyansyah/handygo/internal/services/verification"
	"github.com/Windi-Fikriyansyah/handygo/internal/services/verification/mocks"
)

//go:generate mockgen -source=provider.go -destination=mocks/mocks.go -package=mocks Provider

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) Notify(_ context.Context, _ []uuid.UUID, eventType string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func (r *recordingNotifier) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == eventType {
			n++
		}
	}
	return n
}

type fixture struct {
	db       *gorm.DB
	wf       *verification.Workflow
	provider *mocks.MockProvider
	notes    *recordingNotifier
	user     *models.User
}

func newFixture(t *testing.T, timeout time.Duration) *fixture {
	t.Helper()
	gdb := dbtest.Open(t)
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	notes := &recordingNotifier{}

	wf := verification.New(gdb, provider, verification.NewLocalGuard(), notes,
		metrics.New(prometheus.NewRegistry()),
		config.VerificationConfig{Timeout: timeout},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(wf.Shutdown)

	u := &models.User{Name: "T1", Email: "t1@example.com", Password: "x", Role: models.RoleContractor, IsActive: true}
	require.NoError(t, gdb.Create(u).Error)

	return &fixture{db: gdb, wf: wf, provider: provider, notes: notes, user: u}
}

// submit walks the wizard up to the selfie, which starts evaluation.
func (f *fixture) submit(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.wf.Start(ctx, f.user.ID)
	require.NoError(t, err)
	_, err = f.wf.SubmitDocument(ctx, f.user.ID, models.DocumentPassport, verification.FileRef{Path: "/tmp/doc.jpg", Name: "doc.jpg", Size: 10})
	require.NoError(t, err)
	sess, err := f.wf.CaptureSelfie(ctx, f.user.ID, verification.FileRef{Path: "/tmp/selfie.jpg", Name: "selfie.jpg", Size: 10})
	require.NoError(t, err)
	require.Equal(t, models.StepProcessing, sess.Step)
}

func (f *fixture) status(t *testing.T) models.VerificationStatus {
	t.Helper()
	var u models.User
	require.NoError(t, f.db.First(&u, "id = ?", f.user.ID).Error)
	return u.VerificationStatus
}

func (f *fixture) session(t *testing.T) models.VerificationSession {
	t.Helper()
	var s models.VerificationSession
	require.NoError(t, f.db.First(&s, "user_id = ?", f.user.ID).Error)
	return s
}

func TestVerificationApproved(t *testing.T) {
	f := newFixture(t, time.Second)
	c := &models.Contractor{UserID: f.user.ID, Name: "T1", Location: "Bandung"}
	require.NoError(t, f.db.Create(c).Error)

	f.provider.EXPECT().Evaluate(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, sub verification.Submission, progress func(int)) (models.VerificationStatus, error) {
			assert.Equal(t, models.DocumentPassport, sub.DocumentType)
			assert.Equal(t, "/tmp/selfie.jpg", sub.SelfiePath)
			progress(50)
			progress(100)
			return models.VerificationVerified, nil
		})

	f.submit(t)
	f.wf.Wait()

	assert.Equal(t, models.VerificationVerified, f.status(t))
	sess := f.session(t)
	assert.Equal(t, models.StepComplete, sess.Step)
	assert.Equal(t, 100, sess.Progress)
	assert.Equal(t, 1, sess.Attempts)
	assert.NotNil(t, sess.CompletedAt)
	assert.Equal(t, 2, f.notes.count(verification.EventProgress))
	assert.Equal(t, 1, f.notes.count(verification.EventCompleted))

	var got models.Contractor
	require.NoError(t, f.db.First(&got, "id = ?", c.ID).Error)
	assert.Equal(t, models.VerificationVerified, got.VerificationStatus)

	_, err := f.wf.Start(context.Background(), f.user.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeIllegalTransition), "verified users cannot restart")
}

func TestVerificationRejectedThenRetry(t *testing.T) {
	f := newFixture(t, time.Second)
	f.provider.EXPECT().Evaluate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(models.VerificationRejected, nil)

	f.submit(t)
	f.wf.Wait()
	assert.Equal(t, models.VerificationRejected, f.status(t))

	ov, err := f.wf.Overview(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.True(t, ov.CanRetry)

	sess, err := f.wf.Retry(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepDocumentUpload, sess.Step)
	assert.Empty(t, sess.DocumentPath)
	assert.Empty(t, sess.Outcome)
	assert.Equal(t, models.VerificationNotStarted, f.status(t))
}

func TestProviderErrorLeavesStatusUnchanged(t *testing.T) {
	f := newFixture(t, time.Second)
	gomock.InOrder(
		f.provider.EXPECT().Evaluate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(models.VerificationStatus(""), errors.New("provider unavailable")),
		f.provider.EXPECT().Evaluate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(models.VerificationVerified, nil),
	)

	f.submit(t)
	f.wf.Wait()

	assert.Equal(t, models.VerificationPending, f.status(t))
	sess := f.session(t)
	assert.Equal(t, models.StepProcessing, sess.Step)
	assert.Contains(t, sess.LastError, "provider unavailable")
	assert.Equal(t, 1, f.notes.count(verification.EventFailed))

	out, err := f.wf.Evaluate(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, out.Outcome)
	assert.Empty(t, out.LastError)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, models.VerificationVerified, f.status(t))
}

func TestUnknownOutcomeIsProviderError(t *testing.T) {
	f := newFixture(t, time.Second)
	gomock.InOrder(
		f.provider.EXPECT().Evaluate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(models.VerificationStatus(""), errors.New("first")),
		f.provider.EXPECT().Evaluate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(models.VerificationStatus("maybe"), nil),
	)

	f.submit(t)
	f.wf.Wait()

	_, err := f.wf.Evaluate(context.Background(), f.user.ID)
	assert.Equal(t, apperr.KindProvider, apperr.KindOf(err))
	assert.Equal(t, models.VerificationPending, f.status(t))
}

func TestProviderTimeout(t *testing.T) {
	f := newFixture(t, 50*time.Millisecond)
	f.provider.EXPECT().Evaluate(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ verification.Submission, _ func(int)) (models.VerificationStatus, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})

	f.submit(t)
	f.wf.Wait()

	assert.Equal(t, models.VerificationPending, f.status(t))
	sess := f.session(t)
	assert.Equal(t, models.StepProcessing, sess.Step)
	assert.Contains(t, sess.LastError, context.DeadlineExceeded.Error())
}

func TestConcurrentEvaluationRejected(t *testing.T) {
	f := newFixture(t, time.Second)
	started := make(chan struct{})
	unblock := make(chan struct{})
	f.provider.EXPECT().Evaluate(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, verification.Submission, func(int)) (models.VerificationStatus, error) {
			close(started)
			<-unblock
			return models.VerificationVerified, nil
		})

	f.submit(t)
	<-started

	_, err := f.wf.Evaluate(context.Background(), f.user.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeAlreadyInProgress))

	close(unblock)
	f.wf.Wait()
	assert.Equal(t, models.VerificationVerified, f.status(t))
}

func TestWizardStepGuards(t *testing.T) {
	f := newFixture(t, time.Second)
	ctx := context.Background()
	doc := verification.FileRef{Path: "/tmp/doc.jpg"}

	_, err := f.wf.SubmitDocument(ctx, f.user.ID, models.DocumentPassport, doc)
	assert.True(t, apperr.HasCode(err, apperr.CodeIllegalTransition), "document before start")

	_, err = f.wf.CaptureSelfie(ctx, f.user.ID, doc)
	assert.True(t, apperr.HasCode(err, apperr.CodeIllegalTransition), "selfie before document")

	_, err = f.wf.Evaluate(ctx, f.user.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeIllegalTransition), "nothing submitted")

	_, err = f.wf.Retry(ctx, f.user.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeIllegalTransition), "retry without rejection")

	sess, err := f.wf.Start(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepDocumentUpload, sess.Step)

	sess, err = f.wf.Start(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepDocumentUpload, sess.Step, "start is idempotent")

	_, err = f.wf.SubmitDocument(ctx, f.user.ID, "drivers-permit", verification.FileRef{})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Contains(t, e.Fields, "document_type")
	assert.Contains(t, e.Fields, "file")

	sess, err = f.wf.SubmitDocument(ctx, f.user.ID, models.DocumentNationalID, doc)
	require.NoError(t, err)
	assert.Equal(t, models.StepFacialRecognition, sess.Step)
	assert.Contains(t, sess.Files, "document")
	assert.Equal(t, models.VerificationNotStarted, f.status(t))
}
