// Package verification drives users through identity verification:
// overview, document upload, selfie capture, provider evaluation, outcome.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	"github.com/Windi-Fikriyansyah/handygo/internal/config"
	"github.com/Windi-Fikriyansyah/handygo/internal/metrics"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
)

type Notifier interface {
	Notify(ctx context.Context, recipients []uuid.UUID, eventType string, data any)
}

const (
	EventProgress  = "verification.progress"
	EventCompleted = "verification.completed"
	EventFailed    = "verification.failed"
)

// FileRef describes an upload already written to disk.
type FileRef struct {
	Path        string `json:"-"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

func (f FileRef) meta() map[string]any {
	return map[string]any{"name": f.Name, "size": f.Size, "content_type": f.ContentType}
}

type Overview struct {
	Session  *models.VerificationSession `json:"session"`
	Status   models.VerificationStatus   `json:"status"`
	CanRetry bool                        `json:"can_retry"`
}

type Workflow struct {
	db       *gorm.DB
	provider Provider
	guard    Guard
	notifier Notifier
	metrics  *metrics.Metrics
	log      *slog.Logger
	timeout  time.Duration
	now      func() time.Time

	// background evaluations
	bg     context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	closed bool
	mu     sync.Mutex
}

func New(db *gorm.DB, provider Provider, guard Guard, notifier Notifier, m *metrics.Metrics, cfg config.VerificationConfig, log *slog.Logger) *Workflow {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	bg, stop := context.WithCancel(context.Background())
	return &Workflow{
		db:       db,
		provider: provider,
		guard:    guard,
		notifier: notifier,
		metrics:  m,
		log:      log.With("component", "verification"),
		timeout:  timeout,
		now:      time.Now,
		bg:       bg,
		stop:     stop,
	}
}

func (w *Workflow) illegal(msg string) error {
	w.metrics.ObserveConflict(apperr.CodeIllegalTransition)
	return apperr.Conflict(apperr.CodeIllegalTransition, msg)
}

func loadUser(tx *gorm.DB, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := tx.First(&u, "id = ?", id).Error; err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	return &u, nil
}

func sessionFor(tx *gorm.DB, userID uuid.UUID) (*models.VerificationSession, error) {
	var sess models.VerificationSession
	err := tx.Where(models.VerificationSession{UserID: userID}).
		Attrs(models.VerificationSession{Step: models.StepOverview}).
		FirstOrCreate(&sess).Error
	if err != nil {
		return nil, apperr.Internal("failed to load verification session", err)
	}
	return &sess, nil
}

// setStatus is the only place a user's verification status is written. The
// contractor profile, if any, mirrors it.
func setStatus(tx *gorm.DB, userID uuid.UUID, status models.VerificationStatus) error {
	if err := tx.Model(&models.User{}).Where("id = ?", userID).
		Update("verification_status", status).Error; err != nil {
		return apperr.Internal("failed to update verification status", err)
	}
	if err := tx.Model(&models.Contractor{}).Where("user_id = ?", userID).
		Update("verification_status", status).Error; err != nil {
		return apperr.Internal("failed to update contractor verification status", err)
	}
	return nil
}

func reset(tx *gorm.DB, sess *models.VerificationSession) error {
	sess.Step = models.StepDocumentUpload
	sess.Progress = 0
	sess.DocumentType = ""
	sess.DocumentPath = ""
	sess.SelfiePath = ""
	sess.Files = datatypes.JSONMap{}
	sess.Outcome = ""
	sess.LastError = ""
	sess.SubmittedAt = nil
	sess.CompletedAt = nil
	if err := tx.Save(sess).Error; err != nil {
		return apperr.Internal("failed to reset verification session", err)
	}
	return setStatus(tx, sess.UserID, models.VerificationNotStarted)
}

func (w *Workflow) Overview(ctx context.Context, userID uuid.UUID) (*Overview, error) {
	db := w.db.WithContext(ctx)
	u, err := loadUser(db, userID)
	if err != nil {
		return nil, err
	}
	sess, err := sessionFor(db, userID)
	if err != nil {
		return nil, err
	}
	return &Overview{
		Session:  sess,
		Status:   u.VerificationStatus,
		CanRetry: u.VerificationStatus == models.VerificationRejected,
	}, nil
}

// Start leaves the overview and opens the document step. Calling it again
// mid-flow returns the session unchanged; after a rejection it starts over.
func (w *Workflow) Start(ctx context.Context, userID uuid.UUID) (*models.VerificationSession, error) {
	var sess *models.VerificationSession
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		if u.VerificationStatus == models.VerificationVerified {
			return w.illegal("user is already verified")
		}
		if sess, err = sessionFor(tx, userID); err != nil {
			return err
		}

		switch {
		case u.VerificationStatus == models.VerificationRejected || sess.Outcome == models.VerificationRejected:
			return reset(tx, sess)
		case sess.Step == models.StepOverview:
			sess.Step = models.StepDocumentUpload
			if err := tx.Save(sess).Error; err != nil {
				return apperr.Internal("failed to start verification", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// SubmitDocument stores the identity document and moves on to the selfie.
// The file content is not inspected here.
func (w *Workflow) SubmitDocument(ctx context.Context, userID uuid.UUID, docType models.DocumentType, file FileRef) (*models.VerificationSession, error) {
	errs := apperr.FieldErrors{}
	if !docType.Valid() {
		errs.Add("document_type", "document_type must be passport, license or national-id")
	}
	if strings.TrimSpace(file.Path) == "" {
		errs.Add("file", "file is required")
	}
	if err := apperr.Validation(errs); err != nil {
		return nil, err
	}

	var sess *models.VerificationSession
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if sess, err = sessionFor(tx, userID); err != nil {
			return err
		}
		if sess.Step != models.StepDocumentUpload {
			return w.illegal("document upload is not the current step")
		}

		if sess.Files == nil {
			sess.Files = datatypes.JSONMap{}
		}
		sess.Files["document"] = file.meta()
		sess.DocumentType = docType
		sess.DocumentPath = file.Path
		sess.Step = models.StepFacialRecognition
		if err := tx.Save(sess).Error; err != nil {
			return apperr.Internal("failed to save document", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.log.Info("verification document submitted", "user_id", userID, "document_type", docType)
	return sess, nil
}

// CaptureSelfie records the selfie, marks the user pending and starts the
// evaluation in the background.
func (w *Workflow) CaptureSelfie(ctx context.Context, userID uuid.UUID, file FileRef) (*models.VerificationSession, error) {
	if strings.TrimSpace(file.Path) == "" {
		return nil, apperr.Invalid("selfie", "selfie is required")
	}

	var sess *models.VerificationSession
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if sess, err = sessionFor(tx, userID); err != nil {
			return err
		}
		if sess.Step != models.StepFacialRecognition {
			return w.illegal("selfie capture is not the current step")
		}

		now := w.now()
		if sess.Files == nil {
			sess.Files = datatypes.JSONMap{}
		}
		sess.Files["selfie"] = file.meta()
		sess.SelfiePath = file.Path
		sess.Step = models.StepProcessing
		sess.Progress = 0
		sess.LastError = ""
		sess.SubmittedAt = &now
		if err := tx.Save(sess).Error; err != nil {
			return apperr.Internal("failed to save selfie", err)
		}
		return setStatus(tx, userID, models.VerificationPending)
	})
	if err != nil {
		return nil, err
	}

	w.log.Info("verification submitted", "user_id", userID)
	w.StartEvaluation(userID)
	return sess, nil
}

// StartEvaluation runs Evaluate in the background. Errors are logged and
// recorded on the session; callers learn the outcome through notifications.
func (w *Workflow) StartEvaluation(userID uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if _, err := w.Evaluate(w.bg, userID); err != nil {
			w.log.Warn("background verification failed", "user_id", userID, "err", err)
		}
	}()
}

// Evaluate asks the provider for a decision on the submitted session. Only
// one evaluation per user runs at a time. A provider error or timeout
// leaves the session in processing and the user's status untouched.
func (w *Workflow) Evaluate(ctx context.Context, userID uuid.UUID) (*models.VerificationSession, error) {
	release, err := w.guard.Acquire(ctx, userID, w.timeout+5*time.Second)
	if errors.Is(err, ErrBusy) {
		w.metrics.ObserveConflict(apperr.CodeAlreadyInProgress)
		return nil, apperr.Conflict(apperr.CodeAlreadyInProgress, "verification is already being evaluated")
	}
	if err != nil {
		return nil, apperr.Internal("failed to acquire verification lock", err)
	}
	defer release()

	db := w.db.WithContext(ctx)
	sess, err := sessionFor(db, userID)
	if err != nil {
		return nil, err
	}
	if sess.Step != models.StepProcessing {
		return nil, w.illegal("nothing to evaluate")
	}

	sub := Submission{
		UserID:       userID,
		DocumentType: sess.DocumentType,
		DocumentPath: sess.DocumentPath,
		SelfiePath:   sess.SelfiePath,
	}

	evalCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	outcome, err := w.provider.Evaluate(evalCtx, sub, w.progress(ctx, sess.ID, userID))
	w.metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	if err == nil && outcome != models.VerificationVerified && outcome != models.VerificationRejected {
		err = fmt.Errorf("provider returned %q", outcome)
	}
	if err != nil {
		return nil, w.fail(ctx, sess, err)
	}

	now := w.now()
	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.VerificationSession{}).
			Where("id = ? AND step = ?", sess.ID, models.StepProcessing).
			Updates(map[string]any{
				"step":         models.StepComplete,
				"progress":     100,
				"outcome":      outcome,
				"last_error":   "",
				"attempts":     gorm.Expr("attempts + 1"),
				"completed_at": now,
			})
		if res.Error != nil {
			return apperr.Internal("failed to record verification outcome", res.Error)
		}
		if res.RowsAffected == 0 {
			return w.illegal("verification session changed during evaluation")
		}
		return setStatus(tx, userID, outcome)
	})
	if err != nil {
		return nil, err
	}

	w.metrics.VerificationOutcomes.WithLabelValues(string(outcome)).Inc()
	w.log.Info("verification decided", "user_id", userID, "outcome", outcome)

	if err := db.First(sess, "id = ?", sess.ID).Error; err != nil {
		return nil, apperr.FromDB(err, "verification session")
	}
	w.notifier.Notify(ctx, []uuid.UUID{userID}, EventCompleted, sess)
	return sess, nil
}

func (w *Workflow) fail(ctx context.Context, sess *models.VerificationSession, cause error) error {
	w.metrics.ProviderFailures.Inc()
	w.log.Warn("verification provider failed", "user_id", sess.UserID, "err", cause)

	// Record on a fresh context: a timed-out request context must not lose the error.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := w.db.WithContext(recCtx).Model(&models.VerificationSession{}).
		Where("id = ?", sess.ID).
		Updates(map[string]any{
			"last_error": cause.Error(),
			"attempts":   gorm.Expr("attempts + 1"),
		}).Error
	if err != nil {
		w.log.Error("failed to record provider error", "user_id", sess.UserID, "err", err)
	}

	w.notifier.Notify(recCtx, []uuid.UUID{sess.UserID}, EventFailed, map[string]any{
		"session_id": sess.ID,
		"error":      cause.Error(),
	})
	return apperr.Provider(cause)
}

// progress persists and publishes provider progress. Values never go back.
func (w *Workflow) progress(ctx context.Context, sessionID, userID uuid.UUID) func(int) {
	last := 0
	return func(pct int) {
		if pct < last || pct > 100 {
			return
		}
		last = pct
		err := w.db.WithContext(ctx).Model(&models.VerificationSession{}).
			Where("id = ? AND step = ?", sessionID, models.StepProcessing).
			Update("progress", pct).Error
		if err != nil {
			w.log.Warn("failed to store verification progress", "user_id", userID, "err", err)
		}
		w.notifier.Notify(ctx, []uuid.UUID{userID}, EventProgress, map[string]any{
			"session_id": sessionID,
			"progress":   pct,
		})
	}
}

// Retry is offered only after a rejection. It clears the session back to
// the document step and the user's status back to not-started.
func (w *Workflow) Retry(ctx context.Context, userID uuid.UUID) (*models.VerificationSession, error) {
	var sess *models.VerificationSession
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		if sess, err = sessionFor(tx, userID); err != nil {
			return err
		}
		if u.VerificationStatus != models.VerificationRejected && sess.Outcome != models.VerificationRejected {
			return w.illegal("retry is only possible after a rejected verification")
		}
		return reset(tx, sess)
	})
	if err != nil {
		return nil, err
	}

	w.log.Info("verification reset for retry", "user_id", userID)
	return sess, nil
}

// Wait blocks until background evaluations started so far have returned.
func (w *Workflow) Wait() { w.wg.Wait() }

// Shutdown cancels background evaluations and waits for them to return.
func (w *Workflow) Shutdown() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	w.stop()
	w.wg.Wait()
}
