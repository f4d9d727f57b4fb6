package lifecycle

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
)

type PostJobInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Budget      int64  `json:"budget"`
	Location    string `json:"location"`
	Deadline    string `json:"deadline"` // YYYY-MM-DD
}

type JobFilter struct {
	Status   string
	Category string
}

func withApplications(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Applications", func(db *gorm.DB) *gorm.DB {
		return db.Order("applied_date ASC")
	})
}

// checkJob validates the editable fields of a job and returns them cleaned.
func (s *Service) checkJob(in PostJobInput) (models.Job, error) {
	job := models.Job{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Budget:      in.Budget,
		Location:    strings.TrimSpace(in.Location),
	}

	errs := apperr.FieldErrors{}
	if job.Title == "" {
		errs.Add("title", "title is required")
	}
	if job.Description == "" {
		errs.Add("description", "description is required")
	}
	if job.Category == "" {
		errs.Add("category", "category is required")
	}
	if in.Budget <= 0 {
		errs.Add("budget", "budget must be greater than zero")
	}
	job.Deadline = s.checkDay(errs, "deadline", in.Deadline)
	return job, apperr.Validation(errs)
}

// PostJob opens a new job for clientID, who must be an active client.
func (s *Service) PostJob(ctx context.Context, clientID uuid.UUID, in PostJobInput) (*models.Job, error) {
	job, err := s.checkJob(in)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	client, err := loadUser(db, clientID)
	if err != nil {
		return nil, err
	}
	if client.Role != models.RoleClient || !client.IsActive {
		return nil, apperr.Forbidden()
	}

	job.ClientID = client.ID
	job.ClientName = client.Name
	job.Status = models.JobStatusOpen
	job.PostedDate = s.now()
	job.Applications = []models.JobApplication{}
	if err := db.Create(&job).Error; err != nil {
		return nil, apperr.Internal("failed to create job", err)
	}

	s.log.Info("job posted", "job_id", job.ID, "client_id", client.ID)
	return &job, nil
}

// ApplyToJob records contractorID's bid on an open job. A contractor can
// apply to a given job once; the unique (job_id, contractor_id) index keeps
// that true under concurrent requests.
func (s *Service) ApplyToJob(ctx context.Context, jobID, contractorID uuid.UUID, proposal string) (*models.JobApplication, error) {
	proposal = strings.TrimSpace(proposal)
	if proposal == "" {
		return nil, apperr.Invalid("proposal", "proposal is required")
	}

	var (
		job models.Job
		app models.JobApplication
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&job, "id = ?", jobID).Error; err != nil {
			return apperr.FromDB(err, "job")
		}
		if job.Status != models.JobStatusOpen {
			return s.conflict(apperr.CodeJobNotOpen, "job is not open for applications")
		}

		contractor, err := loadContractor(tx, contractorID)
		if err != nil {
			return err
		}

		var n int64
		if err := tx.Model(&models.JobApplication{}).
			Where("job_id = ? AND contractor_id = ?", jobID, contractorID).
			Count(&n).Error; err != nil {
			return apperr.Internal("failed to check applications", err)
		}
		if n > 0 {
			return s.conflict(apperr.CodeDuplicateApplication, "contractor already applied to this job")
		}

		app = models.JobApplication{
			JobID:              jobID,
			ContractorID:       contractor.ID,
			ContractorName:     contractor.Name,
			ContractorRating:   contractor.Rating,
			ContractorImage:    contractor.ProfileImage,
			VerificationStatus: contractor.VerificationStatus,
			Proposal:           proposal,
			AppliedDate:        s.now(),
		}
		if err := tx.Create(&app).Error; err != nil {
			if apperr.IsUniqueViolation(err) {
				return s.conflict(apperr.CodeDuplicateApplication, "contractor already applied to this job")
			}
			return apperr.Internal("failed to save application", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ApplicationsCreated.Inc()
	s.log.Info("job application received", "job_id", jobID, "contractor_id", contractorID)
	s.notifier.Notify(ctx, []uuid.UUID{job.ClientID}, EventApplicationReceived, app)
	return &app, nil
}

// AssignJob commits an open job to one of its applicants. Only the job's
// client or an admin may assign, and only once.
func (s *Service) AssignJob(ctx context.Context, jobID uuid.UUID, requestedBy models.Actor, contractorID uuid.UUID) (*models.Job, error) {
	var (
		job        models.Job
		contractor *models.Contractor
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&job, "id = ?", jobID).Error; err != nil {
			return apperr.FromDB(err, "job")
		}
		if !requestedBy.IsAdmin() && job.ClientID != requestedBy.UserID {
			return apperr.Forbidden()
		}
		if job.Status != models.JobStatusOpen {
			return s.conflict(apperr.CodeJobNotOpen, "job is already "+string(job.Status))
		}

		if err := tx.Where("job_id = ?", jobID).Find(&job.Applications).Error; err != nil {
			return apperr.Internal("failed to load applications", err)
		}
		if !job.HasApplicant(contractorID) {
			return s.conflict(apperr.CodeContractorNotApplicant, "contractor has not applied to this job")
		}

		res := tx.Model(&models.Job{}).
			Where("id = ? AND status = ?", jobID, models.JobStatusOpen).
			Updates(map[string]any{
				"status":                 models.JobStatusAssigned,
				"assigned_contractor_id": contractorID,
				"updated_at":             s.now(),
			})
		if res.Error != nil {
			return apperr.Internal("failed to assign job", res.Error)
		}
		if res.RowsAffected == 0 {
			return s.conflict(apperr.CodeJobNotOpen, "job was assigned concurrently")
		}

		var err error
		contractor, err = loadContractor(tx, contractorID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.transitioned("job", jobID, string(models.JobStatusOpen), string(models.JobStatusAssigned), requestedBy)
	out, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, []uuid.UUID{job.ClientID, contractor.UserID}, EventJobAssigned, out)
	return out, nil
}

// CompleteJob moves an assigned job to completed. The client, the assigned
// contractor or an admin can signal completion.
func (s *Service) CompleteJob(ctx context.Context, jobID uuid.UUID, requestedBy models.Actor) (*models.Job, error) {
	var (
		job        models.Job
		contractor *models.Contractor
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&job, "id = ?", jobID).Error; err != nil {
			return apperr.FromDB(err, "job")
		}

		if job.AssignedContractorID != nil {
			var err error
			if contractor, err = loadContractor(tx, *job.AssignedContractorID); err != nil {
				return err
			}
		}

		allowed := requestedBy.IsAdmin() || job.ClientID == requestedBy.UserID ||
			(contractor != nil && contractor.UserID == requestedBy.UserID)
		if !allowed {
			return apperr.Forbidden()
		}
		if !CanAdvanceJob(job.Status, models.JobStatusCompleted) {
			return s.conflict(apperr.CodeIllegalTransition, "cannot complete a job that is "+string(job.Status))
		}

		res := tx.Model(&models.Job{}).
			Where("id = ? AND status = ?", jobID, models.JobStatusAssigned).
			Updates(map[string]any{"status": models.JobStatusCompleted, "updated_at": s.now()})
		if res.Error != nil {
			return apperr.Internal("failed to complete job", res.Error)
		}
		if res.RowsAffected == 0 {
			return s.conflict(apperr.CodeIllegalTransition, "job status changed concurrently")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.transitioned("job", jobID, string(models.JobStatusAssigned), string(models.JobStatusCompleted), requestedBy)
	out, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, []uuid.UUID{job.ClientID, contractor.UserID}, EventJobCompleted, out)
	return out, nil
}

// UpdateJobInput replaces the editable fields of an open job. Status is
// accepted only to reject it: jobs move through AssignJob and CompleteJob.
type UpdateJobInput struct {
	PostJobInput
	Status string `json:"status"`
}

// UpdateJob edits an open job. Only its client or an admin may edit.
func (s *Service) UpdateJob(ctx context.Context, jobID uuid.UUID, requestedBy models.Actor, in UpdateJobInput) (*models.Job, error) {
	if strings.TrimSpace(in.Status) != "" {
		return nil, apperr.Invalid("status", "status cannot be changed by editing a job")
	}
	fields, err := s.checkJob(in.PostJobInput)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job models.Job
		if err := forUpdate(tx).First(&job, "id = ?", jobID).Error; err != nil {
			return apperr.FromDB(err, "job")
		}
		if !requestedBy.IsAdmin() && job.ClientID != requestedBy.UserID {
			return apperr.Forbidden()
		}
		if job.Status != models.JobStatusOpen {
			return s.conflict(apperr.CodeJobNotOpen, "only open jobs can be edited")
		}

		res := tx.Model(&models.Job{}).
			Where("id = ? AND status = ?", jobID, models.JobStatusOpen).
			Updates(map[string]any{
				"title":       fields.Title,
				"description": fields.Description,
				"category":    fields.Category,
				"budget":      fields.Budget,
				"location":    fields.Location,
				"deadline":    fields.Deadline,
				"updated_at":  s.now(),
			})
		if res.Error != nil {
			return apperr.Internal("failed to update job", res.Error)
		}
		if res.RowsAffected == 0 {
			return s.conflict(apperr.CodeJobNotOpen, "job was assigned concurrently")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("job updated", "job_id", jobID, "actor", requestedBy.UserID)
	return s.GetJob(ctx, jobID)
}

// DeleteJob removes an open job and its applications.
func (s *Service) DeleteJob(ctx context.Context, jobID uuid.UUID, requestedBy models.Actor) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job models.Job
		if err := forUpdate(tx).First(&job, "id = ?", jobID).Error; err != nil {
			return apperr.FromDB(err, "job")
		}
		if !requestedBy.IsAdmin() && job.ClientID != requestedBy.UserID {
			return apperr.Forbidden()
		}
		if job.Status != models.JobStatusOpen {
			return s.conflict(apperr.CodeJobNotOpen, "only open jobs can be deleted")
		}

		if err := tx.Where("job_id = ?", jobID).Delete(&models.JobApplication{}).Error; err != nil {
			return apperr.Internal("failed to delete applications", err)
		}
		if err := tx.Delete(&models.Job{}, "id = ?", jobID).Error; err != nil {
			return apperr.Internal("failed to delete job", err)
		}
		s.log.Info("job deleted", "job_id", jobID, "actor", requestedBy.UserID)
		return nil
	})
}

func (s *Service) GetJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := withApplications(s.db.WithContext(ctx)).First(&job, "id = ?", jobID).Error; err != nil {
		return nil, apperr.FromDB(err, "job")
	}
	return &job, nil
}

func (s *Service) ListJobs(ctx context.Context, f JobFilter) ([]models.Job, error) {
	q := withApplications(s.db.WithContext(ctx)).Model(&models.Job{})
	if f.Status != "" {
		st := models.JobStatus(f.Status)
		if !st.Valid() {
			return nil, apperr.Invalid("status", "status must be open, assigned or completed")
		}
		q = q.Where("status = ?", st)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}

	jobs := []models.Job{}
	if err := q.Order("posted_date DESC").Find(&jobs).Error; err != nil {
		return nil, apperr.Internal("failed to list jobs", err)
	}
	return jobs, nil
}

// JobsForClient lists the jobs a client posted.
func (s *Service) JobsForClient(ctx context.Context, clientID uuid.UUID) ([]models.Job, error) {
	jobs := []models.Job{}
	err := withApplications(s.db.WithContext(ctx)).
		Where("client_id = ?", clientID).
		Order("posted_date DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, apperr.Internal("failed to list jobs", err)
	}
	return jobs, nil
}

// JobsAppliedBy lists the jobs a contractor has applied to.
func (s *Service) JobsAppliedBy(ctx context.Context, contractorID uuid.UUID) ([]models.Job, error) {
	db := s.db.WithContext(ctx)
	jobs := []models.Job{}
	err := withApplications(db).
		Where("id IN (?)", db.Model(&models.JobApplication{}).Select("job_id").Where("contractor_id = ?", contractorID)).
		Order("posted_date DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, apperr.Internal("failed to list jobs", err)
	}
	return jobs, nil
}
