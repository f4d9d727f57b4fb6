package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JobStatus string

const (
	JobStatusOpen      JobStatus = "open"
	JobStatusAssigned  JobStatus = "assigned"
	JobStatusCompleted JobStatus = "completed"
)

func (s JobStatus) Valid() bool {
	return s == JobStatusOpen || s == JobStatusAssigned || s == JobStatusCompleted
}

// Job is a client's work request. AssignedContractorID is set exactly when
// the job leaves open and always names one of its applicants.
type Job struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID   uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	ClientName string    `gorm:"type:varchar(120)" json:"client_name"`

	Title       string    `gorm:"type:varchar(160);not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Category    string    `gorm:"type:varchar(80);not null;index" json:"category"`
	Budget      int64     `gorm:"not null" json:"budget"`
	Location    string    `gorm:"type:varchar(160)" json:"location"`
	Deadline    time.Time `json:"deadline"`

	Status               JobStatus  `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	PostedDate           time.Time  `json:"posted_date"`
	AssignedContractorID *uuid.UUID `gorm:"type:uuid;index" json:"assigned_contractor_id,omitempty"`

	Applications []JobApplication `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"applications"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j *Job) BeforeCreate(tx *gorm.DB) (err error) {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return
}

// JobApplication is a contractor's bid on a Job. The contractor fields are a
// snapshot taken when the application was made.
type JobApplication struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_job_applications_job_contractor" json:"job_id"`
	ContractorID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_job_applications_job_contractor;index" json:"contractor_id"`

	ContractorName     string             `gorm:"type:varchar(120)" json:"contractor_name"`
	ContractorRating   float64            `json:"contractor_rating"`
	ContractorImage    string             `gorm:"type:text" json:"contractor_image"`
	VerificationStatus VerificationStatus `gorm:"type:varchar(20)" json:"verification_status"`

	Proposal    string    `gorm:"type:text;not null" json:"proposal"`
	AppliedDate time.Time `json:"applied_date"`

	CreatedAt time.Time `json:"created_at"`
}

func (a *JobApplication) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}

// HasApplicant reports whether contractorID appears in the loaded applications.
func (j *Job) HasApplicant(contractorID uuid.UUID) bool {
	for _, a := range j.Applications {
		if a.ContractorID == contractorID {
			return true
		}
	}
	return false
}
