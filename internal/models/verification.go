package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type VerificationStep string

const (
	StepOverview          VerificationStep = "overview"
	StepDocumentUpload    VerificationStep = "document-upload"
	StepFacialRecognition VerificationStep = "facial-recognition"
	StepProcessing        VerificationStep = "processing"
	StepComplete          VerificationStep = "complete"
)

type DocumentType string

const (
	DocumentPassport   DocumentType = "passport"
	DocumentLicense    DocumentType = "license"
	DocumentNationalID DocumentType = "national-id"
)

func (d DocumentType) Valid() bool {
	return d == DocumentPassport || d == DocumentLicense || d == DocumentNationalID
}

// VerificationSession is the per-user state of the identity verification wizard.
type VerificationSession struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	Step     VerificationStep `gorm:"type:varchar(30);not null;default:'overview'" json:"step"`
	Progress int              `gorm:"not null;default:0" json:"progress"` // 0..100

	DocumentType DocumentType `gorm:"type:varchar(20)" json:"document_type,omitempty"`
	DocumentPath string       `gorm:"type:text" json:"-"`
	SelfiePath   string       `gorm:"type:text" json:"-"`

	// Files keeps upload metadata (original name, size, content type) per slot.
	Files datatypes.JSONMap `json:"files,omitempty"`

	Outcome   VerificationStatus `gorm:"type:varchar(20)" json:"outcome,omitempty"`
	LastError string             `gorm:"type:text" json:"last_error,omitempty"`
	Attempts  int                `gorm:"not null;default:0" json:"attempts"`

	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (s *VerificationSession) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Step == "" {
		s.Step = StepOverview
	}
	return
}
