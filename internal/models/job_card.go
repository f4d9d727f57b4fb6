package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JobCardStatus string

const (
	JobCardPending    JobCardStatus = "pending"
	JobCardInProgress JobCardStatus = "in-progress"
	JobCardCompleted  JobCardStatus = "completed"
)

func (s JobCardStatus) Valid() bool {
	return s == JobCardPending || s == JobCardInProgress || s == JobCardCompleted
}

// JobCard is a scheduled unit of work between one client and one contractor.
// Cost is copied from the service price on creation and never recomputed.
type JobCard struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID     uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	ContractorID uuid.UUID `gorm:"type:uuid;not null;index" json:"contractor_id"`
	ServiceID    uuid.UUID `gorm:"type:uuid;not null;index" json:"service_id"`

	ClientName     string `gorm:"type:varchar(120)" json:"client_name"`
	ContractorName string `gorm:"type:varchar(120)" json:"contractor_name"`
	ServiceName    string `gorm:"type:varchar(120)" json:"service_name"`

	Date    time.Time     `json:"date"`
	Time    string        `gorm:"type:varchar(5)" json:"time"` // HH:MM
	Address string        `gorm:"type:text;not null" json:"address"`
	Status  JobCardStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Cost    int64         `gorm:"not null" json:"cost"`
	Notes   string        `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j *JobCard) BeforeCreate(tx *gorm.DB) (err error) {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return
}
