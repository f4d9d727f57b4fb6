package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Contractor is the public profile of a user with role contractor.
type Contractor struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	Name         string  `gorm:"type:varchar(120);not null" json:"name"`
	ProfileImage string  `gorm:"type:text" json:"profile_image"`
	Location     string  `gorm:"type:varchar(120);not null;index" json:"location"`
	Rating       float64 `gorm:"not null;default:0" json:"rating"` // 0..5

	ServiceIDs   datatypes.JSONSlice[uuid.UUID] `gorm:"column:service_ids" json:"service_ids"`
	Availability datatypes.JSONSlice[string]    `json:"availability"`

	VerificationStatus VerificationStatus `gorm:"type:varchar(20);not null;default:'not-started'" json:"verification_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Contractor) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.VerificationStatus == "" {
		c.VerificationStatus = VerificationNotStarted
	}
	return
}

// Offers reports whether the contractor lists serviceID among its services.
func (c *Contractor) Offers(serviceID uuid.UUID) bool {
	for _, id := range c.ServiceIDs {
		if id == serviceID {
			return true
		}
	}
	return false
}
