package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is a catalog entry a contractor can be booked for.
type Service struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(120);not null" json:"name"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Category    string    `gorm:"type:varchar(80);not null;index" json:"category"`
	Price       int64     `gorm:"not null" json:"price"`
	Duration    string    `gorm:"type:varchar(60)" json:"duration"` // free text, e.g. "1-2 hours"

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Service) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}
