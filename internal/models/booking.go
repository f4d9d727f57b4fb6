package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

type Booking struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID     uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	ContractorID uuid.UUID `gorm:"type:uuid;not null;index" json:"contractor_id"`
	ServiceID    uuid.UUID `gorm:"type:uuid;not null;index" json:"service_id"`

	ScheduledDate   time.Time     `json:"scheduled_date"`
	ScheduledTime   string        `gorm:"type:varchar(5)" json:"scheduled_time"`
	Location        string        `gorm:"type:text;not null" json:"location"`
	AdditionalNotes string        `gorm:"type:text" json:"additional_notes,omitempty"`
	TotalPrice      int64         `gorm:"not null" json:"total_price"`
	Status          BookingStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Client     *User       `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Contractor *Contractor `gorm:"foreignKey:ContractorID" json:"contractor,omitempty"`
	Service    *Service    `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}
