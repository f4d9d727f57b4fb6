package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	// RoleUnset marks an account that signed up without choosing a side yet.
	// Such accounts can only reach the role selection endpoint.
	RoleUnset      Role = "unset"
	RoleClient     Role = "client"
	RoleContractor Role = "contractor"
	RoleAdmin      Role = "admin"
)

// ParseRole accepts the three assignable roles. "unset" is never parsed from input.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleClient, RoleContractor, RoleAdmin:
		return r, true
	}
	return "", false
}

type VerificationStatus string

const (
	VerificationNotStarted VerificationStatus = "not-started"
	VerificationPending    VerificationStatus = "pending"
	VerificationVerified   VerificationStatus = "verified"
	VerificationRejected   VerificationStatus = "rejected"
)

func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationNotStarted, VerificationPending, VerificationVerified, VerificationRejected:
		return true
	}
	return false
}

// internal/models/user.go
type User struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name  string    `gorm:"not null" json:"name"`
	Email string    `gorm:"uniqueIndex;not null" json:"email"`

	Password           string             `gorm:"not null" json:"-"`
	Role               Role               `gorm:"type:varchar(20);not null;index" json:"role"`
	VerificationStatus VerificationStatus `gorm:"type:varchar(20);not null;default:'not-started'" json:"verification_status"`
	IsActive           bool               `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.VerificationStatus == "" {
		u.VerificationStatus = VerificationNotStarted
	}
	return
}

// Actor is the authenticated caller of a state-changing operation.
type Actor struct {
	UserID uuid.UUID
	Role   Role
	Name   string
}

func (u *User) Actor() Actor {
	return Actor{UserID: u.ID, Role: u.Role, Name: u.Name}
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
