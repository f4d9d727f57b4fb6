// Package catalog manages contractor profiles and the service catalog.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
)

type Catalog struct {
	db  *gorm.DB
	log *slog.Logger
}

func New(db *gorm.DB, log *slog.Logger) *Catalog {
	return &Catalog{db: db, log: log.With("component", "catalog")}
}

type ContractorInput struct {
	Name         string      `json:"name"`
	ProfileImage string      `json:"profile_image"`
	Location     string      `json:"location"`
	ServiceIDs   []uuid.UUID `json:"service_ids"`
	Availability []string    `json:"availability"`
}

type ContractorFilter struct {
	ServiceID uuid.UUID
	Location  string
}

// checkServices adds a field error for every id with no catalog entry.
func checkServices(tx *gorm.DB, errs apperr.FieldErrors, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	var found []uuid.UUID
	if err := tx.Model(&models.Service{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return apperr.Internal("failed to check services", err)
	}
	known := make(map[uuid.UUID]bool, len(found))
	for _, id := range found {
		known[id] = true
	}
	for _, id := range ids {
		if !known[id] {
			errs.Add("service_ids", "unknown service "+id.String())
		}
	}
	return nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func (in ContractorInput) validate(tx *gorm.DB) (apperr.FieldErrors, error) {
	errs := apperr.FieldErrors{}
	if strings.TrimSpace(in.Location) == "" {
		errs.Add("location", "location is required")
	}
	if err := checkServices(tx, errs, in.ServiceIDs); err != nil {
		return nil, err
	}
	return errs, nil
}

// CreateContractor creates the caller's contractor profile. A user has at
// most one profile.
func (c *Catalog) CreateContractor(ctx context.Context, requestedBy models.Actor, in ContractorInput) (*models.Contractor, error) {
	if requestedBy.Role != models.RoleContractor {
		return nil, apperr.Forbidden()
	}

	var profile models.Contractor
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		errs, err := in.validate(tx)
		if err != nil {
			return err
		}
		if err := apperr.Validation(errs); err != nil {
			return err
		}

		var u models.User
		if err := tx.First(&u, "id = ?", requestedBy.UserID).Error; err != nil {
			return apperr.FromDB(err, "user")
		}

		var n int64
		if err := tx.Model(&models.Contractor{}).Where("user_id = ?", u.ID).Count(&n).Error; err != nil {
			return apperr.Internal("failed to check profile", err)
		}
		if n > 0 {
			return apperr.Conflict(apperr.CodeDuplicateProfile, "contractor profile already exists")
		}

		name := strings.TrimSpace(in.Name)
		if name == "" {
			name = u.Name
		}
		profile = models.Contractor{
			UserID:             u.ID,
			Name:               name,
			ProfileImage:       strings.TrimSpace(in.ProfileImage),
			Location:           strings.TrimSpace(in.Location),
			ServiceIDs:         dedupe(in.ServiceIDs),
			Availability:       cleanTags(in.Availability),
			VerificationStatus: u.VerificationStatus,
		}
		if err := tx.Create(&profile).Error; err != nil {
			if apperr.IsUniqueViolation(err) {
				return apperr.Conflict(apperr.CodeDuplicateProfile, "contractor profile already exists")
			}
			return apperr.Internal("failed to create contractor profile", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log.Info("contractor profile created", "contractor_id", profile.ID, "user_id", profile.UserID)
	return &profile, nil
}

// UpdateContractor edits profile fields. Rating and verification status are
// not editable here.
func (c *Catalog) UpdateContractor(ctx context.Context, requestedBy models.Actor, id uuid.UUID, in ContractorInput) (*models.Contractor, error) {
	var profile models.Contractor
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&profile, "id = ?", id).Error; err != nil {
			return apperr.FromDB(err, "contractor")
		}
		if !requestedBy.IsAdmin() && profile.UserID != requestedBy.UserID {
			return apperr.Forbidden()
		}

		errs, err := in.validate(tx)
		if err != nil {
			return err
		}
		if err := apperr.Validation(errs); err != nil {
			return err
		}

		if name := strings.TrimSpace(in.Name); name != "" {
			profile.Name = name
		}
		profile.ProfileImage = strings.TrimSpace(in.ProfileImage)
		profile.Location = strings.TrimSpace(in.Location)
		profile.ServiceIDs = dedupe(in.ServiceIDs)
		profile.Availability = cleanTags(in.Availability)
		if err := tx.Save(&profile).Error; err != nil {
			return apperr.Internal("failed to update contractor profile", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// SetContractorVerification is the admin override of a profile's badge.
func (c *Catalog) SetContractorVerification(ctx context.Context, requestedBy models.Actor, id uuid.UUID, status models.VerificationStatus) (*models.Contractor, error) {
	if !requestedBy.IsAdmin() {
		return nil, apperr.Forbidden()
	}
	if !status.Valid() {
		return nil, apperr.Invalid("verification_status", "verification_status must be not-started, pending, verified or rejected")
	}

	db := c.db.WithContext(ctx)
	var profile models.Contractor
	if err := db.First(&profile, "id = ?", id).Error; err != nil {
		return nil, apperr.FromDB(err, "contractor")
	}
	if err := db.Model(&profile).Update("verification_status", status).Error; err != nil {
		return nil, apperr.Internal("failed to update contractor", err)
	}
	profile.VerificationStatus = status

	c.log.Info("contractor verification set", "contractor_id", id, "status", status, "admin", requestedBy.UserID)
	return &profile, nil
}

func (c *Catalog) GetContractor(ctx context.Context, id uuid.UUID) (*models.Contractor, error) {
	var profile models.Contractor
	if err := c.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, apperr.FromDB(err, "contractor")
	}
	return &profile, nil
}

// ContractorForUser returns the profile owned by userID.
func (c *Catalog) ContractorForUser(ctx context.Context, userID uuid.UUID) (*models.Contractor, error) {
	var profile models.Contractor
	err := c.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("contractor profile")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load contractor profile", err)
	}
	return &profile, nil
}

func (c *Catalog) ListContractors(ctx context.Context, f ContractorFilter) ([]models.Contractor, error) {
	q := c.db.WithContext(ctx).Model(&models.Contractor{})
	if loc := strings.TrimSpace(f.Location); loc != "" {
		q = q.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(loc)+"%")
	}

	var all []models.Contractor
	if err := q.Order("rating DESC, name ASC").Find(&all).Error; err != nil {
		return nil, apperr.Internal("failed to list contractors", err)
	}

	// service_ids is a JSON column; filter in memory to stay portable.
	out := make([]models.Contractor, 0, len(all))
	for i := range all {
		if f.ServiceID == uuid.Nil || all[i].Offers(f.ServiceID) {
			out = append(out, all[i])
		}
	}
	return out, nil
}
