package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
)

var activeJobCards = []models.JobCardStatus{models.JobCardPending, models.JobCardInProgress}

// referenced reports whether any row of model matches the condition.
func referenced(tx *gorm.DB, model any, query string, args ...any) (bool, error) {
	var n int64
	if err := tx.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		return false, apperr.Internal("failed to check references", err)
	}
	return n > 0, nil
}

// DeleteContractor removes a profile and its job applications. Profiles with
// bookings, unfinished job cards or an assigned job are kept; deactivate the
// account instead.
func (c *Catalog) DeleteContractor(ctx context.Context, requestedBy models.Actor, id uuid.UUID) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile models.Contractor
		if err := tx.First(&profile, "id = ?", id).Error; err != nil {
			return apperr.FromDB(err, "contractor")
		}
		if !requestedBy.IsAdmin() && profile.UserID != requestedBy.UserID {
			return apperr.Forbidden()
		}

		checks := []struct {
			model any
			query string
			args  []any
		}{
			{&models.Booking{}, "contractor_id = ?", []any{id}},
			{&models.JobCard{}, "contractor_id = ? AND status IN ?", []any{id, activeJobCards}},
			{&models.Job{}, "assigned_contractor_id = ? AND status = ?", []any{id, models.JobStatusAssigned}},
		}
		for _, chk := range checks {
			used, err := referenced(tx, chk.model, chk.query, chk.args...)
			if err != nil {
				return err
			}
			if used {
				return apperr.Conflict(apperr.CodeInUse, "contractor has bookings or work in progress")
			}
		}

		if err := tx.Where("contractor_id = ?", id).Delete(&models.JobApplication{}).Error; err != nil {
			return apperr.Internal("failed to delete applications", err)
		}
		if err := tx.Delete(&profile).Error; err != nil {
			return apperr.Internal("failed to delete contractor profile", err)
		}
		c.log.Info("contractor deleted", "contractor_id", id, "by", requestedBy.UserID)
		return nil
	})
}

// DeleteService removes a catalog entry and drops it from every contractor's
// offer list. A service still referenced by a booking or an unfinished job
// card cannot be deleted.
func (c *Catalog) DeleteService(ctx context.Context, requestedBy models.Actor, id uuid.UUID) error {
	if !requestedBy.IsAdmin() {
		return apperr.Forbidden()
	}
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var svc models.Service
		if err := tx.First(&svc, "id = ?", id).Error; err != nil {
			return apperr.FromDB(err, "service")
		}

		used, err := referenced(tx, &models.Booking{}, "service_id = ?", id)
		if err != nil {
			return err
		}
		if !used {
			used, err = referenced(tx, &models.JobCard{}, "service_id = ? AND status IN ?", id, activeJobCards)
			if err != nil {
				return err
			}
		}
		if used {
			return apperr.Conflict(apperr.CodeInUse, "service is referenced by a booking or an unfinished job card")
		}

		var profiles []models.Contractor
		if err := tx.Find(&profiles).Error; err != nil {
			return apperr.Internal("failed to load contractor profiles", err)
		}
		for i := range profiles {
			p := &profiles[i]
			if !p.Offers(id) {
				continue
			}
			kept := p.ServiceIDs[:0]
			for _, sid := range p.ServiceIDs {
				if sid != id {
					kept = append(kept, sid)
				}
			}
			p.ServiceIDs = kept
			if err := tx.Save(p).Error; err != nil {
				return apperr.Internal("failed to update contractor profile", err)
			}
		}

		if err := tx.Delete(&svc).Error; err != nil {
			return apperr.Internal("failed to delete service", err)
		}
		c.log.Info("service deleted", "service_id", id, "by", requestedBy.UserID)
		return nil
	})
}
