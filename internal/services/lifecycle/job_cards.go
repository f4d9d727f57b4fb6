package lifecycle

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
)

type CreateJobCardInput struct {
	ContractorID uuid.UUID `json:"contractor_id"`
	ServiceID    uuid.UUID `json:"service_id"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	Address      string    `json:"address"`
	Notes        string    `json:"notes"`
}

// CreateJobCard schedules work for clientID. The card's cost is the service
// price at this moment and is never recomputed.
func (s *Service) CreateJobCard(ctx context.Context, clientID uuid.UUID, in CreateJobCardInput) (*models.JobCard, error) {
	errs := apperr.FieldErrors{}
	if in.ContractorID == uuid.Nil {
		errs.Add("contractor_id", "contractor_id is required")
	}
	if in.ServiceID == uuid.Nil {
		errs.Add("service_id", "service_id is required")
	}
	day := s.checkDay(errs, "date", in.Date)
	clock := checkClock(errs, "time", in.Time)
	address := strings.TrimSpace(in.Address)
	if address == "" {
		errs.Add("address", "address is required")
	}
	if err := apperr.Validation(errs); err != nil {
		return nil, err
	}

	var (
		card       models.JobCard
		contractor *models.Contractor
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		client, err := loadUser(tx, clientID)
		if err != nil {
			return err
		}
		if client.Role != models.RoleClient || !client.IsActive {
			return apperr.Forbidden()
		}
		if contractor, err = loadContractor(tx, in.ContractorID); err != nil {
			return err
		}
		svc, err := loadService(tx, in.ServiceID)
		if err != nil {
			return err
		}

		card = models.JobCard{
			ClientID:       client.ID,
			ContractorID:   contractor.ID,
			ServiceID:      svc.ID,
			ClientName:     client.Name,
			ContractorName: contractor.Name,
			ServiceName:    svc.Name,
			Date:           day,
			Time:           clock,
			Address:        address,
			Status:         models.JobCardPending,
			Cost:           svc.Price,
			Notes:          strings.TrimSpace(in.Notes),
		}
		if err := tx.Create(&card).Error; err != nil {
			return apperr.Internal("failed to create job card", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("job card created", "job_card_id", card.ID, "client_id", clientID, "cost", card.Cost)
	s.notifier.Notify(ctx, []uuid.UUID{contractor.UserID}, EventJobCardCreated, card)
	return &card, nil
}

// AdvanceJobCardStatus moves a card one step forward. Only the card's
// contractor or an admin may do so.
func (s *Service) AdvanceJobCardStatus(ctx context.Context, cardID uuid.UUID, requestedBy models.Actor, to models.JobCardStatus) (*models.JobCard, error) {
	if !to.Valid() {
		return nil, apperr.Invalid("status", "status must be pending, in-progress or completed")
	}

	var (
		card       models.JobCard
		from       models.JobCardStatus
		contractor *models.Contractor
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&card, "id = ?", cardID).Error; err != nil {
			return apperr.FromDB(err, "job card")
		}
		from = card.Status

		if JobCardRank(to) <= JobCardRank(from) {
			return s.conflict(apperr.CodeIllegalTransition,
				"cannot move job card from "+string(from)+" to "+string(to))
		}

		var err error
		if contractor, err = loadContractor(tx, card.ContractorID); err != nil {
			return err
		}
		if !requestedBy.IsAdmin() && contractor.UserID != requestedBy.UserID {
			return apperr.Forbidden()
		}
		if !CanAdvanceJobCard(from, to) {
			return s.conflict(apperr.CodeIllegalTransition,
				"cannot move job card from "+string(from)+" to "+string(to))
		}

		now := s.now()
		res := tx.Model(&models.JobCard{}).
			Where("id = ? AND status = ?", cardID, from).
			Updates(map[string]any{"status": to, "updated_at": now})
		if res.Error != nil {
			return apperr.Internal("failed to update job card", res.Error)
		}
		if res.RowsAffected == 0 {
			return s.conflict(apperr.CodeIllegalTransition, "job card status changed concurrently")
		}
		card.Status = to
		card.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.transitioned("job_card", cardID, string(from), string(to), requestedBy)
	s.notifier.Notify(ctx, []uuid.UUID{card.ClientID, contractor.UserID}, EventJobCardStatus, card)
	return &card, nil
}

// GetJobCard returns a card visible to requestedBy: a participant or an admin.
func (s *Service) GetJobCard(ctx context.Context, cardID uuid.UUID, requestedBy models.Actor) (*models.JobCard, error) {
	db := s.db.WithContext(ctx)
	var card models.JobCard
	if err := db.First(&card, "id = ?", cardID).Error; err != nil {
		return nil, apperr.FromDB(err, "job card")
	}
	if requestedBy.IsAdmin() || card.ClientID == requestedBy.UserID {
		return &card, nil
	}
	c, err := contractorOf(db, requestedBy)
	if err != nil {
		return nil, err
	}
	if c == nil || c.ID != card.ContractorID {
		return nil, apperr.Forbidden()
	}
	return &card, nil
}

// JobCardsFor lists the cards requestedBy takes part in; admins see all.
func (s *Service) JobCardsFor(ctx context.Context, requestedBy models.Actor) ([]models.JobCard, error) {
	db := s.db.WithContext(ctx)
	cards := []models.JobCard{}
	q := db.Order("date ASC, time ASC")

	switch requestedBy.Role {
	case models.RoleAdmin:
	case models.RoleClient:
		q = q.Where("client_id = ?", requestedBy.UserID)
	case models.RoleContractor:
		c, err := contractorOf(db, requestedBy)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return cards, nil
		}
		q = q.Where("contractor_id = ?", c.ID)
	default:
		return nil, apperr.Forbidden()
	}

	if err := q.Find(&cards).Error; err != nil {
		return nil, apperr.Internal("failed to list job cards", err)
	}
	return cards, nil
}
