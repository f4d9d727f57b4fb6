package lifecycle

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
)

type CreateBookingInput struct {
	ContractorID    uuid.UUID `json:"contractor_id"`
	ServiceID       uuid.UUID `json:"service_id"`
	ScheduledDate   string    `json:"scheduled_date"`
	ScheduledTime   string    `json:"scheduled_time"`
	Location        string    `json:"location"`
	AdditionalNotes string    `json:"additional_notes"`
}

func withBookingRelations(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Client").Preload("Contractor").Preload("Service")
}

// CreateBooking books a service the contractor offers. TotalPrice is frozen
// from the service price.
func (s *Service) CreateBooking(ctx context.Context, clientID uuid.UUID, in CreateBookingInput) (*models.Booking, error) {
	errs := apperr.FieldErrors{}
	if in.ContractorID == uuid.Nil {
		errs.Add("contractor_id", "contractor_id is required")
	}
	if in.ServiceID == uuid.Nil {
		errs.Add("service_id", "service_id is required")
	}
	day := s.checkDay(errs, "scheduled_date", in.ScheduledDate)
	clock := checkClock(errs, "scheduled_time", in.ScheduledTime)
	location := strings.TrimSpace(in.Location)
	if location == "" {
		errs.Add("location", "location is required")
	}
	if err := apperr.Validation(errs); err != nil {
		return nil, err
	}

	var (
		booking    models.Booking
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
		if !contractor.Offers(svc.ID) {
			return apperr.Invalid("service_id", "contractor does not offer this service")
		}

		booking = models.Booking{
			ClientID:        client.ID,
			ContractorID:    contractor.ID,
			ServiceID:       svc.ID,
			ScheduledDate:   day,
			ScheduledTime:   clock,
			Location:        location,
			AdditionalNotes: strings.TrimSpace(in.AdditionalNotes),
			TotalPrice:      svc.Price,
			Status:          models.BookingPending,
		}
		if err := tx.Create(&booking).Error; err != nil {
			return apperr.Internal("failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("booking created", "booking_id", booking.ID, "client_id", clientID, "total_price", booking.TotalPrice)
	out, err := s.loadBooking(s.db.WithContext(ctx), booking.ID)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, []uuid.UUID{contractor.UserID}, EventBookingCreated, out)
	return out, nil
}

// AdvanceBookingStatus applies a booking transition. The contractor or an
// admin confirms and completes; the client may additionally cancel.
func (s *Service) AdvanceBookingStatus(ctx context.Context, bookingID uuid.UUID, requestedBy models.Actor, to models.BookingStatus) (*models.Booking, error) {
	if !to.Valid() {
		return nil, apperr.Invalid("status", "status must be pending, confirmed, completed or cancelled")
	}

	var (
		booking    models.Booking
		from       models.BookingStatus
		contractor *models.Contractor
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&booking, "id = ?", bookingID).Error; err != nil {
			return apperr.FromDB(err, "booking")
		}
		from = booking.Status
		if IsTerminalBooking(from) || !CanAdvanceBooking(from, to) {
			return s.conflict(apperr.CodeIllegalTransition,
				"cannot move booking from "+string(from)+" to "+string(to))
		}

		var err error
		if contractor, err = loadContractor(tx, booking.ContractorID); err != nil {
			return err
		}
		isContractor := contractor.UserID == requestedBy.UserID
		isClient := booking.ClientID == requestedBy.UserID

		allowed := requestedBy.IsAdmin() || isContractor
		if to == models.BookingCancelled || to == models.BookingPending {
			allowed = allowed || isClient
		}
		if !allowed {
			return apperr.Forbidden()
		}

		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingID, from).
			Updates(map[string]any{"status": to, "updated_at": s.now()})
		if res.Error != nil {
			return apperr.Internal("failed to update booking", res.Error)
		}
		if res.RowsAffected == 0 {
			return s.conflict(apperr.CodeIllegalTransition, "booking status changed concurrently")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.transitioned("booking", bookingID, string(from), string(to), requestedBy)
	out, err := s.loadBooking(s.db.WithContext(ctx), bookingID)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, []uuid.UUID{booking.ClientID, contractor.UserID}, EventBookingStatus, out)
	return out, nil
}

// CancelBooking is only possible from pending or confirmed.
func (s *Service) CancelBooking(ctx context.Context, bookingID uuid.UUID, requestedBy models.Actor) (*models.Booking, error) {
	return s.AdvanceBookingStatus(ctx, bookingID, requestedBy, models.BookingCancelled)
}

func (s *Service) loadBooking(tx *gorm.DB, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	if err := withBookingRelations(tx).First(&b, "id = ?", id).Error; err != nil {
		return nil, apperr.FromDB(err, "booking")
	}
	return &b, nil
}

func (s *Service) GetBooking(ctx context.Context, bookingID uuid.UUID, requestedBy models.Actor) (*models.Booking, error) {
	db := s.db.WithContext(ctx)
	b, err := s.loadBooking(db, bookingID)
	if err != nil {
		return nil, err
	}
	if requestedBy.IsAdmin() || b.ClientID == requestedBy.UserID {
		return b, nil
	}
	if b.Contractor != nil && b.Contractor.UserID == requestedBy.UserID {
		return b, nil
	}
	return nil, apperr.Forbidden()
}

// ListBookings returns every booking; admin only.
func (s *Service) ListBookings(ctx context.Context, requestedBy models.Actor) ([]models.Booking, error) {
	if !requestedBy.IsAdmin() {
		return nil, apperr.Forbidden()
	}
	bookings := []models.Booking{}
	if err := withBookingRelations(s.db.WithContext(ctx)).Order("scheduled_date DESC").Find(&bookings).Error; err != nil {
		return nil, apperr.Internal("failed to list bookings", err)
	}
	return bookings, nil
}

// BookingsFor lists bookings where requestedBy is the client or contractor.
func (s *Service) BookingsFor(ctx context.Context, requestedBy models.Actor) ([]models.Booking, error) {
	db := s.db.WithContext(ctx)
	bookings := []models.Booking{}
	q := withBookingRelations(db).Order("scheduled_date ASC, scheduled_time ASC")

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
			return bookings, nil
		}
		q = q.Where("contractor_id = ?", c.ID)
	default:
		return nil, apperr.Forbidden()
	}

	if err := q.Find(&bookings).Error; err != nil {
		return nil, apperr.Internal("failed to list bookings", err)
	}
	return bookings, nil
}
