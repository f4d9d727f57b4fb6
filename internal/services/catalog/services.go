package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
)

type ServiceInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       int64  `json:"price"`
	Duration    string `json:"duration"`
}

func (in ServiceInput) validate() error {
	errs := apperr.FieldErrors{}
	if strings.TrimSpace(in.Name) == "" {
		errs.Add("name", "name is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		errs.Add("description", "description is required")
	}
	if strings.TrimSpace(in.Category) == "" {
		errs.Add("category", "category is required")
	}
	if in.Price <= 0 {
		errs.Add("price", "price must be greater than zero")
	}
	return apperr.Validation(errs)
}

func (in ServiceInput) apply(s *models.Service) {
	s.Name = strings.TrimSpace(in.Name)
	s.Description = strings.TrimSpace(in.Description)
	s.Category = strings.TrimSpace(in.Category)
	s.Price = in.Price
	s.Duration = strings.TrimSpace(in.Duration)
}

func (c *Catalog) CreateService(ctx context.Context, requestedBy models.Actor, in ServiceInput) (*models.Service, error) {
	if !requestedBy.IsAdmin() {
		return nil, apperr.Forbidden()
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var svc models.Service
	in.apply(&svc)
	if err := c.db.WithContext(ctx).Create(&svc).Error; err != nil {
		return nil, apperr.Internal("failed to create service", err)
	}
	c.log.Info("service created", "service_id", svc.ID, "name", svc.Name)
	return &svc, nil
}

// UpdateService edits a catalog entry. Existing job cards and bookings keep
// the price they were created with.
func (c *Catalog) UpdateService(ctx context.Context, requestedBy models.Actor, id uuid.UUID, in ServiceInput) (*models.Service, error) {
	if !requestedBy.IsAdmin() {
		return nil, apperr.Forbidden()
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	db := c.db.WithContext(ctx)
	var svc models.Service
	if err := db.First(&svc, "id = ?", id).Error; err != nil {
		return nil, apperr.FromDB(err, "service")
	}
	in.apply(&svc)
	if err := db.Save(&svc).Error; err != nil {
		return nil, apperr.Internal("failed to update service", err)
	}
	return &svc, nil
}

func (c *Catalog) GetService(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	var svc models.Service
	if err := c.db.WithContext(ctx).First(&svc, "id = ?", id).Error; err != nil {
		return nil, apperr.FromDB(err, "service")
	}
	return &svc, nil
}

func (c *Catalog) ListServices(ctx context.Context, category string) ([]models.Service, error) {
	q := c.db.WithContext(ctx).Model(&models.Service{})
	if category = strings.TrimSpace(category); category != "" {
		q = q.Where("category = ?", category)
	}
	services := []models.Service{}
	if err := q.Order("name ASC").Find(&services).Error; err != nil {
		return nil, apperr.Internal("failed to list services", err)
	}
	return services, nil
}

// Categories lists the distinct categories in the catalog.
func (c *Catalog) Categories(ctx context.Context) ([]string, error) {
	categories := []string{}
	err := c.db.WithContext(ctx).
		Model(&models.Service{}).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).
		Error
	if err != nil {
		return nil, apperr.Internal("failed to list categories", err)
	}
	return categories, nil
}
