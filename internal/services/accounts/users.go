package accounts

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
	"github.com/Windi-Fikriyansyah/handygo/internal/utils"
)

// ProfileInput is a partial update; nil fields are left unchanged.
type ProfileInput struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// ListUsers returns every account, oldest first. Admin only.
func (a *Accounts) ListUsers(ctx context.Context, requestedBy models.Actor) ([]models.User, error) {
	if !requestedBy.IsAdmin() {
		return nil, apperr.Forbidden()
	}
	users := []models.User{}
	if err := a.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, apperr.Internal("failed to list users", err)
	}
	return users, nil
}

// GetUser is visible to the account owner and admins.
func (a *Accounts) GetUser(ctx context.Context, requestedBy models.Actor, userID uuid.UUID) (*models.User, error) {
	if !requestedBy.IsAdmin() && requestedBy.UserID != userID {
		return nil, apperr.Forbidden()
	}
	var u models.User
	if err := a.db.WithContext(ctx).First(&u, "id = ?", userID).Error; err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	return &u, nil
}

// UpdateProfile changes name, email or password. Only the owner may edit
// their own profile; role and activation have their own operations.
func (a *Accounts) UpdateProfile(ctx context.Context, requestedBy models.Actor, userID uuid.UUID, in ProfileInput) (*models.User, error) {
	if requestedBy.UserID != userID {
		return nil, apperr.Forbidden()
	}

	updates := map[string]any{}
	errs := apperr.FieldErrors{}
	if in.Name != nil {
		if name := strings.TrimSpace(*in.Name); name == "" {
			errs.Add("name", "name is required")
		} else {
			updates["name"] = name
		}
	}
	if in.Email != nil {
		if email := normalizeEmail(*in.Email); !validEmail(email) {
			errs.Add("email", "email is not valid")
		} else {
			updates["email"] = email
		}
	}
	if in.Password != nil && len(*in.Password) < minPasswordLen {
		errs.Add("password", "password must be at least 6 characters")
	}
	if err := apperr.Validation(errs); err != nil {
		return nil, err
	}
	if in.Password != nil {
		hash, err := utils.HashPassword(*in.Password)
		if err != nil {
			return nil, apperr.Internal("failed to hash password", err)
		}
		updates["password"] = hash
	}

	db := a.db.WithContext(ctx)
	var u models.User
	if err := db.First(&u, "id = ?", userID).Error; err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	if email, ok := updates["email"].(string); ok && email != u.Email {
		var n int64
		if err := db.Model(&models.User{}).Where("email = ? AND id <> ?", email, userID).Count(&n).Error; err != nil {
			return nil, apperr.Internal("failed to check email", err)
		}
		if n > 0 {
			return nil, apperr.Conflict(apperr.CodeEmailTaken, "email is already registered")
		}
	}
	if len(updates) == 0 {
		return &u, nil
	}

	if err := db.Model(&u).Updates(updates).Error; err != nil {
		if apperr.IsUniqueViolation(err) {
			return nil, apperr.Conflict(apperr.CodeEmailTaken, "email is already registered")
		}
		return nil, apperr.Internal("failed to update user", err)
	}
	if err := db.First(&u, "id = ?", userID).Error; err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	a.log.Info("profile updated", "user_id", userID)
	return &u, nil
}
