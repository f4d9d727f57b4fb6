// Package accounts handles sign up, login, role selection and account
// deactivation.
package accounts

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
	"github.com/Windi-Fikriyansyah/handygo/internal/utils"
)

const minPasswordLen = 6

type Accounts struct {
	db         *gorm.DB
	jwtSecret  string
	expiresMin int
	log        *slog.Logger
}

func New(db *gorm.DB, jwtSecret string, expiresMin int, log *slog.Logger) *Accounts {
	return &Accounts{db: db, jwtSecret: jwtSecret, expiresMin: expiresMin, log: log.With("component", "accounts")}
}

type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"` // client or contractor; empty defers the choice
}

// Session is a signed token plus the user it was issued for.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (a *Accounts) issue(u *models.User) (*Session, error) {
	token, err := utils.SignJWT(a.jwtSecret, u.ID.String(), string(u.Role), a.expiresMin)
	if err != nil {
		return nil, apperr.Internal("failed to sign token", err)
	}
	return &Session{Token: token, User: u}, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func (a *Accounts) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	role := models.RoleUnset

	errs := apperr.FieldErrors{}
	if name == "" {
		errs.Add("name", "name is required")
	}
	if email == "" {
		errs.Add("email", "email is required")
	} else if !validEmail(email) {
		errs.Add("email", "email is not valid")
	}
	if len(in.Password) < minPasswordLen {
		errs.Add("password", "password must be at least 6 characters")
	}
	if strings.TrimSpace(in.Role) != "" {
		r, ok := models.ParseRole(in.Role)
		if !ok || r == models.RoleAdmin {
			errs.Add("role", "role must be client or contractor")
		} else {
			role = r
		}
	}
	if err := apperr.Validation(errs); err != nil {
		return nil, err
	}

	db := a.db.WithContext(ctx)
	var n int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return nil, apperr.Internal("failed to check email", err)
	}
	if n > 0 {
		return nil, apperr.Conflict(apperr.CodeEmailTaken, "email is already registered")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	u := &models.User{Name: name, Email: email, Password: hash, Role: role, IsActive: true}
	if err := db.Create(u).Error; err != nil {
		if apperr.IsUniqueViolation(err) {
			return nil, apperr.Conflict(apperr.CodeEmailTaken, "email is already registered")
		}
		return nil, apperr.Internal("failed to create user", err)
	}

	a.log.Info("user signed up", "user_id", u.ID, "role", u.Role)
	return a.issue(u)
}

// Login never tells the caller which part was wrong.
func (a *Accounts) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Unauthenticated()
	}

	var u models.User
	if err := a.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthenticated()
		}
		return nil, apperr.Internal("failed to load user", err)
	}
	if !u.IsActive || !utils.CheckPassword(u.Password, password) {
		return nil, apperr.Unauthenticated()
	}
	return a.issue(&u)
}

// Subject loads the user behind a token. Missing and inactive users are
// both reported as invalid credentials.
func (a *Accounts) Subject(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var u models.User
	if err := a.db.WithContext(ctx).First(&u, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthenticated()
		}
		return nil, apperr.Internal("failed to load user", err)
	}
	if !u.IsActive {
		return nil, apperr.Unauthenticated()
	}
	return &u, nil
}

// SelectRole assigns a role to a user who signed up without one. A role
// is set once and never changed.
func (a *Accounts) SelectRole(ctx context.Context, userID uuid.UUID, role string) (*Session, error) {
	r, ok := models.ParseRole(role)
	if !ok || r == models.RoleAdmin {
		return nil, apperr.Invalid("role", "role must be client or contractor")
	}

	db := a.db.WithContext(ctx)
	res := db.Model(&models.User{}).
		Where("id = ? AND role = ?", userID, models.RoleUnset).
		Update("role", r)
	if res.Error != nil {
		return nil, apperr.Internal("failed to set role", res.Error)
	}

	u, err := a.Subject(ctx, userID)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, apperr.Conflict(apperr.CodeRoleAlreadySet, "role has already been selected")
	}

	a.log.Info("role selected", "user_id", userID, "role", r)
	return a.issue(u)
}

func randomSecret(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// UpsertGoogleUser signs in the owner of a verified Google email, creating
// a role-less account on first sight.
func (a *Accounts) UpsertGoogleUser(ctx context.Context, email, name string) (*Session, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" {
		return nil, apperr.Invalid("email", "email not provided by google")
	}

	db := a.db.WithContext(ctx)
	var u models.User
	err := db.Where("email = ?", email).First(&u).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Password is required by the schema but never usable for login.
		hash, err := utils.HashPassword(randomSecret(24))
		if err != nil {
			return nil, apperr.Internal("failed to hash password", err)
		}
		if name == "" {
			name = strings.SplitN(email, "@", 2)[0]
		}
		u = models.User{Name: name, Email: email, Password: hash, Role: models.RoleUnset, IsActive: true}
		if err := db.Create(&u).Error; err != nil {
			return nil, apperr.Internal("failed to create user", err)
		}
		a.log.Info("user created via google", "user_id", u.ID)
	case err != nil:
		return nil, apperr.Internal("failed to load user", err)
	case name != "" && u.Name != name:
		if err := db.Model(&u).Update("name", name).Error; err != nil {
			a.log.Warn("failed to refresh name from google", "user_id", u.ID, "err", err)
		}
	}

	if !u.IsActive {
		return nil, apperr.Unauthenticated()
	}
	return a.issue(&u)
}

// Deactivate disables an account. Users may deactivate themselves; admins
// may deactivate anyone.
func (a *Accounts) Deactivate(ctx context.Context, requestedBy models.Actor, userID uuid.UUID) error {
	if !requestedBy.IsAdmin() && requestedBy.UserID != userID {
		return apperr.Forbidden()
	}
	res := a.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("is_active", false)
	if res.Error != nil {
		return apperr.Internal("failed to deactivate user", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user")
	}
	a.log.Info("user deactivated", "user_id", userID, "by", requestedBy.UserID)
	return nil
}

// EnsureAdmin creates the bootstrap admin account if it does not exist.
func (a *Accounts) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}

	db := a.db.WithContext(ctx)
	var n int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	u := &models.User{Name: "Administrator", Email: email, Password: hash, Role: models.RoleAdmin, IsActive: true}
	if err := db.Create(u).Error; err != nil {
		return err
	}
	a.log.Info("admin account created", "user_id", u.ID)
	return nil
}
