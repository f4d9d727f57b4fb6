// Package apperr is the error taxonomy shared by services and the HTTP layer.
package apperr

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindAuthorization
	KindAuthentication
	KindConflict
	KindProvider
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAuthorization:
		return "authorization"
	case KindAuthentication:
		return "authentication"
	case KindConflict:
		return "conflict"
	case KindProvider:
		return "provider"
	}
	return "internal"
}

// HTTPStatus maps a kind to the status code the API answers with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindProvider:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Conflict codes are part of the API contract; clients switch on them.
const (
	CodeDuplicateApplication   = "duplicate_application"
	CodeDuplicateProfile       = "duplicate_profile"
	CodeJobNotOpen             = "job_not_open"
	CodeContractorNotApplicant = "contractor_not_applicant"
	CodeIllegalTransition      = "illegal_transition"
	CodeAlreadyInProgress      = "already_in_progress"
	CodeEmailTaken             = "email_taken"
	CodeRoleAlreadySet         = "role_already_set"
	CodeInUse                  = "in_use"
)

type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  FieldErrors
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation returns nil when fields is empty so callers can write
// `if err := apperr.Validation(errs); err != nil`.
func Validation(fields FieldErrors) error {
	if len(fields) == 0 {
		return nil
	}
	return &Error{Kind: KindValidation, Message: "validation error", Fields: fields}
}

// Invalid is a single-field validation error.
func Invalid(field, msg string) error {
	return &Error{Kind: KindValidation, Message: "validation error", Fields: FieldErrors{field: {msg}}}
}

func NotFound(entity string) error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

func Forbidden() error {
	return &Error{Kind: KindAuthorization, Message: "not authorized"}
}

func Unauthenticated() error {
	return &Error{Kind: KindAuthentication, Message: "invalid credentials"}
}

func Conflict(code, msg string) error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

func Provider(err error) error {
	return &Error{Kind: KindProvider, Message: "verification provider failed", Err: err}
}

func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// As unwraps err into an *Error.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// HasCode reports whether err carries the given conflict code.
func HasCode(err error, code string) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

// FromDB translates storage errors: missing rows become NotFound(entity),
// anything else is wrapped as internal.
func FromDB(err error, entity string) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(entity)
	}
	return Internal("failed to load "+entity, err)
}

// IsUniqueViolation covers both translated gorm errors and raw driver messages
// (postgres "duplicate key value", sqlite "UNIQUE constraint failed").
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "unique constraint")
}
