package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestKindHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:     http.StatusBadRequest,
		KindAuthentication: http.StatusUnauthorized,
		KindAuthorization:  http.StatusForbidden,
		KindNotFound:       http.StatusNotFound,
		KindConflict:       http.StatusConflict,
		KindProvider:       http.StatusBadGateway,
		KindInternal:       http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.HTTPStatus(), kind.String())
	}
}

func TestValidationEmptyIsNil(t *testing.T) {
	require.NoError(t, Validation(FieldErrors{}))

	errs := FieldErrors{}
	errs.Add("title", "title is required")
	errs.Add("title", "title is too long")
	err := Validation(errs)
	require.Error(t, err)

	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, e.Kind)
	assert.Len(t, e.Fields["title"], 2)
}

func TestFromDB(t *testing.T) {
	err := FromDB(fmt.Errorf("query: %w", gorm.ErrRecordNotFound), "job")
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "job not found", err.Error())

	conflict := Conflict(CodeJobNotOpen, "job is not open")
	assert.Same(t, conflict, FromDB(conflict, "job"))

	boom := errors.New("connection reset")
	wrapped := FromDB(boom, "job")
	assert.Equal(t, KindInternal, KindOf(wrapped))
	assert.ErrorIs(t, wrapped, boom)
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("apply: %w", Conflict(CodeDuplicateApplication, "already applied"))
	assert.True(t, HasCode(err, CodeDuplicateApplication))
	assert.False(t, HasCode(err, CodeJobNotOpen))
	assert.False(t, HasCode(errors.New("plain"), CodeJobNotOpen))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "users_email_key"`)))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: job_applications.job_id")))
	assert.False(t, IsUniqueViolation(errors.New("deadlock detected")))
	assert.False(t, IsUniqueViolation(nil))
}
