package apperror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithDetails_LeavesSentinelUntouched(t *testing.T) {
	details := map[string]string{"field": "device_id", "rule": "required"}

	withDetails := ErrInvalidInput.WithDetails(details)
	assert.Equal(t, details, withDetails.Details)
	assert.Nil(t, ErrInvalidInput.Details)

	// The copy still matches the sentinel for errors.Is checks.
	assert.Equal(t, ErrInvalidInput.Code, withDetails.Code)
	assert.Equal(t, ErrInvalidInput.HTTPStatus, withDetails.HTTPStatus)
}

func TestToHTTP_CarriesDetails(t *testing.T) {
	details := map[string]string{"field": "student_number", "rule": "max"}
	err := InvalidField("Student Number").WithDetails(details)

	httpErr := ToHTTP(err)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Equal(t, CodeInvalidInput, httpErr.Code)
	assert.Equal(t, details, httpErr.Details)
}

func TestToHTTP_UnknownErrorIsOpaque(t *testing.T) {
	httpErr := ToHTTP(errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, httpErr.Status)
	assert.Equal(t, CodeInternalError, httpErr.Code)
	assert.Nil(t, httpErr.Details)
}
