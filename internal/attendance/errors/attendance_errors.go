package errors

import (
	"net/http"

	"github.com/Project-Zedd/rotc-system-final/internal/shared/apperror"
)

var (
	ErrRecordNotFound = apperror.New(
		apperror.CodeNotFound,
		"Attendance record not found",
		http.StatusNotFound,
	)

	ErrAlreadyTimedIn = apperror.New(
		apperror.CodeConflict,
		"Time-in already recorded for today",
		http.StatusConflict,
	)

	ErrNoTimeInRecord = apperror.New(
		apperror.CodeInvalidState,
		"No time-in record found for today",
		http.StatusBadRequest,
	)

	ErrAlreadyTimedOut = apperror.New(
		apperror.CodeConflict,
		"Time-out already recorded for today",
		http.StatusConflict,
	)

	ErrScannerDisabled = apperror.New(
		apperror.CodeInvalidState,
		"Scanner is currently disabled",
		http.StatusForbidden,
	)

	ErrCooldownActive = apperror.New(
		apperror.CodeConflict,
		"Scan cooldown is still active for this cadet",
		http.StatusConflict,
	)

	ErrCadetNotFound = apperror.New(
		apperror.CodeNotFound,
		"Cadet not found",
		http.StatusNotFound,
	)
)
