package errors

import (
	"net/http"

	"github.com/Project-Zedd/rotc-system-final/internal/shared/apperror"
)

var (
	ErrLinkNotFound = apperror.New(
		apperror.CodeNotFound,
		"Duplicate link not found or already reviewed",
		http.StatusNotFound,
	)

	ErrInvalidDecision = apperror.New(
		apperror.CodeInvalidInput,
		"Decision must be either approved or rejected",
		http.StatusBadRequest,
	)
)
