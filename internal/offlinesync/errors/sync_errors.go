package errors

import (
	"net/http"

	"github.com/Project-Zedd/rotc-system-final/internal/shared/apperror"
)

var (
	ErrItemNotFound = apperror.New(
		apperror.CodeNotFound,
		"Sync queue item not found",
		http.StatusNotFound,
	)

	ErrAlreadyProcessing = apperror.New(
		apperror.CodeInvalidState,
		"Sync queue item is already being processed",
		http.StatusConflict,
	)

	ErrAlreadyProcessed = apperror.New(
		apperror.CodeInvalidState,
		"Sync queue item has already been processed",
		http.StatusConflict,
	)

	ErrDecryptionFailed = apperror.New(
		apperror.CodeDecryptionFailed,
		"Sync payload could not be decrypted",
		http.StatusUnprocessableEntity,
	)

	ErrMalformedPayload = apperror.New(
		apperror.CodeInvalidInput,
		"Sync payload is not a valid scan batch",
		http.StatusUnprocessableEntity,
	)

	ErrEmptyPayload = apperror.New(
		apperror.CodeInvalidInput,
		"Sync payload is required",
		http.StatusBadRequest,
	)
)
