package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mudanzasalegre/Dripio/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

func RespondDomainError(w http.ResponseWriter, err error) {
	var appErr *AppError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		appErr = ErrResourceNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		appErr = ErrForbidden
	case errors.Is(err, domain.ErrInsufficientFunds):
		appErr = ErrInsufficientFunds
	case errors.Is(err, domain.ErrTransferFailed):
		appErr = ErrTransferFailed
	case errors.Is(err, domain.ErrProjectInactive):
		appErr = ErrProjectInactive
	case errors.Is(err, domain.ErrProjectMismatch):
		appErr = ErrProjectMismatch
	case errors.Is(err, domain.ErrEmployeeInactive):
		appErr = ErrEmployeeInactive
	case errors.Is(err, domain.ErrInvalidTimeRange):
		appErr = ErrInvalidTimeRange
	case errors.Is(err, domain.ErrInvalidAmount):
		appErr = ErrInvalidAmount
	case errors.Is(err, domain.ErrNoRecipients):
		appErr = ErrNoRecipients
	case errors.Is(err, domain.ErrStreamInactive):
		appErr = ErrStreamInactive
	case errors.Is(err, domain.ErrStreamPaused):
		appErr = ErrStreamPaused
	case errors.Is(err, domain.ErrNothingToWithdraw):
		appErr = ErrNothingToWithdraw
	case errors.Is(err, domain.ErrReduceBelowWithdrawn):
		appErr = ErrReduceBelowWithdrawn
	case errors.Is(err, domain.ErrNotRecipient):
		appErr = ErrNotRecipient
	case errors.Is(err, domain.ErrMoverExists):
		appErr = ErrMoverExists
	case errors.Is(err, domain.ErrVersionConflict):
		appErr = ErrVersionConflict
	case errors.Is(err, domain.ErrInvalidRequest):
		appErr = ErrInvalidRequest
	default:
		slog.Error("unhandled domain error", "error", err)
		appErr = ErrInternalError
	}

	RespondAppError(w, appErr, nil)
}
