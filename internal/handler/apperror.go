package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken     = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken     = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}

	ErrForbidden            = &AppError{http.StatusForbidden, "NOT_AUTHORIZED", "Caller is not authorized for this operation"}
	ErrInsufficientFunds    = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient funds"}
	ErrTransferFailed       = &AppError{http.StatusBadGateway, "TRANSFER_FAILED", "Asset transfer failed"}
	ErrProjectInactive      = &AppError{http.StatusUnprocessableEntity, "PROJECT_INACTIVE", "Project is not active"}
	ErrProjectMismatch      = &AppError{http.StatusUnprocessableEntity, "PROJECT_MISMATCH", "Project does not belong to the company"}
	ErrEmployeeInactive     = &AppError{http.StatusUnprocessableEntity, "EMPLOYEE_NOT_ACTIVE", "Recipient is not an active employee of the project"}
	ErrInvalidTimeRange     = &AppError{http.StatusBadRequest, "INVALID_TIME_RANGE", "End time must be after start time"}
	ErrInvalidAmount        = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrNoRecipients         = &AppError{http.StatusBadRequest, "NO_RECIPIENTS", "At least one recipient is required"}
	ErrStreamInactive       = &AppError{http.StatusUnprocessableEntity, "STREAM_INACTIVE", "Stream is not active"}
	ErrStreamPaused         = &AppError{http.StatusUnprocessableEntity, "STREAM_PAUSED", "Stream is paused"}
	ErrNothingToWithdraw    = &AppError{http.StatusUnprocessableEntity, "NOTHING_TO_WITHDRAW", "Nothing to withdraw"}
	ErrReduceBelowWithdrawn = &AppError{http.StatusUnprocessableEntity, "REDUCE_BELOW_WITHDRAWN", "Total amount cannot be reduced below the withdrawn amount"}
	ErrNotRecipient         = &AppError{http.StatusForbidden, "NOT_RECIPIENT", "Caller is not the stream recipient"}
	ErrMoverExists          = &AppError{http.StatusConflict, "MOVER_ALREADY_EXISTS", "Mover is already authorized"}
	ErrVersionConflict      = &AppError{http.StatusConflict, "VERSION_CONFLICT", "Resource was modified concurrently, please retry"}
)
