package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrUnauthorized         = errors.New("caller not authorized")
	ErrProjectInactive      = errors.New("project is not active")
	ErrProjectMismatch      = errors.New("project does not belong to company")
	ErrEmployeeInactive     = errors.New("recipient is not an active employee")
	ErrInvalidTimeRange     = errors.New("end time must be after start time")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrNoRecipients         = errors.New("at least one recipient required")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrTransferFailed       = errors.New("asset transfer failed")
	ErrStreamInactive       = errors.New("stream is not active")
	ErrStreamPaused         = errors.New("stream is paused")
	ErrNothingToWithdraw    = errors.New("nothing to withdraw")
	ErrReduceBelowWithdrawn = errors.New("total amount cannot be reduced below withdrawn")
	ErrNotRecipient         = errors.New("caller is not the stream recipient")
	ErrMoverExists          = errors.New("mover already authorized")
	ErrVersionConflict      = errors.New("optimistic lock conflict")
	ErrInvalidRequest       = errors.New("invalid request")
)
