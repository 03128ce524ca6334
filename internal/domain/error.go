package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Settlement errors
	ErrOutOfStock      = errors.New("course inventory exhausted")
	ErrCaptureDeclined = errors.New("provider declined capture")

	// Webhook intake errors
	ErrSignatureInvalid      = errors.New("webhook signature verification failed")
	ErrMissingWebhookHeaders = errors.New("missing webhook transmission headers")
)
