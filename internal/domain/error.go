package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrAccountNotFound      = fmt.Errorf("account: %w", ErrNotFound)
	ErrInvoiceNotFound      = fmt.Errorf("invoice: %w", ErrNotFound)
	ErrAlreadyExists        = errors.New("entity already exists")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrUnauthorized         = errors.New("not allowed to perform this operation")
	ErrRateLimited          = errors.New("too many requests")
	ErrInvalidExecContext   = errors.New("invalid execution context")
	ErrReadDatabaseRow      = errors.New("failed to read database row")
	ErrOperationFailed      = errors.New("storage operation failed")
	ErrLockNotAcquired      = errors.New("lock is held by another process")
	ErrNotificationDispatch = errors.New("notification dispatch failed")

	// Billing lifecycle
	ErrInvalidPlanTransition = errors.New("invalid plan transition")
	ErrInvalidInvoiceState   = errors.New("invoice is not in a state that allows this operation")
)
