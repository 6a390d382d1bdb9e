package domain

import (
	"errors"
	"fmt"
)

// Sentinel error kinds shared across the service. Handlers map these to
// HTTP status codes in pkg/response.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrPermission         = errors.New("permission denied")
	ErrInvalidState       = errors.New("invalid state transition")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment gateway rejected the request")
)

// DomainError wraps a sentinel kind with a human-readable message.
type DomainError struct {
	Err     error
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewValidationError reports bad or missing caller input.
func NewValidationError(field, reason string) *DomainError {
	return &DomainError{Err: ErrValidation, Message: fmt.Sprintf("%s: %s", field, reason)}
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{Err: ErrNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NewConflictError reports a concurrent-modification or uniqueness conflict.
func NewConflictError(message string) *DomainError {
	return &DomainError{Err: ErrConflict, Message: message}
}

// NewPermissionError reports an attempt to act on another user's resource.
func NewPermissionError(message string) *DomainError {
	return &DomainError{Err: ErrPermission, Message: message}
}

// NewInvalidStateError reports an illegal aggregate state transition.
func NewInvalidStateError(from, to string) *DomainError {
	return &DomainError{Err: ErrInvalidState, Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

// NewGatewayUnavailableError reports a transport-level gateway failure
// (connection error or timeout). A timeout is never success.
func NewGatewayUnavailableError(cause error) *DomainError {
	return &DomainError{Err: ErrGatewayUnavailable, Message: fmt.Sprintf("payment gateway unreachable: %v", cause)}
}

// NewGatewayRejectedError reports a non-success gateway response.
func NewGatewayRejectedError(detail string) *DomainError {
	return &DomainError{Err: ErrGatewayRejected, Message: "payment gateway rejected the request: " + detail}
}

// IsKind reports whether err wraps the given sentinel kind.
func IsKind(err, kind error) bool {
	return errors.Is(err, kind)
}
