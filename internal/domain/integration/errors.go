package integration

import (
	"errors"
	"fmt"
)

var (
	// Remote platform errors
	ErrRemoteUnavailable     = errors.New("integration: remote platform temporarily unavailable")
	ErrRemoteTimeout         = errors.New("integration: remote call timed out")
	ErrRemoteRateLimited     = errors.New("integration: remote platform rate limited")
	ErrRemoteAuthFailed      = errors.New("integration: remote authentication failed")
	ErrRemoteRejected        = errors.New("integration: remote platform rejected the request")
	ErrRemoteNotFound        = errors.New("integration: remote record not found")
	ErrRemoteInvalidResponse = errors.New("integration: invalid remote response")

	// Credential errors
	ErrCredentialsMissing = errors.New("integration: store credentials missing")
	ErrInvalidBaseURL     = errors.New("integration: invalid store base URL")

	// Sync state errors
	ErrSyncStateNotFound     = errors.New("integration: sync state not found")
	ErrInvalidEntityType     = errors.New("integration: invalid entity type")
	ErrInvalidSyncTransition = errors.New("integration: invalid sync status transition")
	ErrSyncedWithoutRemoteID = errors.New("integration: synced record requires a remote id")
	ErrDuplicateRemoteID     = errors.New("integration: remote id already mapped to another record")
	ErrRemoteIDConflict      = errors.New("integration: local record is linked to a different remote id")

	// Lease errors
	ErrLeaseHeld     = errors.New("integration: sync lease held by another job")
	ErrLeaseNotOwned = errors.New("integration: sync lease not owned")
)

// RemoteError wraps a RemoteClient failure. Retryable is true for network,
// timeout, rate-limit and server-side failures and false for validation,
// authentication and not-found failures.
type RemoteError struct {
	Op         string
	EntityType EntityType
	StatusCode int
	Message    string
	Retryable  bool
	Err        error
}

// NewRemoteError creates a RemoteError, deriving Retryable from the sentinel kind
func NewRemoteError(op string, entityType EntityType, kind error, statusCode int, message string) *RemoteError {
	return &RemoteError{
		Op:         op,
		EntityType: entityType,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  isRetryableKind(kind),
		Err:        kind,
	}
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("remote %s %s failed (status %d): %s", e.Op, e.EntityType, e.StatusCode, msg)
	}
	return fmt.Sprintf("remote %s %s failed: %s", e.Op, e.EntityType, msg)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func isRetryableKind(kind error) bool {
	switch {
	case errors.Is(kind, ErrRemoteUnavailable),
		errors.Is(kind, ErrRemoteTimeout),
		errors.Is(kind, ErrRemoteRateLimited):
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err is a retryable remote failure
func IsRetryable(err error) bool {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// AsRemoteError extracts a RemoteError from an error chain
func AsRemoteError(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
