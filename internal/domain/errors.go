package domain

import "errors"

// Common domain errors
var (
	// Context errors
	ErrContextNotFound     = errors.New("context not found")
	ErrContextCorrupted    = errors.New("context file corrupted")
	ErrVersionNotFound     = errors.New("context version not found")
	ErrFragmentMissing     = errors.New("context fragment missing")
	ErrValidationFailed    = errors.New("context validation failed")
	ErrPermissionDenied    = errors.New("operation not permitted for this user")
	ErrLockTimeout         = errors.New("could not acquire conversation lock")
	ErrLockNotHeld         = errors.New("lock not held by caller")
	ErrUnknownStrategy     = errors.New("unknown merge strategy")
	ErrConversationMissing = errors.New("conversation not found")

	// Memory errors
	ErrMemoryNotFound     = errors.New("memory not found")
	ErrMemoryItemNotFound = errors.New("memory item not found")
	ErrEmbeddingsFailed   = errors.New("failed to generate embeddings")

	// Global memory errors
	ErrGlobalMemoryUnavailable = errors.New("global memory store unavailable")
	ErrEntityNotFound          = errors.New("entity not found")
	ErrCatalogUnavailable      = errors.New("entity catalog unavailable")

	// Cache errors
	ErrCacheMiss = errors.New("analysis cache miss")

	// Validation errors
	ErrInvalidID    = errors.New("invalid ID format")
	ErrEmptyContent = errors.New("content cannot be empty")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("resource not found")
)

// IsNotFound reports whether the error is any of the not-found family.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrContextNotFound) ||
		errors.Is(err, ErrVersionNotFound) ||
		errors.Is(err, ErrMemoryNotFound) ||
		errors.Is(err, ErrMemoryItemNotFound) ||
		errors.Is(err, ErrEntityNotFound) ||
		errors.Is(err, ErrConversationMissing)
}

// DomainError wraps a domain error with additional context
type DomainError struct {
	Err     error
	Message string
	Code    string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func NewDomainError(err error, message string) *DomainError {
	return &DomainError{
		Err:     err,
		Message: message,
	}
}

func NewDomainErrorWithCode(err error, message, code string) *DomainError {
	return &DomainError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}
