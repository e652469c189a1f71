package models

import (
	"errors"
	"fmt"
)

// Domain errors shared by the services and mapped to HTTP statuses by the api package.
var (
	ErrValidation           = errors.New("validation failed")
	ErrDuplicateAccount     = errors.New("account already exists")
	ErrOtpInvalidOrExpired  = errors.New("otp invalid or expired")
	ErrAccountNotFound      = errors.New("account not found")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountDeactivated   = errors.New("account deactivated")
	ErrJobNotFound          = errors.New("job not found")
	ErrJobClosed            = errors.New("job is closed")
	ErrApplicationNotFound  = errors.New("application not found")
	ErrDuplicateApplication = errors.New("application already exists")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrRecruiterNotFound    = errors.New("recruiter not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrForbidden            = errors.New("forbidden")
	ErrStorage              = errors.New("storage error")
)

// ValidationError names the first rule a request failed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// StorageErr wraps a persistence failure so callers can match ErrStorage
// while keeping the driver error in the chain.
func StorageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
