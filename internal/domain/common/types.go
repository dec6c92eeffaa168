package common

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Error taxonomy shared by every domain. Domain sentinels wrap one of these so
// the HTTP layer can map any error to a status code with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrInvalid         = errors.New("invalid input")
)

// Kind builds a domain sentinel that wraps one of the taxonomy errors
func Kind(kind error, message string) error {
	return &kindError{kind: kind, message: message}
}

type kindError struct {
	kind    error
	message string
}

func (e *kindError) Error() string { return e.message }
func (e *kindError) Unwrap() error { return e.kind }

// ValidationError reports an invalid field
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for a field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// DateRange is a half-open [From, To) window used by calendar queries
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls in the range. Zero bounds are open.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// Overlaps reports whether [start, end] intersects the range
func (r DateRange) Overlaps(start, end time.Time) bool {
	if !r.To.IsZero() && !start.Before(r.To) {
		return false
	}
	if !r.From.IsZero() && end.Before(r.From) {
		return false
	}
	return true
}

// Page describes offset pagination for list queries
type Page struct {
	Limit  int
	Offset int
}

// Normalize applies default and maximum page sizes
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > 200 {
		p.Limit = 200
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Actor is the authenticated profile performing an operation
type Actor struct {
	ID   uuid.UUID
	Role string
}

// IsStaff reports whether the actor may manage shared content
func (a Actor) IsStaff() bool {
	return a.Role == "admin" || a.Role == "coordinator"
}

// IsAdmin reports whether the actor is an administrator
func (a Actor) IsAdmin() bool {
	return a.Role == "admin"
}
