// Package errors defines the error types of matchrules.
//
// Two families exist. Refusals (NotFoundError, AlreadyExistsError,
// ValidationError, BusyError) mean a precondition failed and the session was
// left untouched. Failures (APIError, ServiceError, IOError, ParseError,
// TimeoutError) come from the outside world. Each type matches one of the
// sentinels below through errors.Is, so callers never compare strings.
package errors

import (
	"errors"
	"fmt"
)

// Re-exported so callers need a single errors import.
var (
	New  = errors.New
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Sentinels.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrBusy               = errors.New("engine busy")
	ErrNoChanges          = errors.New("no changes")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timed out")
	ErrCanceled           = errors.New("operation canceled")
	ErrNotConfigured      = errors.New("not configured")
)

func messageOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// NotFoundError reports an unknown session, match set, rule or entity.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError returns a NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// AlreadyExistsError reports a duplicate match, match set or session.
type AlreadyExistsError struct {
	Resource string
	ID       string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Resource, e.ID)
}

// Is matches ErrAlreadyExists.
func (e *AlreadyExistsError) Is(target error) bool { return target == ErrAlreadyExists }

// NewAlreadyExistsError returns an AlreadyExistsError.
func NewAlreadyExistsError(resource, id string) *AlreadyExistsError {
	return &AlreadyExistsError{Resource: resource, ID: id}
}

// ValidationError reports malformed input. Field may be empty.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// Is matches ErrInvalidInput.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NewValidationError returns a ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// BusyError is returned when an operation arrives while the engine is not
// Ready. Nothing is queued; callers retry.
type BusyError struct {
	Operation string
	State     string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Operation, e.State)
}

// Is matches ErrBusy.
func (e *BusyError) Is(target error) bool { return target == ErrBusy }

// NewBusyError returns a BusyError.
func NewBusyError(operation, state string) *BusyError {
	return &BusyError{Operation: operation, State: state}
}

// APIError is a non-success HTTP exchange with a rule service. A zero
// StatusCode means the request never got a response.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("API error from %s: %s", e.Service, e.Message)
	}
	return fmt.Sprintf("API error from %s (status %d): %s", e.Service, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// Is matches ErrServiceUnavailable for 5xx and 429 responses.
func (e *APIError) Is(target error) bool {
	retryable := e.StatusCode >= 500 || e.StatusCode == 429
	return retryable && target == ErrServiceUnavailable
}

// NewAPIError returns an APIError for a received response.
func NewAPIError(service string, statusCode int, message string) *APIError {
	return &APIError{Service: service, StatusCode: statusCode, Message: message}
}

// ServiceError wraps a failed suggest or apply call with the engine
// operation that made it.
type ServiceError struct {
	Service   string
	Operation string
	Err       error
}

func (e *ServiceError) Error() string {
	if e.Operation == "" {
		return fmt.Sprintf("%s service failed: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s service failed during %s: %v", e.Service, e.Operation, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is matches ErrServiceUnavailable.
func (e *ServiceError) Is(target error) bool { return target == ErrServiceUnavailable }

// NewServiceError returns a ServiceError.
func NewServiceError(service, operation string, err error) *ServiceError {
	return &ServiceError{Service: service, Operation: operation, Err: err}
}

// ConfigError reports invalid or missing configuration.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

func (e *ConfigError) Error() string {
	if e.Component == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError returns a ConfigError.
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// ParseError reports undecodable JSON or YAML input. Line and Column are set
// when the decoder reports a position.
type ParseError struct {
	Format  string
	File    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("parse error in %s at %s:%d:%d: %s", e.Format, e.File, e.Line, e.Column, e.Message)
	case e.File != "":
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	default:
		return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError returns a ParseError.
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{Format: format, File: file, Message: message, Err: err}
}

// IOError reports a failed read or write of a data or state file.
type IOError struct {
	Operation string
	Path      string
	Message   string
	Err       error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
}

func (e *IOError) Unwrap() error { return e.Err }

// NewIOError returns an IOError carrying the message of err.
func NewIOError(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Message: messageOf(err), Err: err}
}

// ResourceError adds the operation and resource to an underlying error.
type ResourceError struct {
	Operation string
	Resource  string
	ID        string
	Message   string
	Err       error
}

func (e *ResourceError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
	}
	return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// NewResourceError returns a ResourceError carrying the message of err.
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	return &ResourceError{Operation: operation, Resource: resource, ID: id, Message: messageOf(err), Err: err}
}

// TimeoutError reports an operation that exceeded its deadline.
type TimeoutError struct {
	Operation string
	Duration  string
	Message   string
}

func (e *TimeoutError) Error() string {
	if e.Duration == "" {
		return fmt.Sprintf("operation %s timed out: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("operation %s timed out after %s: %s", e.Operation, e.Duration, e.Message)
}

// Is matches ErrTimeout.
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// NewTimeoutError returns a TimeoutError.
func NewTimeoutError(operation, duration, message string) *TimeoutError {
	return &TimeoutError{Operation: operation, Duration: duration, Message: message}
}

// IsNotFound reports whether err is a not found refusal.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsAlreadyExists reports whether err is a duplicate refusal.
func IsAlreadyExists(err error) bool { return errors.Is(err, ErrAlreadyExists) }

// IsValidationError reports whether err is a validation refusal.
func IsValidationError(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsBusy reports whether err came from the state guard.
func IsBusy(err error) bool { return errors.Is(err, ErrBusy) }

// IsNoChanges reports whether an apply was refused with nothing pending.
func IsNoChanges(err error) bool { return errors.Is(err, ErrNoChanges) }

// IsServiceUnavailable reports whether err came from a failing rule service.
func IsServiceUnavailable(err error) bool { return errors.Is(err, ErrServiceUnavailable) }

// IsTimeout reports whether err is a timeout.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// IsCanceled reports whether err is a cancellation.
func IsCanceled(err error) bool { return errors.Is(err, ErrCanceled) }

// The Wrap helpers return nil for a nil err.

// WrapValidation wraps err as a ValidationError on field.
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps err as an IOError.
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapResource wraps err as a ResourceError.
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps err as a ParseError.
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapService wraps err as a ServiceError.
func WrapService(service, operation string, err error) error {
	if err == nil {
		return nil
	}
	return NewServiceError(service, operation, err)
}
