// Package errors provides custom error types for layersync.
// Typed errors carry the context needed to report a failed refresh
// (which batch, which line, which portal call) and support errors.Is
// against the sentinel values below.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Sentinel errors.
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrSchemaMismatch indicates that batches do not share a column set
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrMalformedRecord indicates a record that cannot be reconciled
	ErrMalformedRecord = errors.New("malformed record")

	// ErrOverwriteFailed indicates the portal rejected or failed an overwrite
	ErrOverwriteFailed = errors.New("overwrite failed")

	// ErrFileNameMismatch indicates the output file name differs from the published name
	ErrFileNameMismatch = errors.New("file name does not match published item")

	// ErrCredentialsRequired indicates that no usable portal credentials were supplied
	ErrCredentialsRequired = errors.New("credentials required")

	// ErrCredentialsInvalid indicates that the portal refused the supplied credentials
	ErrCredentialsInvalid = errors.New("credentials invalid")

	// ErrPortalUnavailable indicates that the portal is temporarily unavailable
	ErrPortalUnavailable = errors.New("portal unavailable")

	// ErrRateLimited indicates that the portal rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrUnsupportedScheme indicates a storage URI scheme with no registered store
	ErrUnsupportedScheme = errors.New("unsupported storage scheme")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// SchemaMismatchError reports a batch whose columns differ from the
// reference batch. Expected and Got hold column names in order.
type SchemaMismatchError struct {
	Batch    string
	Expected []string
	Got      []string
	Message  string
}

// Error implements the error interface
func (e *SchemaMismatchError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "column set differs"
	}
	return fmt.Sprintf("schema mismatch in batch %s: %s (expected [%s], got [%s])",
		e.Batch, msg, strings.Join(e.Expected, ","), strings.Join(e.Got, ","))
}

// Is implements errors.Is support
func (e *SchemaMismatchError) Is(target error) bool {
	return target == ErrSchemaMismatch
}

// NewSchemaMismatchError creates a new SchemaMismatchError
func NewSchemaMismatchError(batch string, expected, got []string) *SchemaMismatchError {
	return &SchemaMismatchError{Batch: batch, Expected: expected, Got: got}
}

// MalformedRecordError reports a record that lacks a key value or does not
// conform to the schema. Line is 1-based and counts the header row; zero
// means the record did not come from a file.
type MalformedRecordError struct {
	Batch   string
	Line    int
	Column  string
	Message string
	Err     error
}

// Error implements the error interface
func (e *MalformedRecordError) Error() string {
	var b strings.Builder
	b.WriteString("malformed record in batch ")
	b.WriteString(e.Batch)
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %s", e.Column)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

// Unwrap implements errors.Unwrap
func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// NewMalformedRecordError creates a new MalformedRecordError
func NewMalformedRecordError(batch string, line int, column, message string) *MalformedRecordError {
	return &MalformedRecordError{Batch: batch, Line: line, Column: column, Message: message}
}

// APIError represents an error returned by the portal
type APIError struct {
	Service    string
	StatusCode int
	Code       int // portal error code from the JSON envelope, if any
	Message    string
	Details    []string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	msg := e.Message
	if len(e.Details) > 0 {
		msg = msg + " (" + strings.Join(e.Details, "; ") + ")"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Service, e.StatusCode, msg)
	}
	return fmt.Sprintf("API error from %s: %s", e.Service, msg)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	status := e.StatusCode
	if status == 0 {
		status = e.Code
	}
	switch {
	case status == 429:
		return target == ErrRateLimited
	case status == 498 || status == 499:
		return target == ErrCredentialsInvalid
	case status >= 500:
		return target == ErrPortalUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(service string, statusCode int, message string) *APIError {
	return &APIError{
		Service:    service,
		StatusCode: statusCode,
		Message:    message,
	}
}

// OverwriteError reports a failed overwrite of a hosted layer.
type OverwriteError struct {
	LayerID string
	JobID   string
	Status  string
	Message string
	Err     error
}

// Error implements the error interface
func (e *OverwriteError) Error() string {
	s := fmt.Sprintf("overwrite of layer %s failed", e.LayerID)
	if e.Status != "" {
		s += " (status " + e.Status + ")"
	}
	if e.Message != "" {
		s += ": " + e.Message
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap implements errors.Unwrap
func (e *OverwriteError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *OverwriteError) Is(target error) bool {
	return target == ErrOverwriteFailed
}

// FileNameMismatchError reports an output file whose base name differs from
// the file the hosted layer was published from.
type FileNameMismatchError struct {
	Expected string
	Got      string
}

// Error implements the error interface
func (e *FileNameMismatchError) Error() string {
	return fmt.Sprintf("output file %q does not match published file %q", e.Got, e.Expected)
}

// Is implements errors.Is support
func (e *FileNameMismatchError) Is(target error) bool {
	return target == ErrFileNameMismatch
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "csv", "yaml", "json"
	File    string
	Line    int
	Column  int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d:%d: %s", e.Format, e.File, e.Line, e.Column, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "open", "close", "upload"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// AuthenticationError represents an authentication failure against the portal
type AuthenticationError struct {
	Portal  string
	Method  string // "token", "api_key"
	Message string
	Err     error
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	if e.Portal != "" {
		return fmt.Sprintf("authentication error for %s (%s): %s", e.Portal, e.Method, e.Message)
	}
	return fmt.Sprintf("authentication error (%s): %s", e.Method, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrCredentialsRequired || target == ErrCredentialsInvalid
}

// TimeoutError represents an operation timeout
type TimeoutError struct {
	Operation string
	Duration  string
	Message   string
}

// Error implements the error interface
func (e *TimeoutError) Error() string {
	if e.Duration != "" {
		return fmt.Sprintf("operation %s timed out after %s: %s", e.Operation, e.Duration, e.Message)
	}
	return fmt.Sprintf("operation %s timed out: %s", e.Operation, e.Message)
}

// Is implements errors.Is support
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsSchemaMismatch checks if an error is a schema mismatch
func IsSchemaMismatch(err error) bool {
	return errors.Is(err, ErrSchemaMismatch)
}

// IsMalformedRecord checks if an error is a malformed record error
func IsMalformedRecord(err error) bool {
	return errors.Is(err, ErrMalformedRecord)
}

// IsOverwriteFailed checks if an error is an overwrite failure
func IsOverwriteFailed(err error) bool {
	return errors.Is(err, ErrOverwriteFailed)
}

// IsCredentialError checks if an error is related to portal credentials
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrCredentialsRequired) || errors.Is(err, ErrCredentialsInvalid)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsPortalUnavailable checks if an error indicates portal unavailability
func IsPortalUnavailable(err error) bool {
	return errors.Is(err, ErrPortalUnavailable)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}
