// Package errors classifies the failures of the CSV target so the CLI can
// decide what is fatal and what is recovered locally.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorConfiguration is a fatal misconfiguration detected before or during a run.
	ErrorConfiguration ErrorClass = iota
	// ErrorIO is a fatal filesystem failure.
	ErrorIO
	// ErrorData is a data-shape problem. Callers decide whether it is recoverable.
	ErrorData
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorConfiguration:
		return "configuration"
	case ErrorIO:
		return "io"
	case ErrorData:
		return "data"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Configuration errors
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrMissingProperties   = errors.New("stream schema has no properties defined")
	ErrUnknownTimezone     = errors.New("unknown timezone")
	ErrAppendNotSupported  = errors.New("overwrite_behavior append_records is not supported")
	ErrSortKeyNotInSchema  = errors.New("record sort property is not declared in the stream schema")
	ErrSortKeyMissing      = errors.New("record is missing the sort property")
	ErrDuplicateOutputPath = errors.New("output path is already used by another stream")

	// Writer state errors
	ErrHeaderNotWritten = errors.New("csv header has not been written")

	// Data errors
	ErrInvalidMessage         = errors.New("invalid message")
	ErrUnknownStream          = errors.New("record for stream without schema")
	ErrIncomparableSortValues = errors.New("sort property values are not comparable")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

func wrapClassified(class ErrorClass, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{
		Class:     class,
		Err:       Wrap(err, component, method, action),
		Component: component,
		Operation: method,
	}
}

// WrapConfig wraps an error as a configuration error with context
func WrapConfig(err error, component, method, action string) error {
	return wrapClassified(ErrorConfiguration, err, component, method, action)
}

// WrapIO wraps an error as an I/O error with context
func WrapIO(err error, component, method, action string) error {
	return wrapClassified(ErrorIO, err, component, method, action)
}

// WrapData wraps an error as a data error with context
func WrapData(err error, component, method, action string) error {
	return wrapClassified(ErrorData, err, component, method, action)
}

func classOf(err error) (ErrorClass, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class, true
	}
	return 0, false
}

// IsConfig reports whether err is a configuration error.
func IsConfig(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := classOf(err); ok {
		return class == ErrorConfiguration
	}
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingProperties) ||
		errors.Is(err, ErrUnknownTimezone) ||
		errors.Is(err, ErrAppendNotSupported) ||
		errors.Is(err, ErrSortKeyNotInSchema) ||
		errors.Is(err, ErrSortKeyMissing) ||
		errors.Is(err, ErrDuplicateOutputPath)
}

// IsIO reports whether err is a filesystem error.
func IsIO(err error) bool {
	if err == nil {
		return false
	}
	class, ok := classOf(err)
	return ok && class == ErrorIO
}

// IsData reports whether err is a data-shape error.
func IsData(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := classOf(err); ok {
		return class == ErrorData
	}
	return errors.Is(err, ErrInvalidMessage) ||
		errors.Is(err, ErrUnknownStream) ||
		errors.Is(err, ErrIncomparableSortValues)
}

// Classify returns the error class for an error. Unclassified errors are
// reported as I/O since everything else in the target is classified at source.
func Classify(err error) ErrorClass {
	switch {
	case IsConfig(err):
		return ErrorConfiguration
	case IsData(err):
		return ErrorData
	default:
		return ErrorIO
	}
}

// Is and As re-export the standard helpers so callers need a single import.
func Is(err, target error) bool { return errors.Is(err, target) }

// As is errors.As.
func As(err error, target any) bool { return errors.As(err, target) }

// New is errors.New.
func New(text string) error { return errors.New(text) }
