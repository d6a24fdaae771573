package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/activitytracker/internal/logger"
)

// Failure categories shared by the timestamp, entry and store layers.
// Callers match them with errors.Is; I/O errors are wrapped but keep their identity.
var (
	// ErrInvalidArgument reports a value of the wrong kind or out of range
	// where a real one was required or an unsupported type passed as any.
	ErrInvalidArgument = stderrors.New("invalid argument")
	// ErrInvalidFormat reports text that is present but not a valid timestamp.
	ErrInvalidFormat = stderrors.New("invalid format")
	// ErrEmptyInput reports an empty string where a value was required.
	ErrEmptyInput = stderrors.New("empty input")
	// ErrMalformedDocument reports a persisted document missing required structure.
	ErrMalformedDocument = stderrors.New("malformed document")
)

// Is reports whether any error in err's tree matches target
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's tree that matches target
func As(err error, target any) bool { return stderrors.As(err, target) }

// New returns an error that formats as the given text
func New(text string) error { return stderrors.New(text) }

// InvalidArgument wraps ErrInvalidArgument with a formatted detail
func InvalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// InvalidFormat wraps ErrInvalidFormat with a formatted detail
func InvalidFormat(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidFormat, fmt.Sprintf(format, args...))
}

// EmptyInput wraps ErrEmptyInput with a formatted detail
func EmptyInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrEmptyInput, fmt.Sprintf(format, args...))
}

// MalformedDocument wraps ErrMalformedDocument with a formatted detail
func MalformedDocument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedDocument, fmt.Sprintf(format, args...))
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
