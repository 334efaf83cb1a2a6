package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/streaks/internal/logger"
	"github.com/julianstephens/streaks/internal/storage"
	"github.com/julianstephens/streaks/internal/validation"
)

// Process exit codes
const (
	ExitFailure     = 1
	ExitInvalid     = 2
	ExitUnavailable = 3
)

// Format formats an error message with a consistent "Error: " prefix. Known error
// classes get a one-line hint.
func Format(err error) string {
	if err == nil {
		return ""
	}
	msg := fmt.Sprintf("Error: %v", err)
	if hint := hintFor(err); hint != "" {
		msg += "\n       " + hint
	}
	return msg
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case stderrors.Is(err, validation.ErrInvalidInput), stderrors.Is(err, validation.ErrInvalidCadence):
		return ExitInvalid
	case stderrors.Is(err, storage.ErrUnavailable):
		return ExitUnavailable
	default:
		return ExitFailure
	}
}

func hintFor(err error) string {
	switch {
	case stderrors.Is(err, storage.ErrUnavailable):
		return "The store could not be reached; check the database settings or run 'streaks doctor'."
	case stderrors.Is(err, storage.ErrNotFound):
		return "Use 'streaks habit list --owner <id>' to see existing habits."
	case stderrors.Is(err, validation.ErrInvalidCadence):
		return "Cadence is the number of proofs per week and must be between 1 and 7."
	}
	return ""
}

// Fatal logs an error and exits the program with the mapped exit code
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(ExitCode(err))
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(ExitFailure)
}
