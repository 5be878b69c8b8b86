package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/reclaw/conformance/internal/conformance"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // all scenarios passed
	ExitFailure      = 1 // one or more scenarios failed
	ExitCommandError = 2 // startup error: bad flags, transport construction, missing paths
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error // underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors that never chose
// a code are startup-shaped, so they map to ExitCommandError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// renderReport writes a report in the requested format. The text form is
// one summary line followed by one line per scenario with its detail.
func renderReport(w io.Writer, format string, report conformance.Report) error {
	if format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}

	fmt.Fprintf(w, "scenarios: %d total, %d failed\n", report.Total, report.Failed)
	for _, outcome := range report.Outcomes {
		status := "PASS"
		if !outcome.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(w, "[%s] %s - %s\n", status, outcome.Name, outcome.Detail)
	}
	return nil
}
