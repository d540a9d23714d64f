package exit

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jacoelho/cnpj/internal/config"
)

const (
	CodeSuccess = 0
	CodeFailure = 1
	// CodeUsage is returned when the command line itself is wrong.
	CodeUsage = 2
)

// Result holds the output destination and exit code for program termination.
type Result struct {
	Output   io.Writer
	ExitCode int
	Message  string
}

// Print writes the result message, newline terminated, to the configured
// output destination.
func (r *Result) Print() {
	if r.Message == "" {
		return
	}
	msg := r.Message
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	fmt.Fprint(r.Output, msg)
}

// Success creates a successful exit result that outputs to stdout with exit code 0.
func Success(message string) *Result {
	return &Result{
		Output:   os.Stdout,
		ExitCode: CodeSuccess,
		Message:  message,
	}
}

// Error creates an error exit result that outputs to stderr with exit code 1.
func Error(message string) *Result {
	return &Result{
		Output:   os.Stderr,
		ExitCode: CodeFailure,
		Message:  message,
	}
}

// Errorf creates an error exit result with formatted message.
func Errorf(format string, a ...any) *Result {
	return Error(fmt.Sprintf(format, a...))
}

// FromError turns a fatal error into a single "Error: ..." line. Missing
// input is reported as a usage problem.
func FromError(err error) *Result {
	if err == nil {
		return Success("")
	}

	r := Errorf("Error: %v", err)
	if errors.Is(err, config.ErrNoInput) || errors.Is(err, config.ErrUnknownOption) {
		r.ExitCode = CodeUsage
	}
	return r
}
