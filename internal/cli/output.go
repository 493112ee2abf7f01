package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	inventory "github.com/goliatone/go-inventory"
	"github.com/goliatone/go-inventory/element"
	"github.com/goliatone/go-inventory/internal/hydrate"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Lookup miss or inventory load failure
	ExitCommandError = 2 // Bad flags, arguments or configuration
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
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

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses. Code is an inventory
// ErrorCode when the failure carried one.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Key     string `json:"key,omitempty"`
	Path    string `json:"path,omitempty"`
}

// JSON reports whether the envelope format is selected.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// Success outputs data in the configured format. Text output prints data
// with fmt unless it is a string slice, which prints one entry per line.
func (f *OutputFormatter) Success(data any) error {
	if f.JSON() {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	if lines, ok := data.([]string); ok {
		for _, line := range lines {
			fmt.Fprintln(f.Writer, line)
		}
		return nil
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs err in the configured format.
func (f *OutputFormatter) Error(err error) error {
	out := CLIError{Code: "ERROR", Message: err.Error()}
	var cfgErr *inventory.ConfigError
	if errors.As(err, &cfgErr) {
		out.Code = string(cfgErr.Code)
		out.Key = cfgErr.Key
		out.Path = cfgErr.Path
	}
	if f.JSON() {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "error", Error: &out})
	}
	fmt.Fprintf(f.errWriter(), "Error [%s]: %s\n", out.Code, out.Message)
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.errWriter(), format+"\n", args...)
}

func (f *OutputFormatter) errWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// encodeElement renders el with the codec named by as (xml, yaml, json, cbor).
func encodeElement(el *element.Element, as string) ([]byte, error) {
	format, ok := hydrate.ParseFormat(as)
	if !ok {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown encoding %q: must be xml, yaml, json or cbor", as))
	}
	return hydrate.NewDecoder().Encode(hydrate.Context{Format: format}, el)
}

// elementLines renders one compact line per element.
func elementLines(els []*element.Element) []string {
	lines := make([]string, 0, len(els))
	for _, el := range els {
		lines = append(lines, el.String())
	}
	return lines
}
