package inventory

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-inventory/element"
)

var (
	ErrNotLoaded       = errors.New("inventory: not loaded")
	ErrNoKeyAttributes = errors.New("inventory: element has no key attributes")
	ErrNoUserDir       = errors.New("inventory: user override directory not configured")
	ErrNoEvaluator     = errors.New("inventory: evaluator not configured")
)

// ErrorCode classifies configuration errors.
type ErrorCode string

const (
	ErrCodeMissingBase      ErrorCode = "MISSING_BASE"
	ErrCodeOverrideChain    ErrorCode = "OVERRIDE_CHAIN"
	ErrCodeUnresolvedBase   ErrorCode = "UNRESOLVED_BASE"
	ErrCodeDerivationCycle  ErrorCode = "DERIVATION_CYCLE"
	ErrCodeMalformedPath    ErrorCode = "MALFORMED_PATH"
	ErrCodeMalformedElement ErrorCode = "MALFORMED_ELEMENT"
	ErrCodeMalformedVersion ErrorCode = "MALFORMED_VERSION"
)

// ConfigError reports an inconsistent configuration set. A ConfigError aborts
// the load pass that raised it.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Key     string
	Path    string
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("inventory: %s: %s", e.Code, e.Message)
	if e.Key != "" {
		msg += fmt.Sprintf(" (%s)", e.Key)
	}
	if e.Path != "" {
		msg += " in " + e.Path
	}
	return msg
}

func newConfigError(code ErrorCode, key element.Key, format string, args ...any) *ConfigError {
	err := &ConfigError{Code: code, Message: fmt.Sprintf(format, args...)}
	if key.Name != "" {
		err.Key = key.String()
	}
	return err
}

// IsConfigError reports whether err carries a ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// IsErrorCode reports whether err carries a ConfigError with code.
func IsErrorCode(err error, code ErrorCode) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr) && cfgErr.Code == code
}

// SourceError wraps an I/O or parse failure with the offending source.
type SourceError struct {
	Path string
	Op   string
	Err  error
}

func (e *SourceError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("inventory: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *SourceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// withPath stamps the source path on configuration errors raised while
// loading it and wraps anything else in a SourceError.
func withPath(err error, path, op string) error {
	if err == nil {
		return nil
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		if cfgErr.Path == "" {
			cfgErr.Path = path
		}
		return err
	}
	var srcErr *SourceError
	if errors.As(err, &srcErr) {
		return err
	}
	return &SourceError{Path: path, Op: op, Err: err}
}
