package inventory

// Logger receives structured load and persistence diagnostics. Keyvals are
// alternating key/value pairs. *github.com/charmbracelet/log.Logger
// satisfies it.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Info(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
	Error(msg any, keyvals ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(any, ...any) {}
func (noopLogger) Info(any, ...any)  {}
func (noopLogger) Warn(any, ...any)  {}
func (noopLogger) Error(any, ...any) {}
