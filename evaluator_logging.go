package inventory

import "time"

// EvaluatorLogEvent summarises one Select pass.
type EvaluatorLogEvent struct {
	Engine     string
	Expr       string
	Candidates int
	Matched    int
	Duration   time.Duration
	Err        error
}

// EvaluatorLogger observes Select passes.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

// LogEvaluations writes Select passes to logger: failures at warn level,
// the rest at debug.
func LogEvaluations(logger Logger) EvaluatorLogger {
	return EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		keyvals := []any{
			"engine", event.Engine,
			"expr", event.Expr,
			"candidates", event.Candidates,
			"matched", event.Matched,
			"duration", event.Duration,
		}
		if event.Err != nil {
			logger.Warn("select failed", append(keyvals, "err", event.Err)...)
			return
		}
		logger.Debug("select", keyvals...)
	})
}

// WithEvaluatorLogger observes every Select pass. Without it, passes are
// logged at debug level to the Logger given by WithLogger.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *config) {
		cfg.evalLogger = logger
	}
}
