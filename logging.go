package graphcache

import "time"

// LogLevel classifies a LogEvent.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// LogEvent describes something the cache did or observed.
type LogEvent struct {
	Level    LogLevel
	Message  string
	Identity Identity
	PassID   string
	Duration time.Duration
	Fields   map[string]any
	Err      error
}

// Logger records cache events.
type Logger interface {
	LogEvent(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// LogEvent implements Logger.
func (f LoggerFunc) LogEvent(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogEvent(LogEvent) {}

// WithLogger attaches a logger to the cache. A nil logger silences output.
func WithLogger(logger Logger) Option {
	return func(cfg *cacheConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}
