package worker

import (
	"github.com/bezboss20/Dashboard-sub001/pkg/logger"
)

// Option applies a configuration option to the Loop.
type Option func(*Loop)

// WithName sets the loop name for logging.
func WithName(name string) Option {
	return func(w *Loop) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the loop.
func WithLogger(logger logger.Logger) Option {
	return func(w *Loop) {
		if logger != nil {
			w.logger = logger
		}
	}
}
