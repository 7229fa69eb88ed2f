// Package worker runs the asynchronous measurement pipeline behind the
// submission queue.
package worker

import (
	"time"

	"github.com/youthperformance/xlens/pkg/logger"
)

// Option applies a configuration option to the MeasureWorker.
type Option func(*MeasureWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *MeasureWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *MeasureWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithMaxAttempts bounds how many times a task is attempted before the jump
// is abandoned.
func WithMaxAttempts(attempts int) Option {
	return func(w *MeasureWorker) {
		if attempts > 0 {
			w.maxAttempts = attempts
		}
	}
}

// WithBackoffBase sets the first retry delay; each retry doubles it.
func WithBackoffBase(base time.Duration) Option {
	return func(w *MeasureWorker) {
		if base > 0 {
			w.backoffBase = base
		}
	}
}
