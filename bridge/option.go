package bridge

import (
	"log/slog"
	"time"
)

// Option represents bridge option
type Option func(b *Bridge)

// WithLogger sets logger
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithCallTimeout sets a deadline applied to every tool call; zero disables it.
func WithCallTimeout(timeout time.Duration) Option {
	return func(b *Bridge) {
		b.callTimeout = timeout
	}
}
