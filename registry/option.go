package registry

import (
	"log/slog"
	"time"

	"github.com/viant/mcpchat/transport"
)

// Option represents registry option
type Option func(r *Registry)

// WithFactory sets the transport factory
func WithFactory(factory transport.Factory) Option {
	return func(r *Registry) {
		r.factory = factory
	}
}

// WithLogger sets logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithConnectTimeout bounds the protocol handshake
func WithConnectTimeout(timeout time.Duration) Option {
	return func(r *Registry) {
		r.connectTimeout = timeout
	}
}

// WithClientInfo overrides the implementation name and version sent in the handshake
func WithClientInfo(name, version string) Option {
	return func(r *Registry) {
		r.name = name
		r.version = version
	}
}
