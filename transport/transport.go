package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	rpc "github.com/viant/jsonrpc/transport"
	"github.com/viant/jsonrpc/transport/client/http/sse"
	"github.com/viant/jsonrpc/transport/client/http/streamable"
)

// Transport is a JSON-RPC transport owned by a single tool server connection.
type Transport interface {
	rpc.Transport
	// Kind returns the wire transport type.
	Kind() Type
	// Close releases the underlying process or HTTP subscription. It is safe to call more than once.
	Close() error
}

// Factory constructs a transport for a config; handler serves server initiated requests.
type Factory func(ctx context.Context, config *Config, handler rpc.Handler) (Transport, error)

// Option customises transport construction.
type Option func(o *options)

type options struct {
	roundTripper http.RoundTripper
	gracePeriod  time.Duration
}

// WithRoundTripper sets the base HTTP round tripper used by HTTP based transports.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *options) {
		o.roundTripper = rt
	}
}

// WithGracePeriod sets how long a stdio tool server may take to exit on Close before it is killed.
func WithGracePeriod(d time.Duration) Option {
	return func(o *options) {
		o.gracePeriod = d
	}
}

// NewFactory returns a Factory applying the supplied options.
func NewFactory(opts ...Option) Factory {
	return func(ctx context.Context, config *Config, handler rpc.Handler) (Transport, error) {
		return New(ctx, config, handler, opts...)
	}
}

// New validates config and constructs the matching transport. ctx bounds construction only:
// a transport that is not ready when ctx is done is discarded, a constructed one lives until Close.
func New(ctx context.Context, config *Config, handler rpc.Handler, opts ...Option) (Transport, error) {
	if config == nil {
		return nil, &ConfigurationError{Reason: "config is required"}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if config.Transport == Stdio {
		ret, err := startProcess(config, handler, o.gracePeriod)
		if err != nil {
			return nil, fmt.Errorf("failed to create stdio transport: %w", err)
		}
		return Wrap(Stdio, ret, nil), nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	type outcome struct {
		transport rpc.Transport
		err       error
	}
	done := make(chan outcome, 1)
	go func() {
		t, err := dial(runCtx, config, handler, o)
		done <- outcome{transport: t, err: err}
	}()
	select {
	case result := <-done:
		if result.err != nil {
			cancel()
			return nil, result.err
		}
		return Wrap(config.Transport, result.transport, cancel), nil
	case <-ctx.Done():
		cancel()
		go func() {
			if result := <-done; result.transport != nil {
				_ = Wrap(config.Transport, result.transport, nil).Close()
			}
		}()
		return nil, fmt.Errorf("failed to create %s transport: %w", config.Transport, ctx.Err())
	}
}

// dial opens an HTTP based transport; ctx scopes the transport lifetime.
func dial(ctx context.Context, config *Config, handler rpc.Handler, o *options) (rpc.Transport, error) {
	httpClient := newHTTPClient(config, o.roundTripper)
	switch config.Transport {
	case SSE:
		ret, err := sse.New(ctx, config.URL,
			sse.WithHttpClient(httpClient),
			sse.WithMessageHttpClient(httpClient),
			sse.WithHandler(handler))
		if err != nil {
			return nil, fmt.Errorf("failed to create SSE transport: %w", err)
		}
		return ret, nil
	case StreamableHTTP:
		ret, err := streamable.New(ctx, config.URL,
			streamable.WithHTTPClient(httpClient),
			streamable.WithHandler(handler))
		if err != nil {
			return nil, fmt.Errorf("failed to create streamable transport: %w", err)
		}
		return ret, nil
	}
	return nil, &UnsupportedTransportError{Type: config.Transport}
}

// Wrap adapts a JSON-RPC transport to Transport. cancel, if not nil, is invoked on Close.
func Wrap(kind Type, t rpc.Transport, cancel context.CancelFunc) Transport {
	return &connection{Transport: t, kind: kind, cancel: cancel}
}

type connection struct {
	rpc.Transport
	kind   Type
	cancel context.CancelFunc
	once   sync.Once
	err    error
}

func (c *connection) Kind() Type {
	return c.kind
}

func (c *connection) Close() error {
	c.once.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		if closer, ok := c.Transport.(io.Closer); ok {
			c.err = closer.Close()
		}
	})
	return c.err
}
