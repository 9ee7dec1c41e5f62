package mcpchat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/viant/mcpchat/blob"
	"github.com/viant/mcpchat/bridge"
	"github.com/viant/mcpchat/chat"
	"github.com/viant/mcpchat/llm"
	"github.com/viant/mcpchat/registry"
	"github.com/viant/mcpchat/relay"
	"github.com/viant/mcpchat/server"
	"github.com/viant/mcpchat/store"
	"github.com/viant/mcpchat/transport"
)

const shutdownTimeout = 10 * time.Second

// Service owns the process wide registry and everything built on top of it.
type Service struct {
	options  *Options
	logger   *slog.Logger
	level    *slog.LevelVar
	model    llm.Model
	factory  transport.Factory
	registry *registry.Registry
	servers  *store.Servers
	server   *server.Server
}

// Option customises a Service.
type Option func(s *Service)

// WithModel replaces the Anthropic model oracle.
func WithModel(model llm.Model) Option {
	return func(s *Service) {
		s.model = model
	}
}

// WithFactory replaces the transport factory.
func WithFactory(factory transport.Factory) Option {
	return func(s *Service) {
		s.factory = factory
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// Registry returns the process wide connection registry.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// Handler returns the HTTP handler.
func (s *Service) Handler() http.Handler {
	return s.server.Handler()
}

// Bootstrap stores the configured servers and connects every stored server marked autoConnect.
// Connect failures are logged; the service stays usable without the server.
func (s *Service) Bootstrap(ctx context.Context) error {
	existing, err := s.servers.List(ctx)
	if err != nil {
		return err
	}
	byName := map[string]string{}
	for _, config := range existing {
		byName[config.Name] = config.ID
	}
	for _, config := range s.options.Servers {
		config = config.Clone()
		if config.ID == "" {
			config.ID = byName[config.Name]
		}
		if _, err = s.servers.Save(ctx, config); err != nil {
			return fmt.Errorf("failed to store server %s: %w", config.Name, err)
		}
	}
	configs, err := s.servers.List(ctx)
	if err != nil {
		return err
	}
	for _, config := range configs {
		if !config.AutoConnect {
			continue
		}
		if err = s.registry.Connect(ctx, config); err != nil {
			s.logger.Warn("MCP server auto connect failed", "id", config.ID, "name", config.Name, "error", err)
		}
	}
	return nil
}

// ListenAndServe serves HTTP until ctx is done, then shuts down and disconnects every tool server.
func (s *Service) ListenAndServe(ctx context.Context) error {
	httpServer := s.server.HTTP(ctx, s.options.Addr)
	done := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", httpServer.Addr)
		done <- httpServer.ListenAndServe()
	}()
	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		err = httpServer.Shutdown(shutdownCtx)
		cancel()
	}
	s.registry.DisconnectAll(context.WithoutCancel(ctx))
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return err
}

// New creates a service from options.
func New(ctx context.Context, options *Options, opts ...Option) (*Service, error) {
	options.Init()
	if err := options.Validate(); err != nil {
		return nil, err
	}
	s := &Service{options: options, level: &slog.LevelVar{}}
	for _, opt := range opts {
		opt(s)
	}
	if options.Debug {
		s.level.Set(slog.LevelDebug)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: s.level}))
	}
	if s.factory == nil {
		s.factory = transport.NewFactory()
	}
	if s.model == nil {
		apiKey := options.APIKey
		if apiKey == "" {
			s.logger.Warn("no model API key configured; chat turns will fail")
		}
		s.model = llm.NewAnthropic(apiKey,
			llm.WithModel(options.Model),
			llm.WithMaxTokens(options.MaxTokens),
			llm.WithSystemPrompt(options.SystemPrompt))
	}

	s.registry = registry.New(
		registry.WithFactory(s.factory),
		registry.WithLogger(s.logger),
		registry.WithConnectTimeout(options.ConnectTimeout))
	toolBridge := bridge.New(s.registry,
		bridge.WithLogger(s.logger),
		bridge.WithCallTimeout(options.CallTimeout))
	blobs := blob.New(options.BlobURL, options.PublicURL)
	chatService := chat.New(s.model, toolBridge, relay.New(blobs, s.logger), s.registry, chat.WithLogger(s.logger))
	s.servers = store.NewServers(options.StoreURL)

	var err error
	s.server, err = server.New(
		server.WithRegistry(s.registry),
		server.WithBridge(toolBridge),
		server.WithChat(chatService),
		server.WithStores(s.servers, store.NewSessions(options.StoreURL)),
		server.WithBlobs(blobs),
		server.WithCORS(&server.Cors{AllowOrigins: options.CorsOrigins}),
		server.WithLogger(s.logger),
		server.WithAddr(options.Addr))
	if err != nil {
		return nil, err
	}
	if err = s.Bootstrap(ctx); err != nil {
		return nil, err
	}
	return s, nil
}
