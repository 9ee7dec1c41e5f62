package server

import (
	"log/slog"

	"github.com/viant/mcpchat/blob"
	"github.com/viant/mcpchat/bridge"
	"github.com/viant/mcpchat/chat"
	"github.com/viant/mcpchat/registry"
	"github.com/viant/mcpchat/store"
)

// Option configures a Server.
type Option func(s *Server)

// WithRegistry sets the process wide connection registry.
func WithRegistry(r *registry.Registry) Option {
	return func(s *Server) {
		s.registry = r
	}
}

// WithBridge sets the tool bridge.
func WithBridge(b *bridge.Bridge) Option {
	return func(s *Server) {
		s.bridge = b
	}
}

// WithChat sets the chat orchestration service.
func WithChat(c *chat.Service) Option {
	return func(s *Server) {
		s.chat = c
	}
}

// WithStores sets the server configuration and chat session stores.
func WithStores(servers *store.Servers, sessions *store.Sessions) Option {
	return func(s *Server) {
		s.servers = servers
		s.sessions = sessions
	}
}

// WithBlobs sets the image store served under /images.
func WithBlobs(blobs *blob.Store) Option {
	return func(s *Server) {
		s.blobs = blobs
	}
}

// WithCORS sets the cross origin policy.
func WithCORS(cors *Cors) Option {
	return func(s *Server) {
		if cors != nil {
			s.cors = cors
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAddr sets the default listen address.
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}
