package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/viant/mcpchat/blob"
	"github.com/viant/mcpchat/bridge"
	"github.com/viant/mcpchat/chat"
	"github.com/viant/mcpchat/registry"
	"github.com/viant/mcpchat/store"
)

// Server is the HTTP surface of the chat service.
type Server struct {
	registry *registry.Registry
	bridge   *bridge.Bridge
	chat     *chat.Service
	servers  *store.Servers
	sessions *store.Sessions
	blobs    *blob.Store
	logger   *slog.Logger
	cors     *Cors
	addr     string
	engine   *gin.Engine
}

// Handler returns the router serving every endpoint.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// HTTP creates an http.Server bound to addr.
func (s *Server) HTTP(_ context.Context, addr string) *http.Server {
	if addr == "" {
		addr = s.addr
	}
	if addr == "" {
		addr = "127.0.0.1:8080"
	}
	return &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}
}

func (s *Server) routes() {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(s.logger))
	if s.cors.Enabled() {
		engine.Use(cors.New(s.cors.config()))
	}

	api := engine.Group("/api")
	mcp := api.Group("/mcp")
	mcp.GET("", s.listServers)
	mcp.POST("", s.createServer)
	mcp.GET("/status", s.status)
	mcp.GET("/:id", s.getServer)
	mcp.PUT("/:id", s.updateServer)
	mcp.DELETE("/:id", s.deleteServer)
	mcp.POST("/:id/connect", s.connect)
	mcp.POST("/:id/disconnect", s.disconnect)
	mcp.GET("/:id/tools", s.listTools)
	mcp.POST("/:id/execute", s.execute)
	mcp.GET("/:id/prompts", s.listPrompts)
	mcp.POST("/:id/get-prompt", s.getPrompt)
	mcp.GET("/:id/resources", s.listResources)
	mcp.GET("/:id/resource-templates", s.listResourceTemplates)
	mcp.POST("/:id/read-resource", s.readResource)

	api.POST("/chat", s.chatTurn)
	api.POST("/sessions", s.createSession)
	api.GET("/sessions", s.listSessions)
	api.GET("/sessions/:id/messages", s.listMessages)
	api.DELETE("/sessions/:id", s.deleteSession)

	engine.GET("/images/*path", s.image)
	s.engine = engine
}

// New creates a server.
func New(options ...Option) (*Server, error) {
	s := &Server{logger: slog.Default(), cors: &Cors{}}
	for _, option := range options {
		option(s)
	}
	switch {
	case s.registry == nil:
		return nil, errors.New("no registry specified")
	case s.bridge == nil:
		return nil, errors.New("no bridge specified")
	case s.chat == nil:
		return nil, errors.New("no chat service specified")
	case s.servers == nil || s.sessions == nil:
		return nil, errors.New("no store specified")
	case s.blobs == nil:
		return nil, errors.New("no blob store specified")
	}
	s.routes()
	return s, nil
}
