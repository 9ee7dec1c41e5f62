package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/viant/jsonrpc"
	"github.com/viant/mcp-protocol/schema"
)

// Handler serves requests and notifications initiated by a tool server.
// Only ping is supported; roots, sampling and elicitation are not offered.
type Handler struct {
	serverID string
	logger   *slog.Logger
}

func (h *Handler) Serve(ctx context.Context, request *jsonrpc.Request, response *jsonrpc.Response) {
	response.Id = request.Id
	response.Jsonrpc = request.Jsonrpc
	switch request.Method {
	case schema.MethodPing:
		response.Result = []byte("{}")
	default:
		h.logger.Debug("unsupported MCP server request", "id", h.serverID, "method", request.Method)
		response.Error = jsonrpc.NewMethodNotFound(fmt.Sprintf("method %s not found", request.Method), nil)
	}
}

// OnNotification handles notification
func (h *Handler) OnNotification(ctx context.Context, notification *jsonrpc.Notification) {
	h.logger.Debug("MCP server notification", "id", h.serverID, "method", notification.Method)
}

// NewHandler creates a handler for the tool server identified by serverID.
func NewHandler(serverID string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{serverID: serverID, logger: logger}
}
