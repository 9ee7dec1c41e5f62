package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/viant/jsonrpc"
	"github.com/viant/mcpchat/bridge"
	"github.com/viant/mcpchat/registry"
	"github.com/viant/mcpchat/store"
	"github.com/viant/mcpchat/transport"
)

// errorResponse maps an operation error to a status code and body.
func errorResponse(err error) (int, gin.H) {
	var (
		configErr       *transport.ConfigurationError
		unsupported     *transport.UnsupportedTransportError
		already         *registry.AlreadyConnectedError
		notConnected    *registry.NotConnectedError
		connectFailed   *registry.ConnectFailedError
		serverNotConn   *bridge.ServerNotConnectedError
		invocationErr   *bridge.ToolInvocationError
		notFound        *store.NotFoundError
		rpcErr          *jsonrpc.Error
		badRequestError *badRequest
	)
	switch {
	case errors.As(err, &badRequestError), errors.As(err, &configErr), errors.As(err, &unsupported):
		return http.StatusBadRequest, gin.H{"error": err.Error()}
	case errors.As(err, &already), errors.As(err, &notConnected), errors.As(err, &serverNotConn):
		return http.StatusBadRequest, gin.H{"error": err.Error()}
	case errors.As(err, &notFound):
		return http.StatusNotFound, gin.H{"error": err.Error()}
	case errors.As(err, &connectFailed):
		return http.StatusBadGateway, gin.H{"error": connectFailed.UserMessage(), "details": connectFailed.Err.Error(), "cause": connectFailed.Cause()}
	case errors.As(err, &invocationErr), errors.As(err, &rpcErr):
		return http.StatusBadGateway, gin.H{"error": err.Error()}
	}
	return http.StatusInternalServerError, gin.H{"error": err.Error()}
}

type badRequest struct {
	message string
}

func (e *badRequest) Error() string {
	return e.message
}

func newBadRequest(message string) error {
	return &badRequest{message: message}
}

func (s *Server) fail(c *gin.Context, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.JSON(status, body)
}
