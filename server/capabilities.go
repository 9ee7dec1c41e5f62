package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/viant/mcp-protocol/schema"
	"github.com/viant/mcpchat/bridge"
	"github.com/viant/mcpchat/client"
)

// connected returns the client of a connected server or writes an error response.
func (s *Server) connected(c *gin.Context) (*client.Client, bool) {
	id := c.Param("id")
	cli := s.registry.Client(id)
	if cli == nil {
		s.fail(c, &bridge.ServerNotConnectedError{ServerID: id})
		return nil, false
	}
	return cli, true
}

func (s *Server) listTools(c *gin.Context) {
	cli, ok := s.connected(c)
	if !ok {
		return
	}
	result, err := cli.ListTools(c.Request.Context(), nil)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) execute(c *gin.Context) {
	var req struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, newBadRequest("invalid request body: "+err.Error()))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.fail(c, newBadRequest("tool name is required"))
		return
	}
	result, err := s.bridge.Invoke(c.Request.Context(), c.Param("id"), req.Name, req.Arguments)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) listPrompts(c *gin.Context) {
	cli, ok := s.connected(c)
	if !ok {
		return
	}
	result, err := cli.ListPrompts(c.Request.Context(), nil)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) getPrompt(c *gin.Context) {
	cli, ok := s.connected(c)
	if !ok {
		return
	}
	params := &schema.GetPromptRequestParams{}
	if err := c.ShouldBindJSON(params); err != nil {
		s.fail(c, newBadRequest("invalid request body: "+err.Error()))
		return
	}
	if params.Name == "" {
		s.fail(c, newBadRequest("prompt name is required"))
		return
	}
	result, err := cli.GetPrompt(c.Request.Context(), params)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) listResources(c *gin.Context) {
	cli, ok := s.connected(c)
	if !ok {
		return
	}
	result, err := cli.ListResources(c.Request.Context(), nil)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) listResourceTemplates(c *gin.Context) {
	cli, ok := s.connected(c)
	if !ok {
		return
	}
	result, err := cli.ListResourceTemplates(c.Request.Context(), nil)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) readResource(c *gin.Context) {
	cli, ok := s.connected(c)
	if !ok {
		return
	}
	params := &schema.ReadResourceRequestParams{}
	if err := c.ShouldBindJSON(params); err != nil {
		s.fail(c, newBadRequest("invalid request body: "+err.Error()))
		return
	}
	if params.Uri == "" {
		s.fail(c, newBadRequest("resource uri is required"))
		return
	}
	result, err := cli.ReadResource(c.Request.Context(), params)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
