package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/viant/mcpchat/transport"
)

// serverView is a stored configuration annotated with its live state.
type serverView struct {
	*transport.Config
	Connected bool `json:"connected"`
}

func (s *Server) view(config *transport.Config) *serverView {
	return &serverView{Config: config, Connected: s.registry.IsConnected(config.ID)}
}

func (s *Server) listServers(c *gin.Context) {
	configs, err := s.servers.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	ret := make([]*serverView, 0, len(configs))
	for _, config := range configs {
		ret = append(ret, s.view(config))
	}
	c.JSON(http.StatusOK, gin.H{"servers": ret})
}

func (s *Server) createServer(c *gin.Context) {
	raw := map[string]any{}
	if err := c.ShouldBindJSON(&raw); err != nil {
		s.fail(c, newBadRequest("invalid request body: "+err.Error()))
		return
	}
	delete(raw, "id")
	config, err := transport.ParseConfig(raw)
	if err != nil {
		s.fail(c, err)
		return
	}
	saved, err := s.servers.Save(c.Request.Context(), config)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Info("MCP server registered", "id", saved.ID, "name", saved.Name, "transport", saved.Transport)
	c.JSON(http.StatusCreated, gin.H{"server": s.view(saved)})
}

func (s *Server) getServer(c *gin.Context) {
	config, err := s.servers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"server": s.view(config)})
}

func (s *Server) updateServer(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := s.servers.Get(ctx, id); err != nil {
		s.fail(c, err)
		return
	}
	if s.registry.IsConnected(id) {
		s.fail(c, newBadRequest("disconnect the server before updating it"))
		return
	}
	raw := map[string]any{}
	if err := c.ShouldBindJSON(&raw); err != nil {
		s.fail(c, newBadRequest("invalid request body: "+err.Error()))
		return
	}
	raw["id"] = id
	config, err := transport.ParseConfig(raw)
	if err != nil {
		s.fail(c, err)
		return
	}
	saved, err := s.servers.Save(ctx, config)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"server": s.view(saved)})
}

func (s *Server) deleteServer(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if s.registry.IsConnected(id) {
		if err := s.registry.Disconnect(ctx, id); err != nil {
			s.logger.Warn("failed to disconnect deleted MCP server", "id", id, "error", err)
		}
	}
	if err := s.servers.Delete(ctx, id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) connect(c *gin.Context) {
	ctx := c.Request.Context()
	config, err := s.servers.Get(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if err = s.registry.Connect(ctx, config); err != nil {
		s.fail(c, err)
		return
	}
	ret := gin.H{"success": true, "server": s.view(config)}
	if cli := s.registry.Client(config.ID); cli != nil {
		if info := cli.Server(); info != nil {
			ret["serverInfo"] = info.ServerInfo
		}
	}
	c.JSON(http.StatusOK, ret)
}

func (s *Server) disconnect(c *gin.Context) {
	if err := s.registry.Disconnect(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) status(c *gin.Context) {
	connections := s.registry.Connections()
	ids := s.registry.ConnectedIDs()
	c.JSON(http.StatusOK, gin.H{
		"connections":        connections,
		"connectedServerIds": ids,
		"totalConnected":     len(ids),
	})
}
