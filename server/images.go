package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/viant/mcpchat/blob"
)

func (s *Server) image(c *gin.Context) {
	objectPath := strings.TrimPrefix(c.Param("path"), "/")
	ctx := c.Request.Context()
	exists, err := s.blobs.Exists(ctx, objectPath)
	if err != nil {
		s.fail(c, newBadRequest(err.Error()))
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
		return
	}
	data, err := s.blobs.Download(ctx, objectPath)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, blob.ContentType(objectPath), data)
}
