package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/viant/mcpchat/chat"
	"github.com/viant/mcpchat/llm"
	"github.com/viant/mcpchat/store"
)

func (s *Server) chatTurn(c *gin.Context) {
	ctx := c.Request.Context()
	req := &chat.Request{}
	if err := c.ShouldBindJSON(req); err != nil {
		s.fail(c, newBadRequest("invalid request body: "+err.Error()))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.fail(c, newBadRequest("message is required"))
		return
	}
	for i := range req.History {
		if req.History[i].Role == store.RoleAssistant {
			req.History[i].Role = llm.RoleModel
		}
	}

	var placeholder *store.Message
	if req.SessionID != "" {
		var err error
		if placeholder, err = s.openTurn(ctx, req); err != nil {
			s.fail(c, err)
			return
		}
	}

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	summary := s.chat.Turn(ctx, req, chat.NewEventWriter(c.Writer).Write)
	if placeholder != nil {
		s.closeTurn(context.WithoutCancel(ctx), req.SessionID, placeholder.ID, summary)
	}
}

// openTurn loads the session history when none was sent, then stores the user message and an
// assistant placeholder.
func (s *Server) openTurn(ctx context.Context, req *chat.Request) (*store.Message, error) {
	if _, err := s.sessions.Get(ctx, req.SessionID); err != nil {
		return nil, err
	}
	if len(req.History) == 0 {
		messages, err := s.sessions.Messages(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		for _, message := range messages {
			role := llm.RoleUser
			if message.Role == store.RoleAssistant {
				role = llm.RoleModel
			}
			req.History = append(req.History, llm.Message{Role: role, Content: message.Content})
		}
	}
	if _, err := s.sessions.AddMessage(ctx, req.SessionID, &store.Message{Role: store.RoleUser, Content: req.Message}); err != nil {
		return nil, err
	}
	return s.sessions.AddMessage(ctx, req.SessionID, &store.Message{Role: store.RoleAssistant})
}

func (s *Server) closeTurn(ctx context.Context, sessionID, messageID string, summary *chat.Summary) {
	content := summary.Text
	if content == "" && summary.Err != nil {
		content = "Error: " + summary.Err.Error()
	}
	if err := s.sessions.UpdateMessage(ctx, sessionID, messageID, content, summary.ImageURL); err != nil {
		s.logger.Warn("failed to store assistant message", "session", sessionID, "error", err)
	}
}
