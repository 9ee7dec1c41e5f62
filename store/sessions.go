package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	sessionsFolder = "sessions"
	messagesFolder = "messages"
	// DefaultTitle is the title of a session before its first user message.
	DefaultTitle = "New chat"
	maxTitle     = 50
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is a chat session.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is a chat message.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Sessions persists chat sessions and their messages.
type Sessions struct {
	docs *documents
	mux  sync.Mutex
}

// Create starts a session; an empty title uses DefaultTitle.
func (s *Sessions) Create(ctx context.Context, title string) (*Session, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if title = strings.TrimSpace(title); title == "" {
		title = DefaultTitle
	}
	now := time.Now().UTC()
	ret := &Session{ID: uuid.NewString(), Title: truncate(title, maxTitle), CreatedAt: now, UpdatedAt: now}
	if err := s.docs.put(ctx, sessionsFolder, ret.ID, ret); err != nil {
		return nil, err
	}
	if err := s.docs.put(ctx, messagesFolder, ret.ID, []*Message{}); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Sessions) Get(ctx context.Context, id string) (*Session, error) {
	ret := &Session{}
	if err := s.docs.get(ctx, sessionsFolder, id, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// List returns sessions, most recently updated first.
func (s *Sessions) List(ctx context.Context) ([]*Session, error) {
	items, err := s.docs.list(ctx, sessionsFolder)
	if err != nil {
		return nil, err
	}
	ret := make([]*Session, 0, len(items))
	for _, data := range items {
		session := &Session{}
		if err = json.Unmarshal(data, session); err != nil {
			return nil, err
		}
		ret = append(ret, session)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].UpdatedAt.After(ret[j].UpdatedAt) })
	return ret, nil
}

// Delete removes a session and its messages.
func (s *Sessions) Delete(ctx context.Context, id string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	ok, err := s.docs.delete(ctx, sessionsFolder, id)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{Kind: "session", ID: id}
	}
	_, err = s.docs.delete(ctx, messagesFolder, id)
	return err
}

// Messages returns session messages in insertion order.
func (s *Sessions) Messages(ctx context.Context, sessionID string) ([]*Message, error) {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.messages(ctx, sessionID)
}

func (s *Sessions) messages(ctx context.Context, sessionID string) ([]*Message, error) {
	var ret []*Message
	err := s.docs.get(ctx, messagesFolder, sessionID, &ret)
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return nil, nil
	}
	return ret, err
}

// AddMessage appends a message; the first user message titles a session still using DefaultTitle.
func (s *Sessions) AddMessage(ctx context.Context, sessionID string, message *Message) (*Message, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	messages, err := s.messages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	ret := *message
	if ret.ID == "" {
		ret.ID = uuid.NewString()
	}
	ret.SessionID = sessionID
	ret.CreatedAt, ret.UpdatedAt = now, now
	messages = append(messages, &ret)
	if err = s.docs.put(ctx, messagesFolder, sessionID, messages); err != nil {
		return nil, err
	}
	if ret.Role == RoleUser && session.Title == DefaultTitle && strings.TrimSpace(ret.Content) != "" {
		session.Title = truncate(strings.TrimSpace(ret.Content), maxTitle)
	}
	session.UpdatedAt = now
	if err = s.docs.put(ctx, sessionsFolder, sessionID, session); err != nil {
		return nil, err
	}
	return &ret, nil
}

// UpdateMessage replaces the content and image URL of a message.
func (s *Sessions) UpdateMessage(ctx context.Context, sessionID, messageID, content, imageURL string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	messages, err := s.messages(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, message := range messages {
		if message.ID != messageID {
			continue
		}
		message.Content = content
		message.ImageURL = imageURL
		message.UpdatedAt = time.Now().UTC()
		return s.docs.put(ctx, messagesFolder, sessionID, messages)
	}
	return &NotFoundError{Kind: "message", ID: messageID}
}

func truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit])
}

// NewSessions creates a session store rooted at baseURL.
func NewSessions(baseURL string) *Sessions {
	return &Sessions{docs: newDocuments(baseURL)}
}
