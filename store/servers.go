package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viant/mcpchat/transport"
)

const serversFolder = "servers"

// Servers persists tool server configurations.
type Servers struct {
	docs *documents
	mux  sync.Mutex
}

// NewID returns a new server id.
func NewID() string {
	return "mcp-" + uuid.NewString()
}

// Save creates or replaces a configuration, assigning an id and timestamps.
func (s *Servers) Save(ctx context.Context, config *transport.Config) (*transport.Config, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	ret := config.Clone()
	now := time.Now().UTC()
	if ret.ID == "" {
		ret.ID = NewID()
	}
	existing := &transport.Config{}
	if err := s.docs.get(ctx, serversFolder, ret.ID, existing); err == nil {
		ret.CreatedAt = existing.CreatedAt
	} else if notFound := (*NotFoundError)(nil); !errors.As(err, &notFound) {
		return nil, err
	}
	if ret.CreatedAt.IsZero() {
		ret.CreatedAt = now
	}
	ret.UpdatedAt = now
	if err := s.docs.put(ctx, serversFolder, ret.ID, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// Get returns the configuration for id or a NotFoundError.
func (s *Servers) Get(ctx context.Context, id string) (*transport.Config, error) {
	ret := &transport.Config{}
	if err := s.docs.get(ctx, serversFolder, id, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// List returns configurations ordered by creation time.
func (s *Servers) List(ctx context.Context) ([]*transport.Config, error) {
	items, err := s.docs.list(ctx, serversFolder)
	if err != nil {
		return nil, err
	}
	ret := make([]*transport.Config, 0, len(items))
	for _, data := range items {
		config := &transport.Config{}
		if err = json.Unmarshal(data, config); err != nil {
			return nil, err
		}
		ret = append(ret, config)
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].CreatedAt.Equal(ret[j].CreatedAt) {
			return ret[i].ID < ret[j].ID
		}
		return ret[i].CreatedAt.Before(ret[j].CreatedAt)
	})
	return ret, nil
}

// Delete removes the configuration for id.
func (s *Servers) Delete(ctx context.Context, id string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	ok, err := s.docs.delete(ctx, serversFolder, id)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{Kind: "server", ID: id}
	}
	return nil
}

// NewServers creates a server store rooted at baseURL.
func NewServers(baseURL string) *Servers {
	return &Servers{docs: newDocuments(baseURL)}
}
