package registry

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/mcpchat/client"
	"github.com/viant/mcpchat/internal/collection"
	"github.com/viant/mcpchat/transport"
)

const (
	// ClientName is the implementation name sent in the handshake.
	ClientName = "mcpchat"
	// ClientVersion is the implementation version sent in the handshake.
	ClientVersion = "1.0.0"
)

// Connection is a live tool server connection.
type Connection struct {
	Client      *client.Client
	Transport   transport.Transport
	Config      *transport.Config
	Connected   bool
	ConnectedAt time.Time
	seq         uint64
}

// Info describes a connection for status reporting.
type Info struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Transport   transport.Type `json:"transport"`
	Connected   bool           `json:"connected"`
	ConnectedAt time.Time      `json:"connectedAt"`
}

// Registry owns every live tool server connection of the process.
// connect and disconnect on the same id are serialised; different ids proceed independently.
type Registry struct {
	connections    *collection.SyncMap[string, *Connection]
	locks          *collection.KeyedLocker[string]
	factory        transport.Factory
	logger         *slog.Logger
	connectTimeout time.Duration
	name           string
	version        string
	seq            atomic.Uint64
}

// Connect establishes a connection for config.ID and performs the protocol handshake.
func (r *Registry) Connect(ctx context.Context, config *transport.Config) error {
	if config == nil || config.ID == "" {
		return &transport.ConfigurationError{Field: "id", Reason: "server id is required"}
	}
	id := config.ID
	release := r.locks.Lock(id)
	defer release()

	if existing, ok := r.connections.Get(id); ok {
		if existing.Connected {
			return &AlreadyConnectedError{ID: id}
		}
		r.connections.Delete(id)
		r.closeQuietly(id, existing.Client)
	}
	config = config.Clone()
	connectCtx := ctx
	if r.connectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, r.connectTimeout)
		defer cancel()
	}
	t, err := r.factory(connectCtx, config, client.NewHandler(id, r.logger))
	if err != nil {
		var configErr *transport.ConfigurationError
		var unsupported *transport.UnsupportedTransportError
		if errors.As(err, &configErr) || errors.As(err, &unsupported) {
			return err
		}
		return &ConnectFailedError{ID: id, Err: err}
	}
	cli := client.New(r.name, r.version, t)
	if _, err = cli.Initialize(connectCtx); err != nil {
		r.closeQuietly(id, cli)
		r.logger.Warn("MCP server handshake failed", "id", id, "transport", config.Transport, "error", err)
		return &ConnectFailedError{ID: id, Err: err}
	}
	r.connections.Put(id, &Connection{
		Client:      cli,
		Transport:   t,
		Config:      config,
		Connected:   true,
		ConnectedAt: time.Now(),
		seq:         r.seq.Add(1),
	})
	r.logger.Info("MCP server connected", "id", id, "name", config.Name, "transport", config.Transport)
	return nil
}

// Disconnect closes and removes the connection for id. Close errors are logged, never returned.
func (r *Registry) Disconnect(ctx context.Context, id string) error {
	release := r.locks.Lock(id)
	defer release()
	conn, ok := r.connections.Delete(id)
	if !ok {
		return &NotConnectedError{ID: id}
	}
	r.closeQuietly(id, conn.Client)
	r.logger.Info("MCP server disconnected", "id", id)
	return nil
}

// Client returns the live client for id or nil.
func (r *Registry) Client(id string) *client.Client {
	conn, ok := r.connections.Get(id)
	if !ok || !conn.Connected {
		return nil
	}
	return conn.Client
}

func (r *Registry) IsConnected(id string) bool {
	return r.Client(id) != nil
}

// Config returns a copy of the config of the live connection for id or nil.
func (r *Registry) Config(id string) *transport.Config {
	conn, ok := r.connections.Get(id)
	if !ok || !conn.Connected {
		return nil
	}
	return conn.Config.Clone()
}

// ConnectedIDs returns connected ids in connection order.
func (r *Registry) ConnectedIDs() []string {
	connections := r.snapshot()
	ret := make([]string, 0, len(connections))
	for _, conn := range connections {
		ret = append(ret, conn.Config.ID)
	}
	return ret
}

// Connections returns connection infos in connection order.
func (r *Registry) Connections() []*Info {
	connections := r.snapshot()
	ret := make([]*Info, 0, len(connections))
	for _, conn := range connections {
		ret = append(ret, &Info{
			ID:          conn.Config.ID,
			Name:        conn.Config.Name,
			Transport:   conn.Config.Transport,
			Connected:   conn.Connected,
			ConnectedAt: conn.ConnectedAt,
		})
	}
	return ret
}

// DisconnectAll concurrently disconnects every tracked id; failures are logged.
func (r *Registry) DisconnectAll(ctx context.Context) {
	var ids []string
	r.connections.Range(func(id string, _ *Connection) bool {
		ids = append(ids, id)
		return true
	})
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := r.Disconnect(ctx, id); err != nil {
				r.logger.Warn("failed to disconnect MCP server", "id", id, "error", err)
			}
		}(id)
	}
	wg.Wait()
}

func (r *Registry) snapshot() []*Connection {
	var ret []*Connection
	r.connections.Range(func(_ string, conn *Connection) bool {
		if conn.Connected {
			ret = append(ret, conn)
		}
		return true
	})
	sort.Slice(ret, func(i, j int) bool { return ret[i].seq < ret[j].seq })
	return ret
}

func (r *Registry) closeQuietly(id string, cli *client.Client) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("panic while closing MCP client", "id", id, "panic", p)
		}
	}()
	if err := cli.Close(); err != nil {
		r.logger.Warn("error closing MCP client", "id", id, "error", err)
	}
}

// New creates a registry. A process should own exactly one.
func New(options ...Option) *Registry {
	ret := &Registry{
		connections: collection.NewSyncMap[string, *Connection](),
		locks:       collection.NewKeyedLocker[string](),
		factory:     transport.NewFactory(),
		logger:      slog.Default(),
		name:        ClientName,
		version:     ClientVersion,
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}
