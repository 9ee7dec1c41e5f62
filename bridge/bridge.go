// Package bridge converts tool server catalogs into model function declarations
// and routes model function calls to the owning tool server.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/viant/mcp-protocol/schema"
	"github.com/viant/mcpchat/client"
	"github.com/viant/mcpchat/llm"
)

// Clients resolves live clients by server id.
type Clients interface {
	Client(id string) *client.Client
}

// Bridge exposes connected tool servers to the model.
type Bridge struct {
	clients     Clients
	logger      *slog.Logger
	callTimeout time.Duration
}

// Catalog is the result of ListDeclarations.
type Catalog struct {
	Declarations []*llm.FunctionDeclaration
	// Routes maps tool name to server id; on collision the last listed server wins.
	Routes map[string]string
}

// Names returns declared tool names in order.
func (c *Catalog) Names() []string {
	ret := make([]string, 0, len(c.Declarations))
	for _, declaration := range c.Declarations {
		ret = append(ret, declaration.Name)
	}
	return ret
}

// ListDeclarations collects the tool declarations of the given servers. Servers that are not
// connected contribute nothing; a server whose listing fails is logged and skipped.
func (b *Bridge) ListDeclarations(ctx context.Context, serverIDs []string) *Catalog {
	ret := &Catalog{Routes: map[string]string{}}
	for _, id := range serverIDs {
		cli := b.clients.Client(id)
		if cli == nil {
			continue
		}
		tools, err := listTools(ctx, cli)
		if err != nil {
			b.logger.Warn("failed to list MCP tools", "id", id, "error", err)
			continue
		}
		for i := range tools {
			declaration, err := toDeclaration(&tools[i])
			if err != nil {
				b.logger.Warn("skipping MCP tool", "id", id, "tool", tools[i].Name, "error", err)
				continue
			}
			if previous, ok := ret.Routes[declaration.Name]; ok {
				b.logger.Warn("MCP tool name collision, last server wins", "tool", declaration.Name, "previous", previous, "id", id)
				ret.Declarations = removeDeclaration(ret.Declarations, declaration.Name)
			}
			ret.Declarations = append(ret.Declarations, declaration)
			ret.Routes[declaration.Name] = id
		}
	}
	return ret
}

// listTools follows nextCursor until the server reports no further page.
func listTools(ctx context.Context, cli *client.Client) ([]schema.Tool, error) {
	var ret []schema.Tool
	var cursor *string
	seen := map[string]bool{}
	for {
		result, err := cli.ListTools(ctx, cursor)
		if err != nil {
			return nil, err
		}
		ret = append(ret, result.Tools...)
		if result.NextCursor == nil || *result.NextCursor == "" {
			return ret, nil
		}
		if seen[*result.NextCursor] {
			return nil, fmt.Errorf("tools/list repeated cursor %q", *result.NextCursor)
		}
		seen[*result.NextCursor] = true
		cursor = result.NextCursor
	}
}

// Invoke calls toolName on serverID. Missing args default to an empty object.
func (b *Bridge) Invoke(ctx context.Context, serverID, toolName string, args map[string]any) (*schema.CallToolResult, error) {
	cli := b.clients.Client(serverID)
	if cli == nil {
		return nil, &ServerNotConnectedError{ServerID: serverID}
	}
	if args == nil {
		args = map[string]any{}
	}
	if b.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.callTimeout)
		defer cancel()
	}
	started := time.Now()
	result, err := cli.CallTool(ctx, &schema.CallToolRequestParams{Name: toolName, Arguments: args})
	if err != nil {
		return nil, &ToolInvocationError{ServerID: serverID, Tool: toolName, Err: err}
	}
	b.logger.Debug("MCP tool called", "id", serverID, "tool", toolName, "elapsed", time.Since(started))
	return result, nil
}

func toDeclaration(tool *schema.Tool) (*llm.FunctionDeclaration, error) {
	data, err := json.Marshal(tool)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		InputSchema map[string]any `json:"inputSchema"`
	}
	if err = json.Unmarshal(data, &decoded); err != nil {
		return nil, err
	}
	if decoded.Name == "" {
		return nil, fmt.Errorf("tool name was empty")
	}
	if decoded.InputSchema == nil {
		decoded.InputSchema = map[string]any{"type": "object"}
	}
	return &llm.FunctionDeclaration{
		Name:        decoded.Name,
		Description: decoded.Description,
		Parameters:  decoded.InputSchema,
	}, nil
}

func removeDeclaration(declarations []*llm.FunctionDeclaration, name string) []*llm.FunctionDeclaration {
	ret := declarations[:0]
	for _, declaration := range declarations {
		if declaration.Name != name {
			ret = append(ret, declaration)
		}
	}
	return ret
}

// New creates a bridge
func New(clients Clients, options ...Option) *Bridge {
	ret := &Bridge{clients: clients, logger: slog.Default()}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}
