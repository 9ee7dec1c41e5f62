// Package mcptest provides an in-memory tool server speaking JSON-RPC, for tests.
package mcptest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/viant/jsonrpc"
	rpc "github.com/viant/jsonrpc/transport"
	"github.com/viant/mcp-protocol/schema"
	"github.com/viant/mcpchat/transport"
)

// Tool is an advertised tool with its handler.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	// Handle returns the tool result object, or an error that is sent back as a JSON-RPC error.
	Handle func(args map[string]any) (map[string]any, error)
}

// Server is an in-memory tool server.
type Server struct {
	Name           string
	Tools          []*Tool
	Prompts        []map[string]any
	Resources      []map[string]any
	InitializeErr  error
	ListToolsErr   error
	// PageSize splits tools/list into pages of this many tools when positive.
	PageSize int
	// RepeatCursor makes every tools/list page point back to the first page.
	RepeatCursor bool
	CloseErr       error
	mux            sync.Mutex
	closed         int
	calls          []string
	lastCallParams map[string]any
}

// Closed returns how many times a transport of this server was closed.
func (s *Server) Closed() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.closed
}

// Calls returns the names of invoked tools in order.
func (s *Server) Calls() []string {
	s.mux.Lock()
	defer s.mux.Unlock()
	return append([]string{}, s.calls...)
}

// LastArguments returns the arguments of the most recent tool call.
func (s *Server) LastArguments() map[string]any {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.lastCallParams
}

func (s *Server) handle(ctx context.Context, request *jsonrpc.Request) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch request.Method {
	case schema.MethodInitialize:
		if s.InitializeErr != nil {
			return nil, s.InitializeErr
		}
		return map[string]any{
			"protocolVersion": schema.LatestProtocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}, "prompts": map[string]any{}, "resources": map[string]any{}},
			"serverInfo":      map[string]any{"name": s.Name, "version": "1.0"},
		}, nil
	case schema.MethodToolsList:
		if s.ListToolsErr != nil {
			return nil, s.ListToolsErr
		}
		var params struct {
			Cursor string `json:"cursor"`
		}
		if len(request.Params) > 0 {
			_ = json.Unmarshal(request.Params, &params)
		}
		page, next := s.Tools, ""
		if s.PageSize > 0 {
			start, _ := strconv.Atoi(params.Cursor)
			if start > len(s.Tools) {
				start = len(s.Tools)
			}
			end := min(start+s.PageSize, len(s.Tools))
			page = s.Tools[start:end]
			if end < len(s.Tools) {
				next = strconv.Itoa(end)
			}
			if s.RepeatCursor {
				next = "0"
			}
		}
		tools := make([]map[string]any, 0, len(page))
		for _, tool := range page {
			inputSchema := tool.InputSchema
			if inputSchema == nil {
				inputSchema = map[string]any{"type": "object"}
			}
			tools = append(tools, map[string]any{"name": tool.Name, "description": tool.Description, "inputSchema": inputSchema})
		}
		ret := map[string]any{"tools": tools}
		if next != "" {
			ret["nextCursor"] = next
		}
		return ret, nil
	case schema.MethodToolsCall:
		var params struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		}
		if err := json.Unmarshal(request.Params, &params); err != nil {
			return nil, err
		}
		s.mux.Lock()
		s.calls = append(s.calls, params.Name)
		s.lastCallParams = params.Arguments
		s.mux.Unlock()
		for _, tool := range s.Tools {
			if tool.Name == params.Name && tool.Handle != nil {
				return tool.Handle(params.Arguments)
			}
		}
		return nil, fmt.Errorf("unknown tool: %s", params.Name)
	case schema.MethodPromptsList:
		return map[string]any{"prompts": nonNil(s.Prompts)}, nil
	case schema.MethodPromptsGet:
		var params struct {
			Name string `json:"name"`
		}
		_ = json.Unmarshal(request.Params, &params)
		return map[string]any{
			"description": params.Name,
			"messages":    []any{map[string]any{"role": "user", "content": map[string]any{"type": "text", "text": "prompt " + params.Name}}},
		}, nil
	case schema.MethodResourcesList:
		return map[string]any{"resources": nonNil(s.Resources)}, nil
	case schema.MethodResourcesTemplatesList:
		return map[string]any{"resourceTemplates": []any{}}, nil
	case schema.MethodResourcesRead:
		var params struct {
			URI string `json:"uri"`
		}
		_ = json.Unmarshal(request.Params, &params)
		return map[string]any{"contents": []any{map[string]any{"uri": params.URI, "mimeType": "text/plain", "text": "content of " + params.URI}}}, nil
	case schema.MethodPing:
		return map[string]any{}, nil
	}
	return nil, fmt.Errorf("method %s not found", request.Method)
}

func nonNil(items []map[string]any) []map[string]any {
	if items == nil {
		return []map[string]any{}
	}
	return items
}

// Transport returns a transport bound to the server.
func (s *Server) Transport(kind transport.Type) transport.Transport {
	return transport.Wrap(kind, &serverTransport{server: s}, nil)
}

type serverTransport struct {
	server *Server
}

func (t *serverTransport) Send(ctx context.Context, request *jsonrpc.Request) (*jsonrpc.Response, error) {
	result, err := t.server.handle(ctx, request)
	response := &jsonrpc.Response{Id: request.Id, Jsonrpc: jsonrpc.Version}
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		response.Error = jsonrpc.NewInternalError(err.Error(), nil)
		return response, nil
	}
	if response.Result, err = json.Marshal(result); err != nil {
		return nil, err
	}
	return response, nil
}

func (t *serverTransport) Notify(ctx context.Context, notification *jsonrpc.Notification) error {
	return nil
}

func (t *serverTransport) Close() error {
	t.server.mux.Lock()
	t.server.closed++
	t.server.mux.Unlock()
	return t.server.CloseErr
}

// Factory returns a transport factory resolving configs by id; unknown ids fail like an unreachable host.
func Factory(servers map[string]*Server) transport.Factory {
	return func(ctx context.Context, config *transport.Config, handler rpc.Handler) (transport.Transport, error) {
		if err := config.Validate(); err != nil {
			return nil, err
		}
		server, ok := servers[config.ID]
		if !ok {
			return nil, fmt.Errorf("dial tcp: lookup %s: no such host", config.ID)
		}
		return server.Transport(config.Transport), nil
	}
}
