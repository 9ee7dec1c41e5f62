package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/mcp-protocol/schema"
)

var errUninitialized = fmt.Errorf("client is not initialized")

// Client is an MCP client bound to a single tool server transport.
type Client struct {
	capabilities    schema.ClientCapabilities
	info            schema.Implementation
	protocolVersion string
	transport       transport.Transport
	mux             sync.RWMutex
	initialized     bool
	server          *schema.InitializeResult
	closeOnce       sync.Once
	closeErr        error
}

func (c *Client) isInitialized() bool {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.initialized
}

// Initialize performs the protocol handshake.
func (c *Client) Initialize(ctx context.Context) (*schema.InitializeResult, error) {
	params := &schema.InitializeRequestParams{
		Capabilities:    c.capabilities,
		ClientInfo:      c.info,
		ProtocolVersion: c.protocolVersion,
	}

	req, err := jsonrpc.NewRequest(schema.MethodInitialize, params)
	if err != nil {
		return nil, jsonrpc.NewInvalidRequest(err.Error(), nil)
	}
	response, err := c.transport.Send(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to send initialize: %w", err)
	}
	if response.Error != nil {
		return nil, response.Error
	}
	var result schema.InitializeResult
	if err = json.Unmarshal(response.Result, &result); err != nil {
		return nil, jsonrpc.NewInternalError(fmt.Sprintf("failed to unmarshal InitializeResult: %v", err), nil)
	}
	err = c.transport.Notify(ctx, &jsonrpc.Notification{Method: schema.MethodNotificationInitialized})
	if err != nil {
		return nil, fmt.Errorf("failed to notify initialized: %w", err)
	}
	c.mux.Lock()
	c.initialized = true
	c.server = &result
	c.mux.Unlock()
	return &result, nil
}

// Server returns the handshake result, or nil before Initialize succeeds.
func (c *Client) Server() *schema.InitializeResult {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.server
}

func (c *Client) ListResourceTemplates(ctx context.Context, cursor *string) (*schema.ListResourceTemplatesResult, error) {
	params := &schema.ListResourceTemplatesRequestParams{Cursor: cursor}
	return send[schema.ListResourceTemplatesRequestParams, schema.ListResourceTemplatesResult](ctx, c, schema.MethodResourcesTemplatesList, params)
}

func (c *Client) ListResources(ctx context.Context, cursor *string) (*schema.ListResourcesResult, error) {
	params := &schema.ListResourcesRequestParams{
		Cursor: cursor,
	}
	return send[schema.ListResourcesRequestParams, schema.ListResourcesResult](ctx, c, schema.MethodResourcesList, params)
}

func (c *Client) ListPrompts(ctx context.Context, cursor *string) (*schema.ListPromptsResult, error) {
	params := &schema.ListPromptsRequestParams{
		Cursor: cursor,
	}
	return send[schema.ListPromptsRequestParams, schema.ListPromptsResult](ctx, c, schema.MethodPromptsList, params)
}

func (c *Client) ListTools(ctx context.Context, cursor *string) (*schema.ListToolsResult, error) {
	params := &schema.ListToolsRequestParams{
		Cursor: cursor,
	}
	return send[schema.ListToolsRequestParams, schema.ListToolsResult](ctx, c, schema.MethodToolsList, params)
}

func (c *Client) ReadResource(ctx context.Context, params *schema.ReadResourceRequestParams) (*schema.ReadResourceResult, error) {
	return send[schema.ReadResourceRequestParams, schema.ReadResourceResult](ctx, c, schema.MethodResourcesRead, params)
}

func (c *Client) GetPrompt(ctx context.Context, params *schema.GetPromptRequestParams) (*schema.GetPromptResult, error) {
	return send[schema.GetPromptRequestParams, schema.GetPromptResult](ctx, c, schema.MethodPromptsGet, params)
}

func (c *Client) CallTool(ctx context.Context, params *schema.CallToolRequestParams) (*schema.CallToolResult, error) {
	return send[schema.CallToolRequestParams, schema.CallToolResult](ctx, c, schema.MethodToolsCall, params)
}

func (c *Client) Ping(ctx context.Context, params *schema.PingRequestParams) (*schema.PingResult, error) {
	return send[schema.PingRequestParams, schema.PingResult](ctx, c, schema.MethodPing, params)
}

// Close closes the underlying transport when it supports closing. Subsequent calls return the first result.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mux.Lock()
		c.initialized = false
		c.mux.Unlock()
		if closer, ok := c.transport.(io.Closer); ok {
			c.closeErr = closer.Close()
		}
	})
	return c.closeErr
}

// New creates a client; Initialize must be called before any other operation.
func New(name, version string, transport transport.Transport, options ...Option) *Client {
	ret := &Client{
		info:      *schema.NewImplementation(name, version),
		transport: transport,
	}
	for _, opt := range options {
		opt(ret)
	}
	if ret.protocolVersion == "" {
		ret.protocolVersion = schema.LatestProtocolVersion
	}
	return ret
}

func send[P any, R any](ctx context.Context, client *Client, method string, parameters *P) (*R, error) {
	if !client.isInitialized() {
		return nil, jsonrpc.NewInternalError(errUninitialized.Error(), nil)
	}
	req, err := jsonrpc.NewRequest(method, parameters)
	if err != nil {
		return nil, jsonrpc.NewInvalidRequest(err.Error(), nil)
	}
	response, err := client.transport.Send(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", method, err)
	}
	if response.Error != nil {
		return nil, response.Error
	}
	var result R
	if len(response.Result) > 0 {
		if err = json.Unmarshal(response.Result, &result); err != nil {
			return nil, jsonrpc.NewInternalError(fmt.Sprintf("failed to unmarshal %s result: %v", method, err), nil)
		}
	}
	return &result, nil
}
