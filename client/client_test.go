package client

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/mcp-protocol/schema"
)

// mock transport to capture send and return a canned response
type mockTransport struct {
	send          func(ctx context.Context, r *jsonrpc.Request) (*jsonrpc.Response, error)
	notifications []string
	closed        int
}

func (m *mockTransport) Notify(ctx context.Context, n *jsonrpc.Notification) error {
	m.notifications = append(m.notifications, n.Method)
	return nil
}

func (m *mockTransport) Send(ctx context.Context, r *jsonrpc.Request) (*jsonrpc.Response, error) {
	return m.send(ctx, r)
}

func (m *mockTransport) Close() error {
	m.closed++
	return nil
}

var _ transport.Transport = (*mockTransport)(nil)

const initializeResult = `{"protocolVersion":"2025-06-18","capabilities":{"tools":{}},"serverInfo":{"name":"TestServer","version":"1.0"}}`

func TestClient_Initialize(t *testing.T) {
	var methods []string
	mt := &mockTransport{send: func(ctx context.Context, r *jsonrpc.Request) (*jsonrpc.Response, error) {
		methods = append(methods, r.Method)
		var params map[string]any
		require.NoError(t, json.Unmarshal(r.Params, &params))
		assert.Equal(t, "mcpchat", params["clientInfo"].(map[string]any)["name"])
		return &jsonrpc.Response{Jsonrpc: jsonrpc.Version, Result: []byte(initializeResult)}, nil
	}}
	cli := New("mcpchat", "1.0.0", mt)
	assert.Nil(t, cli.Server())

	result, err := cli.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "TestServer", result.ServerInfo.Name)
	assert.Equal(t, []string{schema.MethodInitialize}, methods)
	assert.Equal(t, []string{schema.MethodNotificationInitialized}, mt.notifications)
	assert.NotNil(t, cli.Server())
}

func TestClient_Initialize_RPCError(t *testing.T) {
	mt := &mockTransport{send: func(ctx context.Context, r *jsonrpc.Request) (*jsonrpc.Response, error) {
		return &jsonrpc.Response{Jsonrpc: jsonrpc.Version, Error: jsonrpc.NewInternalError("boom", nil)}, nil
	}}
	cli := New("mcpchat", "1.0.0", mt)
	_, err := cli.Initialize(context.Background())
	require.Error(t, err)
	assert.Empty(t, mt.notifications)

	_, err = cli.ListTools(context.Background(), nil)
	require.Error(t, err, "calls before a successful handshake must fail")
}

func TestClient_Initialize_SendError(t *testing.T) {
	cause := errors.New("dial tcp: lookup nowhere: no such host")
	mt := &mockTransport{send: func(ctx context.Context, r *jsonrpc.Request) (*jsonrpc.Response, error) {
		return nil, cause
	}}
	_, err := New("mcpchat", "1.0.0", mt).Initialize(context.Background())
	assert.ErrorIs(t, err, cause)
}

func TestClient_CallTool(t *testing.T) {
	mt := &mockTransport{send: func(ctx context.Context, r *jsonrpc.Request) (*jsonrpc.Response, error) {
		switch r.Method {
		case schema.MethodInitialize:
			return &jsonrpc.Response{Jsonrpc: jsonrpc.Version, Result: []byte(initializeResult)}, nil
		case schema.MethodToolsCall:
			var params map[string]any
			require.NoError(t, json.Unmarshal(r.Params, &params))
			assert.Equal(t, "echo", params["name"])
			assert.Equal(t, map[string]any{"text": "hi"}, params["arguments"])
			return &jsonrpc.Response{Jsonrpc: jsonrpc.Version, Result: []byte(`{"content":[{"type":"text","text":"hi"}]}`)}, nil
		}
		return &jsonrpc.Response{Jsonrpc: jsonrpc.Version, Error: jsonrpc.NewMethodNotFound(r.Method, nil)}, nil
	}}
	cli := New("mcpchat", "1.0.0", mt)
	_, err := cli.Initialize(context.Background())
	require.NoError(t, err)

	result, err := cli.CallTool(context.Background(), &schema.CallToolRequestParams{Name: "echo", Arguments: map[string]any{"text": "hi"}})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "hi", result.Content[0].Text)

	_, err = cli.ListPrompts(context.Background(), nil)
	var rpcErr *jsonrpc.Error
	assert.True(t, errors.As(err, &rpcErr))
}

func TestClient_Close(t *testing.T) {
	mt := &mockTransport{}
	cli := New("mcpchat", "1.0.0", mt)
	require.NoError(t, cli.Close())
	require.NoError(t, cli.Close())
	assert.Equal(t, 1, mt.closed)
}

func TestHandler_Serve(t *testing.T) {
	h := NewHandler("srv", nil)

	resp := &jsonrpc.Response{}
	h.Serve(context.Background(), &jsonrpc.Request{Jsonrpc: jsonrpc.Version, Method: schema.MethodPing, Id: 1}, resp)
	assert.Nil(t, resp.Error)
	assert.JSONEq(t, `{}`, string(resp.Result))

	resp = &jsonrpc.Response{}
	h.Serve(context.Background(), &jsonrpc.Request{Jsonrpc: jsonrpc.Version, Method: schema.MethodRootsList, Id: 2}, resp)
	require.NotNil(t, resp.Error)
	assert.EqualValues(t, 2, resp.Id)
}
