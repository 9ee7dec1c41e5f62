package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/mcpchat/internal/mcptest"
	"github.com/viant/mcpchat/registry"
	"github.com/viant/mcpchat/transport"
)

func connect(t *testing.T, servers map[string]*mcptest.Server, ids ...string) *registry.Registry {
	reg := registry.New(registry.WithFactory(mcptest.Factory(servers)))
	for _, id := range ids {
		require.NoError(t, reg.Connect(context.Background(), &transport.Config{ID: id, Name: id, Transport: transport.SSE, URL: "http://localhost/" + id}))
	}
	return reg
}

func echoTool(name string) *mcptest.Tool {
	return &mcptest.Tool{
		Name:        name,
		Description: "echoes " + name,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{"text": map[string]any{"type": "string"}}},
		Handle: func(args map[string]any) (map[string]any, error) {
			return map[string]any{"content": []any{map[string]any{"type": "text", "text": name}}}, nil
		},
	}
}

func TestBridge_ListDeclarations(t *testing.T) {
	servers := map[string]*mcptest.Server{
		"a":      {Name: "a", Tools: []*mcptest.Tool{echoTool("search"), echoTool("shared")}},
		"b":      {Name: "b", Tools: []*mcptest.Tool{echoTool("shared")}},
		"broken": {Name: "broken", ListToolsErr: errors.New("boom")},
		"idle":   {Name: "idle", Tools: []*mcptest.Tool{echoTool("idle")}},
	}
	reg := connect(t, servers, "a", "b", "broken")
	b := New(reg)

	catalog := b.ListDeclarations(context.Background(), []string{"a", "idle", "unknown", "broken", "b"})
	assert.Equal(t, []string{"search", "shared"}, catalog.Names())
	assert.Equal(t, map[string]string{"search": "a", "shared": "b"}, catalog.Routes)
	assert.Equal(t, "echoes search", catalog.Declarations[0].Description)
	assert.Equal(t, "object", catalog.Declarations[0].Parameters["type"])
}

func TestBridge_ListDeclarations_Paged(t *testing.T) {
	var testCases = []struct {
		description string
		server      *mcptest.Server
		expect      []string
	}{
		{
			description: "all pages collected",
			server:      &mcptest.Server{Name: "p", PageSize: 2, Tools: []*mcptest.Tool{echoTool("t1"), echoTool("t2"), echoTool("t3"), echoTool("t4"), echoTool("t5")}},
			expect:      []string{"t1", "t2", "t3", "t4", "t5"},
		},
		{
			description: "exact page boundary",
			server:      &mcptest.Server{Name: "p", PageSize: 2, Tools: []*mcptest.Tool{echoTool("t1"), echoTool("t2")}},
			expect:      []string{"t1", "t2"},
		},
		{
			description: "repeated cursor skips the server",
			server:      &mcptest.Server{Name: "p", PageSize: 1, RepeatCursor: true, Tools: []*mcptest.Tool{echoTool("t1"), echoTool("t2")}},
			expect:      []string{},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			reg := connect(t, map[string]*mcptest.Server{"p": testCase.server}, "p")
			catalog := New(reg).ListDeclarations(context.Background(), []string{"p"})
			assert.Equal(t, testCase.expect, catalog.Names())
		})
	}
}

func TestBridge_ListDeclarations_OnlyConnected(t *testing.T) {
	servers := map[string]*mcptest.Server{
		"a": {Name: "a", Tools: []*mcptest.Tool{echoTool("x")}},
	}
	reg := connect(t, servers, "a")
	catalog := New(reg).ListDeclarations(context.Background(), []string{"a", "gone"})
	assert.Equal(t, []string{"x"}, catalog.Names())
}

func TestBridge_Invoke(t *testing.T) {
	servers := map[string]*mcptest.Server{
		"a": {Name: "a", Tools: []*mcptest.Tool{echoTool("echo"), {
			Name: "fail",
			Handle: func(args map[string]any) (map[string]any, error) {
				return nil, errors.New("tool exploded")
			},
		}}},
	}
	reg := connect(t, servers, "a")
	b := New(reg, WithCallTimeout(time.Second))
	ctx := context.Background()

	result, err := b.Invoke(ctx, "a", "echo", nil)
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "echo", result.Content[0].Text)
	assert.Equal(t, map[string]any{}, servers["a"].LastArguments())

	_, err = b.Invoke(ctx, "a", "fail", map[string]any{"x": 1.0})
	var invocationErr *ToolInvocationError
	require.True(t, errors.As(err, &invocationErr), err)
	assert.Equal(t, "fail", invocationErr.Tool)
	assert.Contains(t, err.Error(), "tool exploded")

	_, err = b.Invoke(ctx, "missing", "echo", nil)
	var notConnected *ServerNotConnectedError
	require.True(t, errors.As(err, &notConnected), err)
	assert.Equal(t, "missing", notConnected.ServerID)
}
