// Package client implements the MCP protocol client handle used for every tool server connection.
//
// It is a thin wrapper around the protocol types defined in the
// github.com/viant/mcp-protocol module and adds:
//   - the `initialize` handshake followed by the `notifications/initialized` notification,
//   - strongly typed `ListTools`, `CallTool`, `ListPrompts`, `GetPrompt`, `ListResources`,
//     `ReadResource` helpers that avoid manual request/response handling,
//   - a server-to-client request Handler that answers pings and rejects unsupported methods.
//
// The package is transport-agnostic; callers supply any implementation that satisfies
// the jsonrpc/transport.Transport interface.
//
// Example:
//
//	t, _ := transport.New(ctx, &transport.Config{Transport: transport.SSE, URL: "https://mcp.example.com/sse"}, client.NewHandler("demo", nil))
//	cli := client.New("mcpchat", "1.0.0", t)
//	_, _ = cli.Initialize(ctx)
//	tools, _ := cli.ListTools(ctx, nil)
package client
