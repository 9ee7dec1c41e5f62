package bridge

import "fmt"

// ServerNotConnectedError reports an operation on a server without a live client.
type ServerNotConnectedError struct {
	ServerID string
}

func (e *ServerNotConnectedError) Error() string {
	return fmt.Sprintf("server %s is not connected", e.ServerID)
}

// ToolInvocationError wraps a failed tool call.
type ToolInvocationError struct {
	ServerID string
	Tool     string
	Err      error
}

func (e *ToolInvocationError) Error() string {
	return fmt.Sprintf("failed to call tool %s: %v", e.Tool, e.Err)
}

func (e *ToolInvocationError) Unwrap() error {
	return e.Err
}
