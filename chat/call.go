package chat

import "time"

// Status is the lifecycle state of a function call within a turn.
type Status string

const (
	StatusPending   Status = "pending"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// FunctionCall records one function invocation of a turn; it is not persisted.
type FunctionCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	ServerID  string         `json:"serverId,omitempty"`
	Args      map[string]any `json:"args"`
	Status    Status         `json:"status"`
	Result    any            `json:"result,omitempty"`
	ImageURL  string         `json:"imageUrl,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func (c *FunctionCall) complete(result any, imageURL string) {
	c.Status = StatusCompleted
	c.Result = result
	c.ImageURL = imageURL
}

func (c *FunctionCall) fail(err error) {
	c.Status = StatusError
	c.Error = err.Error()
}

// usable reports whether the call produced a result worth summarizing.
func (c *FunctionCall) usable() bool {
	if c.Status != StatusCompleted {
		return false
	}
	if result, ok := c.Result.(map[string]any); ok {
		if isError, _ := result["isError"].(bool); isError {
			return false
		}
	}
	return true
}
