// Package llm defines the generative model oracle consumed by the chat orchestration loop.
package llm

import "context"

// Role is a two-party conversation role.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one history entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// FunctionDeclaration describes a callable function to the model.
type FunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// FunctionCall is a function invocation requested by the model.
type FunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Response is a non streaming completion: either text, requested calls, or both.
type Response struct {
	Text  string          `json:"text,omitempty"`
	Calls []*FunctionCall `json:"calls,omitempty"`
}

// Model is a generative model oracle.
type Model interface {
	// Stream completes prompt after history, passing text fragments to onText as they arrive.
	// An error returned by onText aborts the stream.
	Stream(ctx context.Context, history []Message, prompt string, onText func(text string) error) error
	// Generate completes prompt after history with the supplied function declarations.
	Generate(ctx context.Context, history []Message, prompt string, declarations []*FunctionDeclaration) (*Response, error)
}
