package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
)

const (
	DefaultModel     = "claude-sonnet-4-5"
	DefaultMaxTokens = 4096
)

// MessageStreamer abstracts the Anthropic Messages API so the adapter can be tested
// with a canned stream.
type MessageStreamer interface {
	NewStreaming(ctx context.Context, params anthropic.MessageNewParams) *ssestream.Stream[anthropic.MessageStreamEventUnion]
}

type messageServiceAdapter struct {
	svc *anthropic.MessageService
}

func (a *messageServiceAdapter) NewStreaming(ctx context.Context, params anthropic.MessageNewParams) *ssestream.Stream[anthropic.MessageStreamEventUnion] {
	return a.svc.NewStreaming(ctx, params)
}

// Anthropic is a Model backed by the Anthropic Messages API.
type Anthropic struct {
	streamer  MessageStreamer
	model     string
	maxTokens int64
	system    string
}

// AnthropicOption customises the adapter.
type AnthropicOption func(a *Anthropic)

// WithModel sets the model name.
func WithModel(model string) AnthropicOption {
	return func(a *Anthropic) {
		if model != "" {
			a.model = model
		}
	}
}

// WithMaxTokens sets the completion token limit.
func WithMaxTokens(maxTokens int) AnthropicOption {
	return func(a *Anthropic) {
		if maxTokens > 0 {
			a.maxTokens = int64(maxTokens)
		}
	}
}

// WithSystemPrompt sets a system prompt sent with every request.
func WithSystemPrompt(system string) AnthropicOption {
	return func(a *Anthropic) {
		a.system = system
	}
}

// WithStreamer replaces the Messages API, mostly for tests.
func WithStreamer(streamer MessageStreamer) AnthropicOption {
	return func(a *Anthropic) {
		a.streamer = streamer
	}
}

// NewAnthropic creates the adapter. An empty apiKey falls back to ANTHROPIC_API_KEY.
func NewAnthropic(apiKey string, options ...AnthropicOption) *Anthropic {
	ret := &Anthropic{model: DefaultModel, maxTokens: DefaultMaxTokens}
	for _, opt := range options {
		opt(ret)
	}
	if ret.streamer == nil {
		var requestOptions []option.RequestOption
		if apiKey != "" {
			requestOptions = append(requestOptions, option.WithAPIKey(apiKey))
		}
		client := anthropic.NewClient(requestOptions...)
		ret.streamer = &messageServiceAdapter{svc: &client.Messages}
	}
	return ret
}

func (a *Anthropic) Stream(ctx context.Context, history []Message, prompt string, onText func(text string) error) error {
	_, err := a.run(ctx, a.params(history, prompt, nil), onText)
	return err
}

func (a *Anthropic) Generate(ctx context.Context, history []Message, prompt string, declarations []*FunctionDeclaration) (*Response, error) {
	msg, err := a.run(ctx, a.params(history, prompt, declarations), nil)
	if err != nil {
		return nil, err
	}
	ret := &Response{}
	var text strings.Builder
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			toolUse := block.AsToolUse()
			call := &FunctionCall{ID: toolUse.ID, Name: toolUse.Name, Args: map[string]any{}}
			if len(toolUse.Input) > 0 {
				if err := json.Unmarshal(toolUse.Input, &call.Args); err != nil {
					return nil, fmt.Errorf("invalid arguments for %s: %w", toolUse.Name, err)
				}
				if call.Args == nil {
					call.Args = map[string]any{}
				}
			}
			ret.Calls = append(ret.Calls, call)
		}
	}
	ret.Text = text.String()
	return ret, nil
}

func (a *Anthropic) run(ctx context.Context, params anthropic.MessageNewParams, onText func(text string) error) (*anthropic.Message, error) {
	stream := a.streamer.NewStreaming(ctx, params)
	defer stream.Close()
	msg := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := msg.Accumulate(event); err != nil {
			return nil, fmt.Errorf("accumulate error: %w", err)
		}
		if onText != nil && event.Type == "content_block_delta" && event.Delta.Type == "text_delta" && event.Delta.Text != "" {
			if err := onText(event.Delta.Text); err != nil {
				return nil, err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("stream error: %w", err)
	}
	return &msg, nil
}

func (a *Anthropic) params(history []Message, prompt string, declarations []*FunctionDeclaration) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages:  toMessageParams(history, prompt),
	}
	if a.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: a.system}}
	}
	if len(declarations) > 0 {
		params.Tools = toToolParams(declarations)
	}
	return params
}

// toMessageParams maps history to alternating user/assistant turns ending with prompt.
// Empty entries are dropped and consecutive entries of the same role are merged.
func toMessageParams(history []Message, prompt string) []anthropic.MessageParam {
	type turn struct {
		role  Role
		texts []string
	}
	var turns []*turn
	add := func(role Role, content string) {
		if strings.TrimSpace(content) == "" {
			return
		}
		if role != RoleModel {
			role = RoleUser
		}
		if n := len(turns); n > 0 && turns[n-1].role == role {
			turns[n-1].texts = append(turns[n-1].texts, content)
			return
		}
		turns = append(turns, &turn{role: role, texts: []string{content}})
	}
	for _, message := range history {
		add(message.Role, message.Content)
	}
	add(RoleUser, prompt)
	// the API requires the conversation to open with a user turn
	for len(turns) > 0 && turns[0].role == RoleModel {
		turns = turns[1:]
	}
	ret := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		text := anthropic.NewTextBlock(strings.Join(t.texts, "\n\n"))
		if t.role == RoleModel {
			ret = append(ret, anthropic.NewAssistantMessage(text))
			continue
		}
		ret = append(ret, anthropic.NewUserMessage(text))
	}
	return ret
}

func toToolParams(declarations []*FunctionDeclaration) []anthropic.ToolUnionParam {
	ret := make([]anthropic.ToolUnionParam, 0, len(declarations))
	for _, declaration := range declarations {
		ret = append(ret, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        declaration.Name,
				Description: param.NewOpt(declaration.Description),
				InputSchema: toInputSchema(declaration.Parameters),
			},
		})
	}
	return ret
}

func toInputSchema(parameters map[string]any) anthropic.ToolInputSchemaParam {
	schema := anthropic.ToolInputSchemaParam{}
	if props, ok := parameters["properties"]; ok {
		schema.Properties = props
	}
	switch required := parameters["required"].(type) {
	case []string:
		schema.Required = required
	case []any:
		for _, r := range required {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	// keywords such as $defs, additionalProperties or anyOf pass through unchanged
	for key, value := range parameters {
		switch key {
		case "properties", "required", "type":
			continue
		}
		if schema.ExtraFields == nil {
			schema.ExtraFields = map[string]any{}
		}
		schema.ExtraFields[key] = value
	}
	return schema
}
