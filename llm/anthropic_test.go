package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStreamer struct {
	mu        sync.Mutex
	responses []string
	params    []anthropic.MessageNewParams
}

func (m *mockStreamer) NewStreaming(ctx context.Context, params anthropic.MessageNewParams) *ssestream.Stream[anthropic.MessageStreamEventUnion] {
	m.mu.Lock()
	idx := len(m.params)
	m.params = append(m.params, params)
	m.mu.Unlock()
	if idx >= len(m.responses) {
		return ssestream.NewStream[anthropic.MessageStreamEventUnion](nil, fmt.Errorf("no more mock responses"))
	}
	resp := &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(strings.NewReader(m.responses[idx])),
		Header:     http.Header{},
	}
	return ssestream.NewStream[anthropic.MessageStreamEventUnion](ssestream.NewDecoder(resp), nil)
}

type sseEvent struct {
	Type string
	Data string
}

func buildSSE(events ...sseEvent) string {
	var sb strings.Builder
	for _, e := range events {
		sb.WriteString(fmt.Sprintf("event: %s\ndata: %s\n\n", e.Type, e.Data))
	}
	return sb.String()
}

func messageStart() sseEvent {
	return sseEvent{Type: "message_start", Data: `{"type":"message_start","message":{"id":"msg_test","type":"message","role":"assistant","content":[],"model":"test","stop_reason":null,"usage":{"input_tokens":1,"output_tokens":0}}}`}
}

func textBlockStart(index int) sseEvent {
	return sseEvent{Type: "content_block_start", Data: fmt.Sprintf(`{"type":"content_block_start","index":%d,"content_block":{"type":"text","text":""}}`, index)}
}

func textDelta(index int, text string) sseEvent {
	return sseEvent{Type: "content_block_delta", Data: fmt.Sprintf(`{"type":"content_block_delta","index":%d,"delta":{"type":"text_delta","text":"%s"}}`, index, text)}
}

func toolUseStart(index int, id, name string) sseEvent {
	return sseEvent{Type: "content_block_start", Data: fmt.Sprintf(`{"type":"content_block_start","index":%d,"content_block":{"type":"tool_use","id":"%s","name":"%s","input":{}}}`, index, id, name)}
}

func inputJSONDelta(index int, json string) sseEvent {
	return sseEvent{Type: "content_block_delta", Data: fmt.Sprintf(`{"type":"content_block_delta","index":%d,"delta":{"type":"input_json_delta","partial_json":"%s"}}`, index, json)}
}

func blockStop(index int) sseEvent {
	return sseEvent{Type: "content_block_stop", Data: fmt.Sprintf(`{"type":"content_block_stop","index":%d}`, index)}
}

func messageDelta(stopReason string) sseEvent {
	return sseEvent{Type: "message_delta", Data: fmt.Sprintf(`{"type":"message_delta","delta":{"stop_reason":"%s","stop_sequence":null},"usage":{"output_tokens":5}}`, stopReason)}
}

func messageStop() sseEvent {
	return sseEvent{Type: "message_stop", Data: `{"type":"message_stop"}`}
}

func TestAnthropic_Stream(t *testing.T) {
	streamer := &mockStreamer{responses: []string{buildSSE(
		messageStart(), textBlockStart(0), textDelta(0, "He"), textDelta(0, "llo"), blockStop(0), messageDelta("end_turn"), messageStop(),
	)}}
	model := NewAnthropic("", WithStreamer(streamer), WithModel("m1"), WithSystemPrompt("be brief"))

	var fragments []string
	err := model.Stream(context.Background(), []Message{{Role: RoleUser, Content: "earlier"}, {Role: RoleModel, Content: "reply"}}, "hi", func(text string) error {
		fragments = append(fragments, text)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"He", "llo"}, fragments)

	require.Len(t, streamer.params, 1)
	params := streamer.params[0]
	assert.EqualValues(t, "m1", params.Model)
	assert.EqualValues(t, DefaultMaxTokens, params.MaxTokens)
	require.Len(t, params.Messages, 3)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, params.Messages[1].Role)
	require.Len(t, params.System, 1)
	assert.Empty(t, params.Tools)
}

func TestAnthropic_Stream_CallbackAbort(t *testing.T) {
	streamer := &mockStreamer{responses: []string{buildSSE(
		messageStart(), textBlockStart(0), textDelta(0, "a"), textDelta(0, "b"), blockStop(0), messageDelta("end_turn"), messageStop(),
	)}}
	model := NewAnthropic("", WithStreamer(streamer))
	abort := errors.New("client gone")
	count := 0
	err := model.Stream(context.Background(), nil, "hi", func(text string) error {
		count++
		return abort
	})
	assert.ErrorIs(t, err, abort)
	assert.Equal(t, 1, count)
}

func TestAnthropic_Generate(t *testing.T) {
	streamer := &mockStreamer{responses: []string{buildSSE(
		messageStart(),
		textBlockStart(0), textDelta(0, "Checking"), blockStop(0),
		toolUseStart(1, "toolu_1", "get_weather"), inputJSONDelta(1, `{\"city\":`), inputJSONDelta(1, `\"Paris\"}`), blockStop(1),
		messageDelta("tool_use"), messageStop(),
	)}}
	model := NewAnthropic("", WithStreamer(streamer))
	declarations := []*FunctionDeclaration{{
		Name:        "get_weather",
		Description: "weather",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{"city": map[string]any{"type": "string"}}, "required": []any{"city"}},
	}}

	response, err := model.Generate(context.Background(), nil, "weather in Paris?", declarations)
	require.NoError(t, err)
	assert.Equal(t, "Checking", response.Text)
	require.Len(t, response.Calls, 1)
	assert.Equal(t, "toolu_1", response.Calls[0].ID)
	assert.Equal(t, "get_weather", response.Calls[0].Name)
	assert.Equal(t, map[string]any{"city": "Paris"}, response.Calls[0].Args)

	require.Len(t, streamer.params[0].Tools, 1)
	tool := streamer.params[0].Tools[0].OfTool
	require.NotNil(t, tool)
	assert.Equal(t, "get_weather", tool.Name)
	assert.Equal(t, []string{"city"}, tool.InputSchema.Required)
}

func TestAnthropic_Generate_StreamError(t *testing.T) {
	model := NewAnthropic("", WithStreamer(&mockStreamer{}))
	_, err := model.Generate(context.Background(), nil, "hi", nil)
	require.Error(t, err)
}

func TestToMessageParams(t *testing.T) {
	history := []Message{
		{Role: RoleModel, Content: "greeting"},
		{Role: RoleUser, Content: "a"},
		{Role: RoleUser, Content: "b"},
		{Role: RoleModel, Content: " "},
		{Role: RoleModel, Content: "c"},
	}
	params := toMessageParams(history, "d")
	require.Len(t, params, 3)
	assert.Equal(t, anthropic.MessageParamRoleUser, params[0].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, params[1].Role)
	assert.Equal(t, anthropic.MessageParamRoleUser, params[2].Role)
	assert.Equal(t, "a\n\nb", params[0].Content[0].OfText.Text)
}

func TestToInputSchema(t *testing.T) {
	var testCases = []struct {
		description string
		parameters  map[string]any
		expect      string
	}{
		{
			description: "properties and required",
			parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"q": map[string]any{"type": "string"}},
				"required":   []any{"q"},
			},
			expect: `{"properties":{"q":{"type":"string"}},"required":["q"],"type":"object"}`,
		},
		{
			description: "definitions and additional properties",
			parameters: map[string]any{
				"type":                 "object",
				"properties":           map[string]any{"item": map[string]any{"$ref": "#/$defs/Item"}},
				"$defs":                map[string]any{"Item": map[string]any{"type": "string"}},
				"additionalProperties": false,
			},
			expect: `{"$defs":{"Item":{"type":"string"}},"additionalProperties":false,"properties":{"item":{"$ref":"#/$defs/Item"}},"type":"object"}`,
		},
		{
			description: "empty",
			parameters:  nil,
			expect:      `{"type":"object"}`,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			data, err := json.Marshal(toInputSchema(testCase.parameters))
			require.NoError(t, err)
			assert.JSONEq(t, testCase.expect, string(data))
		})
	}
}
