package chat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// EventType is the kind of a turn event.
type EventType string

const (
	EventText           EventType = "text"
	EventFunctionCall   EventType = "function_call"
	EventFunctionResult EventType = "function_result"
	EventError          EventType = "error"
	EventDone           EventType = "done"
)

// ToolsAvailableID identifies the informational function_call event listing the available tools.
const (
	ToolsAvailableID   = "tools-available"
	ToolsAvailableName = "available_tools"
)

// FunctionCallData describes a requested function call.
type FunctionCallData struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// FunctionResultData carries a function call result.
type FunctionResultData struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Result   any    `json:"result"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// EventData is the payload of an event; fields are set according to the event type.
type EventData struct {
	Text           string              `json:"text,omitempty"`
	ImageURL       string              `json:"imageUrl,omitempty"`
	FunctionCall   *FunctionCallData   `json:"functionCall,omitempty"`
	FunctionResult *FunctionResultData `json:"functionResult,omitempty"`
	Error          string              `json:"error,omitempty"`
}

// Event is the unit emitted to the caller during a turn.
type Event struct {
	Type EventType `json:"type"`
	Data EventData `json:"data"`
}

// Sink receives turn events; an error stops the turn.
type Sink func(event *Event) error

func textEvent(text, imageURL string) *Event {
	return &Event{Type: EventText, Data: EventData{Text: text, ImageURL: imageURL}}
}

func errorEvent(message string) *Event {
	return &Event{Type: EventError, Data: EventData{Error: message}}
}

// EventWriter writes events as `data: <json>` frames, flushing after each one when supported.
type EventWriter struct {
	w       io.Writer
	flusher http.Flusher
}

func (w *EventWriter) Write(event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err = fmt.Fprintf(w.w, "data: %s\n\n", data); err != nil {
		return err
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}

// NewEventWriter creates an EventWriter
func NewEventWriter(w io.Writer) *EventWriter {
	ret := &EventWriter{w: w}
	ret.flusher, _ = w.(http.Flusher)
	return ret
}
