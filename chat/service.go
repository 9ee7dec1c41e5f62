// Package chat drives one user turn: it gathers tool declarations, calls the model, executes the
// requested tool calls, relays their images and emits a typed event stream.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viant/mcpchat/bridge"
	"github.com/viant/mcpchat/llm"
	"github.com/viant/mcpchat/relay"
)

const maxResultPrompt = 16 * 1024

// Request is one user turn.
type Request struct {
	Message    string        `json:"message"`
	History    []llm.Message `json:"history,omitempty"`
	MCPEnabled bool          `json:"mcpEnabled"`
	ServerIDs  []string      `json:"serverIds,omitempty"`
	SessionID  string        `json:"sessionId,omitempty"`
}

// Summary is the outcome of a turn.
type Summary struct {
	Text     string
	ImageURL string
	Calls    []*FunctionCall
	Err      error
}

// Connections lists currently connected tool server ids.
type Connections interface {
	ConnectedIDs() []string
}

// Service runs turns.
type Service struct {
	model       llm.Model
	bridge      *bridge.Bridge
	relay       *relay.Relay
	connections Connections
	logger      *slog.Logger
}

// Turn runs req, passing events to sink. The last event is done, or error when the turn failed.
// Once ctx is cancelled or sink fails no further events are emitted.
func (s *Service) Turn(ctx context.Context, req *Request, sink Sink) *Summary {
	out := &emitter{ctx: ctx, sink: sink}
	summary := &Summary{}
	err := s.turn(ctx, req, out, summary)
	if err == nil {
		err = out.emit(&Event{Type: EventDone})
	}
	if err != nil {
		summary.Err = err
		if !out.stopped() {
			s.logger.Warn("chat turn failed", "session", req.SessionID, "error", err)
			_ = out.emit(errorEvent(err.Error()))
		}
	}
	return summary
}

func (s *Service) turn(ctx context.Context, req *Request, out *emitter, summary *Summary) error {
	if strings.TrimSpace(req.Message) == "" {
		return &StreamError{Stage: StageRequest, Err: errors.New("message is required")}
	}
	if !req.MCPEnabled {
		return s.stream(ctx, req, out, summary)
	}
	serverIDs := req.ServerIDs
	if len(serverIDs) == 0 {
		serverIDs = s.connections.ConnectedIDs()
	}
	catalog := s.bridge.ListDeclarations(ctx, serverIDs)
	if err := ctx.Err(); err != nil {
		return err
	}
	err := out.emit(&Event{Type: EventFunctionCall, Data: EventData{FunctionCall: &FunctionCallData{
		ID:   ToolsAvailableID,
		Name: ToolsAvailableName,
		Args: map[string]any{"tools": catalog.Names()},
	}}})
	if err != nil {
		return err
	}
	response, err := s.model.Generate(ctx, req.History, req.Message, catalog.Declarations)
	if err != nil {
		return s.failure(ctx, StageModel, err)
	}
	if len(response.Calls) == 0 {
		summary.Text = response.Text
		return out.emit(textEvent(response.Text, ""))
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "turn-" + uuid.NewString()
	}
	for _, requested := range response.Calls {
		call := &FunctionCall{ID: requested.ID, Name: requested.Name, Args: requested.Args, Status: StatusPending, Timestamp: time.Now()}
		if call.ID == "" {
			call.ID = uuid.NewString()
		}
		if call.Args == nil {
			call.Args = map[string]any{}
		}
		summary.Calls = append(summary.Calls, call)
		if err = s.execute(ctx, catalog, sessionID, call, out); err != nil {
			return err
		}
		if summary.ImageURL == "" {
			summary.ImageURL = call.ImageURL
		}
	}
	if !anyUsable(summary.Calls) {
		return nil
	}
	followUp, err := s.model.Generate(ctx, req.History, followUpPrompt(req.Message, summary.Calls), nil)
	if err != nil {
		return s.failure(ctx, StageFollowUp, err)
	}
	summary.Text = followUp.Text
	return out.emit(textEvent(followUp.Text, summary.ImageURL))
}

// execute runs one call. Call failures are reported as function_result events; only
// cancellation and sink errors are returned.
func (s *Service) execute(ctx context.Context, catalog *bridge.Catalog, sessionID string, call *FunctionCall, out *emitter) error {
	err := out.emit(&Event{Type: EventFunctionCall, Data: EventData{FunctionCall: &FunctionCallData{ID: call.ID, Name: call.Name, Args: call.Args}}})
	if err != nil {
		return err
	}
	call.Status = StatusExecuting
	serverID, ok := catalog.Routes[call.Name]
	var callErr error
	if !ok {
		callErr = fmt.Errorf("tool %s is not available", call.Name)
	} else {
		call.ServerID = serverID
		callErr = s.invoke(ctx, sessionID, call)
	}
	if callErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		call.fail(callErr)
		s.logger.Warn("tool call failed", "tool", call.Name, "server", serverID, "error", callErr)
		return out.emit(&Event{Type: EventFunctionResult, Data: EventData{FunctionResult: &FunctionResultData{
			ID:     call.ID,
			Name:   call.Name,
			Result: map[string]any{"error": callErr.Error()},
		}}})
	}
	return out.emit(&Event{Type: EventFunctionResult, Data: EventData{FunctionResult: &FunctionResultData{
		ID:       call.ID,
		Name:     call.Name,
		Result:   call.Result,
		ImageURL: call.ImageURL,
	}}})
}

func (s *Service) invoke(ctx context.Context, sessionID string, call *FunctionCall) error {
	result, err := s.bridge.Invoke(ctx, call.ServerID, call.Name, call.Args)
	if err != nil {
		return err
	}
	relayed, err := s.relay.Relay(ctx, result, sessionID, call.ID)
	if err != nil {
		return err
	}
	call.complete(relayed.Display, relayed.ImageURL)
	return nil
}

func (s *Service) stream(ctx context.Context, req *Request, out *emitter, summary *Summary) error {
	var text strings.Builder
	err := s.model.Stream(ctx, req.History, req.Message, func(fragment string) error {
		text.WriteString(fragment)
		return out.emit(textEvent(fragment, ""))
	})
	summary.Text = text.String()
	if err != nil {
		if out.stopped() {
			return err
		}
		return s.failure(ctx, StageModel, err)
	}
	return nil
}

func (s *Service) failure(ctx context.Context, stage Stage, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &StreamError{Stage: stage, Err: err}
}

func anyUsable(calls []*FunctionCall) bool {
	for _, call := range calls {
		if call.usable() {
			return true
		}
	}
	return false
}

func followUpPrompt(message string, calls []*FunctionCall) string {
	var sb strings.Builder
	sb.WriteString("The user asked: ")
	sb.WriteString(message)
	sb.WriteString("\n\nThe following tools were called to answer it:\n")
	for _, call := range calls {
		args, _ := json.Marshal(call.Args)
		sb.WriteString(fmt.Sprintf("\n- %s(%s)", call.Name, args))
		if call.Status != StatusCompleted {
			sb.WriteString(" failed: ")
			sb.WriteString(call.Error)
			continue
		}
		result, _ := json.Marshal(call.Result)
		if len(result) > maxResultPrompt {
			result = append(result[:maxResultPrompt], "..."...)
		}
		sb.WriteString(" returned: ")
		sb.Write(result)
		if call.ImageURL != "" {
			sb.WriteString("\n  image: ")
			sb.WriteString(call.ImageURL)
		}
	}
	sb.WriteString("\n\nUsing these results, answer the user's question in natural language.")
	return sb.String()
}

// emitter stops forwarding events once the context is cancelled or the sink fails.
type emitter struct {
	ctx  context.Context
	sink Sink
	err  error
}

func (e *emitter) emit(event *Event) error {
	if e.err != nil {
		return e.err
	}
	if err := e.ctx.Err(); err != nil {
		e.err = err
		return err
	}
	if err := e.sink(event); err != nil {
		e.err = err
		return err
	}
	return nil
}

func (e *emitter) stopped() bool {
	return e.err != nil
}

// New creates a chat service
func New(model llm.Model, bridge *bridge.Bridge, relay *relay.Relay, connections Connections, options ...Option) *Service {
	ret := &Service{model: model, bridge: bridge, relay: relay, connections: connections, logger: slog.Default()}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Option represents chat service option
type Option func(s *Service)

// WithLogger sets logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
