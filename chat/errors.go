package chat

import "fmt"

// Stage names the turn step that failed.
type Stage string

const (
	StageRequest  Stage = "request"
	StageModel    Stage = "model"
	StageFollowUp Stage = "follow-up"
)

// StreamError is an uncaught turn failure, reported as the terminal error event.
type StreamError struct {
	Stage Stage
	Err   error
}

func (e *StreamError) Error() string {
	switch e.Stage {
	case StageRequest:
		return e.Err.Error()
	case StageFollowUp:
		return fmt.Sprintf("failed to summarize tool results: %v", e.Err)
	}
	return fmt.Sprintf("model request failed: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
