package chat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamError_Error(t *testing.T) {
	cause := errors.New("boom")
	var testCases = []struct {
		description string
		stage       Stage
		expect      string
	}{
		{description: "request", stage: StageRequest, expect: "boom"},
		{description: "model", stage: StageModel, expect: "model request failed: boom"},
		{description: "follow-up", stage: StageFollowUp, expect: "failed to summarize tool results: boom"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			err := &StreamError{Stage: testCase.stage, Err: cause}
			assert.Equal(t, testCase.expect, err.Error())
			assert.ErrorIs(t, err, cause)
		})
	}
}
