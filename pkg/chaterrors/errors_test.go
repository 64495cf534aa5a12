package chaterrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "llm_call", KindLLMCall.String())
	assert.Equal(t, "reprocessing", KindReprocessing.String())
	assert.Equal(t, "unknown", KindUnknown.String())
	assert.Equal(t, "invalid", Kind(99).String())
}

func TestErrorMessage(t *testing.T) {
	err := New(KindPreprocessing, "rewrite failed")
	assert.Equal(t, "pipeline error (preprocessing): rewrite failed", err.Error())

	wrapped := Wrap(KindLLMCall, errors.New("boom"), "")
	assert.Equal(t, "pipeline error (llm_call): boom", wrapped.Error())

	bare := &Error{Kind: KindToolExecution}
	assert.Equal(t, "pipeline error (tool_execution)", bare.Error())
}

func TestTerminal(t *testing.T) {
	assert.True(t, New(KindLLMCall, "x").Terminal())
	assert.True(t, New(KindPipelineConfig, "x").Terminal())
	assert.False(t, New(KindPreprocessing, "x").Terminal())
	assert.False(t, New(KindToolExecution, "x").Terminal())
	assert.False(t, New(KindReprocessing, "x").Terminal())
}

func TestIsAndKindOfUnwrapChains(t *testing.T) {
	cause := errors.New("socket closed")
	classified := Wrap(KindLLMCall, cause, "gateway failed")
	outer := fmt.Errorf("turn aborted: %w", classified)

	assert.True(t, Is(outer, KindLLMCall))
	assert.False(t, Is(outer, KindPreprocessing))
	assert.Equal(t, KindLLMCall, KindOf(outer))
	require.ErrorIs(t, outer, cause)

	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.False(t, Is(nil, KindLLMCall))
}
