package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCallsNormalizes(t *testing.T) {
	calls := ResolveCalls([]RawCall{
		{ID: "call-1", Name: "echo", Parameters: map[string]any{"text": "hi"}},
		{ID: "call-2", Name: "echo", RawArguments: `{"text": "decoded"}`},
	})

	require.Len(t, calls, 2)
	assert.Equal(t, "hi", calls[0].Parameters["text"])
	assert.Equal(t, "decoded", calls[1].Parameters["text"])
}

func TestResolveCallsMalformedArguments(t *testing.T) {
	cases := []string{
		`{"text": "broken`,
		`not json at all`,
		`[1, 2, 3]`,
		`null`,
	}

	for _, blob := range cases {
		calls := ResolveCalls([]RawCall{{ID: "call-1", Name: "echo", RawArguments: blob}})
		require.Len(t, calls, 1, "blob %q", blob)
		// Malformed JSON yields an empty parameter set, never a dropped call.
		require.NotNil(t, calls[0].Parameters)
		assert.Empty(t, calls[0].Parameters)
	}
}

func TestResolveCallsGeneratesMissingIDs(t *testing.T) {
	calls := ResolveCalls([]RawCall{{Name: "echo"}})
	require.Len(t, calls, 1)
	assert.NotEmpty(t, calls[0].ID)
}

func TestParseInlineCalls(t *testing.T) {
	text := `Let me check that.
{"type": "tool_use", "id": "call-9", "name": "current_time", "input": {"timezone": "UTC"}}
Done.`

	require.True(t, HasInlineCalls(text))

	calls := ParseInlineCalls(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "call-9", calls[0].ID)
	assert.Equal(t, "current_time", calls[0].Name)
	assert.Equal(t, "UTC", calls[0].Parameters["timezone"])
}

func TestParseInlineCallsSkipsBrokenBlocks(t *testing.T) {
	text := `{"type": "tool_use", "name": ""}` // no tool name

	calls := ParseInlineCalls(text)
	assert.Empty(t, calls)
}

func TestHasInlineCallsPlainText(t *testing.T) {
	assert.False(t, HasInlineCalls("just a normal reply"))
}
