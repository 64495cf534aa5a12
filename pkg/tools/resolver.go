package tools

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// RawCall is a tool-call directive as it arrived from the gateway, before
// normalization. Parameters may be nil with the argument blob still in
// RawArguments when the provider handed back undecodable JSON.
type RawCall struct {
	Parameters   map[string]any
	RawArguments string
	ID           string
	Name         string
}

// ResolveCalls normalizes raw directives into Calls. Malformed argument JSON
// yields an empty parameter set for that call; one bad entry never aborts the
// whole batch.
func ResolveCalls(raw []RawCall) []Call {
	calls := make([]Call, 0, len(raw))
	for i := range raw {
		rc := &raw[i]

		id := rc.ID
		if id == "" {
			id = uuid.NewString()
		}

		params := rc.Parameters
		if params == nil {
			params = decodeArguments(rc.RawArguments)
		}

		calls = append(calls, Call{
			ID:         id,
			Name:       rc.Name,
			Parameters: params,
		})
	}
	return calls
}

// decodeArguments parses an argument blob, substituting an empty parameter
// set when the JSON is malformed.
func decodeArguments(blob string) map[string]any {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return map[string]any{}
	}

	var params map[string]any
	if err := json.Unmarshal([]byte(blob), &params); err != nil || params == nil {
		return map[string]any{}
	}
	return params
}

// toolUseBlock matches inline tool_use JSON objects some providers embed in
// plain response text.
//
//nolint:gochecknoglobals // Compiled once; regexp is immutable
var toolUseBlock = regexp.MustCompile(`(?s)\{[\s\n]*"type"[\s\n]*:[\s\n]*"tool_use".*?\}`)

type toolUseJSON struct {
	Type  string         `json:"type"`
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ParseInlineCalls extracts tool calls from response text containing inline
// tool_use blocks. Used as a fallback when the provider returns directives in
// content rather than structured fields. Undecodable blocks are skipped.
func ParseInlineCalls(text string) []Call {
	var calls []Call
	for _, match := range toolUseBlock.FindAllString(text, -1) {
		var block toolUseJSON
		if err := json.Unmarshal([]byte(match), &block); err != nil {
			continue
		}
		if block.Type != "tool_use" || block.Name == "" {
			continue
		}

		id := block.ID
		if id == "" {
			id = uuid.NewString()
		}
		params := block.Input
		if params == nil {
			params = map[string]any{}
		}
		calls = append(calls, Call{ID: id, Name: block.Name, Parameters: params})
	}
	return calls
}

// HasInlineCalls checks whether response text contains inline tool_use blocks.
func HasInlineCalls(text string) bool {
	return toolUseBlock.MatchString(text)
}
