// Package pipeline implements the ordered message-processing chain: an
// immutable list of stage descriptors consumed by a single driver loop, with
// a depth-bounded reprocessing tail.
package pipeline

import (
	"time"

	"botchat/pkg/llm"
	"botchat/pkg/reprocess"
	"botchat/pkg/tools"
)

// Stage name constants, in canonical chain order.
const (
	StageDedup          = "deduplication"
	StagePreprocess     = "preprocessing"
	StageLLMCall        = "llm-call"
	StageToolResolution = "tool-resolution"
	StageToolExecution  = "tool-execution"
	StagePostprocess    = "postprocessing"
	StageReprocessCheck = "reprocessing-check"
	StageReprocess      = "reprocessing"

	// StageLLMError tags metadata after a failed gateway call.
	StageLLMError = "error-llm-call"
)

// SkippedTag returns the metadata stage tag for a disabled stage.
func SkippedTag(stage string) string {
	return "skipped-" + stage
}

// Metadata is the typed record threaded through every stage. Stages never
// mutate a received Metadata in place; they derive a new value (the driver
// hands each stage its own clone). Later fields win on merge.
//
//nolint:govet // fieldalignment: logical grouping preferred over memory optimization
type Metadata struct {
	// Stage is the latest stage tag, used for diagnostics and tests.
	// Disabled stages record "skipped-<name>".
	Stage string

	// StageTimes records wall time per executed stage.
	StageTimes map[string]time.Duration

	// OriginalContent is the first-ever content, preserved across
	// reprocessing cycles.
	OriginalContent string

	// NeedsReprocessing is set by the reprocessing check and reset to false
	// once consumed by the reprocessing stage, preventing self-triggering
	// within one cycle.
	NeedsReprocessing bool

	// ReprocessingDepth counts completed regeneration cycles. Never exceeds
	// the configured maximum.
	ReprocessingDepth int

	// HasToolCalls is set when the model requested tool use.
	HasToolCalls bool

	// ToolCalls holds the normalized calls produced by tool resolution for
	// the execution stage.
	ToolCalls []tools.Call

	// Raw is the opaque gateway response kept for the tool stages.
	Raw *llm.ChatResponse

	// Deduplicated is set when the chain short-circuited with a previously
	// stored reply.
	Deduplicated bool

	// PreprocessChanged and PostprocessChanged record whether the rewrite
	// stages altered content.
	PreprocessChanged  bool
	PostprocessChanged bool

	// Error carries the most recent absorbed stage error message, if any.
	Error string

	// decision carries the evaluator's verdict from the reprocessing check
	// to the reprocessing stage within one cycle.
	decision reprocess.Decision
}

// NewMetadata creates the initial metadata for a pipeline invocation.
func NewMetadata(originalContent string) Metadata {
	return Metadata{
		OriginalContent: originalContent,
		StageTimes:      make(map[string]time.Duration),
	}
}

// Clone deep-copies the metadata so the receiving stage owns its value.
func (m Metadata) Clone() Metadata {
	out := m

	out.StageTimes = make(map[string]time.Duration, len(m.StageTimes))
	for k, v := range m.StageTimes {
		out.StageTimes[k] = v
	}

	if m.ToolCalls != nil {
		out.ToolCalls = make([]tools.Call, len(m.ToolCalls))
		copy(out.ToolCalls, m.ToolCalls)
	}
	return out
}

// WithStage returns a copy tagged with the given stage name.
func (m Metadata) WithStage(stage string) Metadata {
	out := m.Clone()
	out.Stage = stage
	return out
}

// WithStageTime returns a copy with the stage's elapsed time recorded.
func (m Metadata) WithStageTime(stage string, elapsed time.Duration) Metadata {
	out := m.Clone()
	out.StageTimes[stage] = elapsed
	return out
}
