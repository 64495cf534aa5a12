package pipeline

import "botchat/pkg/tools"

// Result is the outcome of a stage, and of the chain as a whole. Content is
// the candidate reply after the stage ran; Meta is the derived metadata the
// driver threads to the next stage.
//
//nolint:govet // fieldalignment: logical grouping preferred over memory optimization
type Result struct {
	Content string
	Meta    Metadata

	// ToolResults accumulates tool execution outcomes across the chain.
	ToolResults []tools.ExecResult

	// Err is a stage error. The driver records it and continues, except for
	// terminal chaterrors kinds (gateway call, pipeline config), which end
	// the chain regardless of StopChain.
	Err error

	// StopChain ends the current cycle after this stage. Set by
	// deduplication (short-circuit), a failed gateway call (fallback reply),
	// and the reprocessing stage (cycle boundary).
	StopChain bool
}
