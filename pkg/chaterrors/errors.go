// Package chaterrors provides structured error classification for the message processing pipeline.
package chaterrors

import (
	"errors"
	"fmt"
)

// Kind represents the pipeline stage or subsystem an error originated from.
type Kind int8

const (
	// KindUnknown is the default for unclassified errors.
	KindUnknown Kind = iota
	// KindPreprocessing represents failures while rewriting user input.
	KindPreprocessing
	// KindLLMCall represents gateway completion failures. Terminal for the cycle.
	KindLLMCall
	// KindToolResolution represents failures parsing tool-call directives.
	KindToolResolution
	// KindToolExecution represents failures running a resolved tool.
	KindToolExecution
	// KindPostprocessing represents failures while rewriting the bot's reply.
	KindPostprocessing
	// KindReprocessing represents failures during a regeneration cycle.
	KindReprocessing
	// KindPipelineConfig represents invalid pipeline construction or configuration.
	KindPipelineConfig
)

// String returns the string representation of the error kind.
func (k Kind) String() string {
	switch k {
	case KindPreprocessing:
		return "preprocessing"
	case KindLLMCall:
		return "llm_call"
	case KindToolResolution:
		return "tool_resolution"
	case KindToolExecution:
		return "tool_execution"
	case KindPostprocessing:
		return "postprocessing"
	case KindReprocessing:
		return "reprocessing"
	case KindPipelineConfig:
		return "pipeline_config"
	case KindUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Error represents a classified pipeline error with its underlying cause.
type Error struct {
	Err     error  // Wrapped underlying error
	Message string // Human-readable error message
	Kind    Kind   // Classified error kind
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("pipeline error (%s): %s", e.Kind.String(), e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("pipeline error (%s): %v", e.Kind.String(), e.Err)
	}
	return fmt.Sprintf("pipeline error (%s)", e.Kind.String())
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// Terminal reports whether the error ends the current pipeline cycle.
// Only LLM call failures and configuration errors stop the chain; everything
// else is absorbed stage-locally and the chain continues.
func (e *Error) Terminal() bool {
	switch e.Kind {
	case KindLLMCall, KindPipelineConfig:
		return true
	default:
		return false
	}
}

// Is checks if an error is of a specific kind.
func Is(err error, kind Kind) bool {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind == kind
	}
	return false
}

// KindOf returns the kind of an error, or KindUnknown if not classified.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindUnknown
}

// New creates a new classified pipeline error.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// Wrap creates a new classified pipeline error wrapping another error.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{
		Kind:    kind,
		Err:     cause,
		Message: message,
	}
}
