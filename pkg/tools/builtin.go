package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Built-in tool names.
const (
	ToolCurrentTime = "current_time"
	ToolCalculator  = "calculator"
)

// RegisterBuiltins adds the built-in tools to a registry.
func RegisterBuiltins(r *Registry) {
	r.Register(ToolCurrentTime, func() (Tool, error) { return &currentTimeTool{}, nil }, &Meta{
		Name:        ToolCurrentTime,
		Description: "Returns the current date and time, optionally in a named IANA timezone.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"timezone": {Type: "string", Description: "IANA timezone name, e.g. Europe/Berlin. Defaults to UTC."},
			},
		},
	})
	r.Register(ToolCalculator, func() (Tool, error) { return &calculatorTool{}, nil }, &Meta{
		Name:        ToolCalculator,
		Description: "Evaluates a basic arithmetic expression with two operands.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"a":  {Type: "number", Description: "First operand."},
				"b":  {Type: "number", Description: "Second operand."},
				"op": {Type: "string", Description: "Operator.", Enum: []string{"+", "-", "*", "/"}},
			},
			Required: []string{"a", "b", "op"},
		},
	})
}

type currentTimeTool struct{}

func (t *currentTimeTool) Definition() Definition {
	return Definition{
		Name:        ToolCurrentTime,
		Description: "Returns the current date and time.",
	}
}

func (t *currentTimeTool) Exec(_ context.Context, args map[string]any) (any, error) {
	loc := time.UTC
	if tz, ok := args["timezone"].(string); ok && tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("unknown timezone %q: %w", tz, err)
		}
		loc = parsed
	}
	return time.Now().In(loc).Format(time.RFC1123), nil
}

type calculatorTool struct{}

func (t *calculatorTool) Definition() Definition {
	return Definition{
		Name:        ToolCalculator,
		Description: "Evaluates a basic arithmetic expression.",
	}
}

func (t *calculatorTool) Exec(_ context.Context, args map[string]any) (any, error) {
	a, err := toFloat(args["a"])
	if err != nil {
		return nil, fmt.Errorf("operand a: %w", err)
	}
	b, err := toFloat(args["b"])
	if err != nil {
		return nil, fmt.Errorf("operand b: %w", err)
	}
	op, _ := args["op"].(string)

	switch strings.TrimSpace(op) {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return a / b, nil
	default:
		return nil, fmt.Errorf("unsupported operator %q", op)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}
