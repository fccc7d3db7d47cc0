// Calculator Tool.
//
// Information Hiding:
// - Expression parsing and evaluation delegated to expr-lang/expr
// - Math helper functions hidden in the evaluation environment

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/richinex/relay/llm"
)

// CalculatorInput is the argument object for the calculator tool.
type CalculatorInput struct {
	Expression string `json:"expression" jsonschema_description:"Arithmetic expression such as (2 + 3) * 4 or sqrt(16). Supports + - * / % ^ and sqrt pow log abs floor ceil round."`
}

// CalculatorTool evaluates arithmetic expressions.
type CalculatorTool struct {
	env map[string]any
}

// NewCalculatorTool creates the calculator tool.
func NewCalculatorTool() *CalculatorTool {
	return &CalculatorTool{
		env: map[string]any{
			"pi":   math.Pi,
			"e":    math.E,
			"sqrt": math.Sqrt,
			"pow":  math.Pow,
			"log":  math.Log,
		},
	}
}

// Schema returns the tool definition.
func (t *CalculatorTool) Schema() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        "calculator",
		Description: "Evaluate an arithmetic expression and return the numeric result.",
		Parameters:  GenerateSchema[CalculatorInput](),
	}
}

// Execute evaluates the expression.
func (t *CalculatorTool) Execute(_ context.Context, args json.RawMessage) (any, error) {
	var in CalculatorInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	expression := strings.TrimSpace(in.Expression)
	if expression == "" {
		return nil, fmt.Errorf("expression cannot be empty")
	}

	program, err := expr.Compile(expression, expr.Env(t.env), expr.AsFloat64())
	if err != nil {
		return nil, fmt.Errorf("invalid expression: %w", err)
	}
	out, err := expr.Run(program, t.env)
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}

	value, ok := out.(float64)
	if !ok {
		return nil, fmt.Errorf("expression did not produce a number")
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, fmt.Errorf("result is not a finite number")
	}

	return map[string]any{"expression": expression, "result": value}, nil
}
