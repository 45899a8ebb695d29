// Package policy decides whether a tool call may run, using OPA.
package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"
)

// Decisions returned by the policy.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Input is the document the policy is evaluated against.
type Input struct {
	ToolName  string      `json:"tool_name"`
	Args      interface{} `json:"args,omitempty"`
	SessionID string      `json:"session_id"`
	Chained   bool        `json:"chained"`
	ReadOnly  bool        `json:"read_only"`
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.tool_policy.result"),
		rego.Module("tool_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewEngineFromFile loads the policy from path, or DefaultPolicy when path is empty.
func NewEngineFromFile(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy: %w", err)
	}
	return NewEngine(ctx, string(data))
}

// Evaluate checks the tool policy.
// Returns: decision (allow, block), reason (optional), error
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, "default", nil
	}

	switch val := results[0].Expressions[0].Value.(type) {
	case string:
		return val, "", nil
	case map[string]interface{}:
		decision, _ := val["decision"].(string)
		reason, _ := val["reason"].(string)
		if decision == "" {
			return DecisionAllow, "missing decision", nil
		}
		return decision, reason, nil
	}
	return DecisionAllow, "unexpected return type", nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package tool_policy

import rego.v1

mutating_tools := {"create_order", "restock_book", "update_price"}

reason := "mutating tools are disabled in read-only mode" if {
	input.read_only
	input.tool_name in mutating_tools
} else := "a chained call must be create_order, restock_book or update_price" if {
	input.chained
	not input.tool_name in mutating_tools
}

default result := {"decision": "allow", "reason": ""}

result := {"decision": "block", "reason": reason} if {
	reason
}
`
