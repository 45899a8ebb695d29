package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	cases := []struct {
		name     string
		input    Input
		decision string
	}{
		{"search", Input{ToolName: "find_books"}, DecisionAllow},
		{"order", Input{ToolName: "create_order"}, DecisionAllow},
		{"chained order", Input{ToolName: "create_order", Chained: true}, DecisionAllow},
		{"chained search", Input{ToolName: "find_books", Chained: true}, DecisionBlock},
		{"chained summary", Input{ToolName: "inventory_summary", Chained: true}, DecisionBlock},
		{"read-only restock", Input{ToolName: "restock_book", ReadOnly: true}, DecisionBlock},
		{"read-only status", Input{ToolName: "order_status", ReadOnly: true}, DecisionAllow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision, reason, err := engine.Evaluate(ctx, tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.decision, decision)
			if decision == DecisionBlock {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestStringDecisionPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, `
package tool_policy

import rego.v1

default result := "allow"

result := "block" if {
	input.tool_name == "update_price"
}
`)
	require.NoError(t, err)

	decision, _, err := engine.Evaluate(ctx, Input{ToolName: "update_price"})
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, decision)
}

func TestNewEngineRejectsBadPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package tool_policy\nresult := {")
	assert.Error(t, err)
}

func TestNewEngineFromFile(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngineFromFile(ctx, "")
	require.NoError(t, err)
	decision, _, err := engine.Evaluate(ctx, Input{ToolName: "find_books"})
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision)

	path := filepath.Join(t.TempDir(), "policy.rego")
	require.NoError(t, os.WriteFile(path, []byte(`
package tool_policy

import rego.v1

result := {"decision": "block", "reason": "closed"}
`), 0o644))
	engine, err = NewEngineFromFile(ctx, path)
	require.NoError(t, err)
	decision, reason, err := engine.Evaluate(ctx, Input{ToolName: "find_books"})
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, decision)
	assert.Equal(t, "closed", reason)

	_, err = NewEngineFromFile(ctx, filepath.Join(t.TempDir(), "missing.rego"))
	assert.Error(t, err)
}
