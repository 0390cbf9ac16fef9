// internal/promptgen/promptgen_test.go
package promptgen

import (
	"fmt"
	"strings"
	"testing"

	"github.com/scourlabs/scour/internal/state"
)

// TestBuildContextBudget tests the truncation policy of the context
// builder: the rendering never exceeds the budget, whole entries are
// dropped least-recent first, and an elision marker reports how many were
// dropped. This policy is load-bearing — the backend relies on the summary
// to avoid re-proposing existing functions, so recency wins over history.
func TestBuildContextBudget(t *testing.T) {
	var funcs []state.Function
	for i := 0; i < 20; i++ {
		funcs = append(funcs, state.Function{
			Name:      fmt.Sprintf("fixIssue%02d", i),
			Docstring: "Normalizes a field that arrives in inconsistent shapes.",
		})
	}

	full := BuildContext(funcs, 100000)
	for _, f := range funcs {
		if !strings.Contains(full, f.Name) {
			t.Errorf("unbudgeted context missing %s", f.Name)
		}
	}

	tight := BuildContext(funcs, 300)
	if len(tight) > 300 {
		t.Fatalf("context exceeds budget: %d > 300", len(tight))
	}
	if !strings.Contains(tight, "fixIssue19") {
		t.Error("most recent function missing from truncated context")
	}
	if strings.Contains(tight, "fixIssue00") {
		t.Error("least recent function should be dropped first")
	}
	if !strings.Contains(tight, "earlier functions omitted") {
		t.Error("expected an elision marker when entries are dropped")
	}
}

// TestBuildContextEmpty tests that no functions or no budget yields an
// empty context.
func TestBuildContextEmpty(t *testing.T) {
	if got := BuildContext(nil, 1000); got != "" {
		t.Errorf("expected empty context, got %q", got)
	}
	if got := BuildContext([]state.Function{{Name: "f"}}, 0); got != "" {
		t.Errorf("expected empty context at zero budget, got %q", got)
	}
}

// TestBuildPrompt tests template assembly for both modes: the chunk body,
// instructions, and context always appear; the schema block only appears
// for structured prompts; and feedback from a failed prior iteration is
// appended with the corrective framing.
func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("remove nulls", "- fixNulls: drops null fields", "CHUNK BODY", "- id: number", true, "")
	for _, want := range []string{"remove nulls", "fixNulls", "CHUNK BODY", "RECORD SCHEMA", "- id: number", "map[string]interface{}"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("structured prompt missing %q", want)
		}
	}

	textPrompt := BuildPrompt("", "", "SOME TEXT", "ignored schema", false, "previous code had a syntax error")
	if strings.Contains(textPrompt, "RECORD SCHEMA") {
		t.Error("text prompt must not contain a schema block")
	}
	if !strings.Contains(textPrompt, "Your previous response had an error: previous code had a syntax error") {
		t.Error("feedback missing from prompt")
	}
	if !strings.Contains(textPrompt, "func functionName(text string) string") {
		t.Error("text prompt missing the text-mode signature")
	}
}

// TestDescribeSchema tests that the inferred schema lists each field once
// with its observed type, sorted for determinism.
func TestDescribeSchema(t *testing.T) {
	records := []map[string]interface{}{
		{"name": "alice", "age": float64(30)},
		{"name": "bob", "active": true},
	}
	schema := DescribeSchema(records)
	want := "- active: bool\n- age: number\n- name: string"
	if schema != want {
		t.Errorf("DescribeSchema() = %q, want %q", schema, want)
	}
	if DescribeSchema(nil) != "" {
		t.Error("expected empty schema for no records")
	}
}
