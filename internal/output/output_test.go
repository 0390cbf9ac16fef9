// internal/output/output_test.go
package output

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/scourlabs/scour/internal/sandbox"
	"github.com/scourlabs/scour/internal/state"
)

// TestMergeDeduplicates tests that two accepted functions sharing a name
// produce a composition retaining only the first, and that the entry point
// calls it exactly once.
func TestMergeDeduplicates(t *testing.T) {
	funcs := []state.Function{
		{Name: "normalize", Docstring: "first", Code: "func normalize(record map[string]interface{}) map[string]interface{} {\n\trecord[\"v\"] = 1\n\treturn record\n}"},
		{Name: "normalize", Docstring: "second", Code: "func normalize(record map[string]interface{}) map[string]interface{} {\n\trecord[\"v\"] = 2\n\treturn record\n}"},
	}
	doc, err := Merge(funcs, true)
	if err != nil {
		t.Fatalf("Merge() failed: %v", err)
	}
	if got := strings.Count(doc, "func normalize("); got != 1 {
		t.Errorf("expected one normalize definition, found %d", got)
	}
	if !strings.Contains(doc, "// first") {
		t.Error("kept function should be the first occurrence")
	}
	if strings.Contains(doc, "// second") {
		t.Error("duplicate should have been dropped")
	}
	if got := strings.Count(doc, "record = normalize(record)"); got != 1 {
		t.Errorf("entry point should call normalize once, found %d calls", got)
	}
}

// TestMergeHoistsImports tests import handling: import declarations inside
// function sources are deduplicated and hoisted into one block, and
// self-referential harness imports are stripped entirely.
func TestMergeHoistsImports(t *testing.T) {
	funcs := []state.Function{
		{Name: "a", Code: "import \"strings\"\n\nfunc a(record map[string]interface{}) map[string]interface{} {\n\t_ = strings.TrimSpace(\"\")\n\treturn record\n}"},
		{Name: "b", Code: "import (\n\t\"strings\"\n\t\"strconv\"\n)\n\nfunc b(record map[string]interface{}) map[string]interface{} {\n\t_ = strings.ToLower(strconv.Itoa(1))\n\treturn record\n}"},
		{Name: "c", Code: "import \"github.com/scourlabs/scour/internal/state\"\n\nfunc c(record map[string]interface{}) map[string]interface{} {\n\treturn record\n}"},
	}
	doc, err := Merge(funcs, true)
	if err != nil {
		t.Fatalf("Merge() failed: %v", err)
	}
	if got := strings.Count(doc, "\"strings\""); got != 1 {
		t.Errorf("strings should be imported exactly once, found %d", got)
	}
	if !strings.Contains(doc, "\"strconv\"") {
		t.Error("strconv import missing")
	}
	if strings.Contains(doc, "scourlabs") {
		t.Error("self-referential import should be stripped")
	}
	if got := strings.Count(doc, "import"); got != 1 {
		t.Errorf("expected a single hoisted import block, found %d import tokens", got)
	}
}

// TestMergeIdentity tests that merging zero functions yields the identity
// transform: a valid document whose entry point returns its input.
func TestMergeIdentity(t *testing.T) {
	doc, err := Merge(nil, true)
	if err != nil {
		t.Fatalf("Merge() failed: %v", err)
	}
	if !strings.Contains(doc, "func CleanData(record map[string]interface{}) map[string]interface{}") {
		t.Error("identity entry point missing")
	}
	if !strings.Contains(doc, "return record") {
		t.Error("identity entry should return its input")
	}

	textDoc, err := Merge(nil, false)
	if err != nil {
		t.Fatalf("Merge() failed for text mode: %v", err)
	}
	if !strings.Contains(textDoc, "func CleanText(text string) string") {
		t.Error("text-mode entry point missing")
	}
}

// TestWriteFallsBackToValidSubset tests the degradation path: when one
// accepted function turns out to be unparseable, Write retries with the
// subset that parses, reports the skipped name, and still produces a valid
// artifact.
func TestWriteFallsBackToValidSubset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cleaning_functions.go")

	funcs := []state.Function{
		{Name: "good", Code: "func good(record map[string]interface{}) map[string]interface{} { return record }"},
		{Name: "broken", Code: "func broken(record map[string]interface{}) map[string]interface{} { return"},
	}
	skipped, err := Write(path, funcs, true)
	if err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if len(skipped) != 1 || skipped[0] != "broken" {
		t.Errorf("skipped = %v, want [broken]", skipped)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "func good(") {
		t.Error("surviving function missing from artifact")
	}
	if strings.Contains(string(data), "func broken(") {
		t.Error("broken function should not appear in artifact")
	}
}

// TestCompositionIdempotent tests the composed artifact end to end by
// executing it in the sandbox interpreter: applying the composition twice
// to the same record yields the same result as applying it once.
func TestCompositionIdempotent(t *testing.T) {
	funcs := []state.Function{
		{Name: "trimName", Code: "import \"strings\"\n\nfunc trimName(record map[string]interface{}) map[string]interface{} {\n\tif v, ok := record[\"name\"].(string); ok {\n\t\trecord[\"name\"] = strings.TrimSpace(v)\n\t}\n\treturn record\n}"},
		{Name: "lowerName", Code: "import \"strings\"\n\nfunc lowerName(record map[string]interface{}) map[string]interface{} {\n\tif v, ok := record[\"name\"].(string); ok {\n\t\trecord[\"name\"] = strings.ToLower(v)\n\t}\n\treturn record\n}"},
	}
	doc, err := Merge(funcs, true)
	if err != nil {
		t.Fatalf("Merge() failed: %v", err)
	}

	// The artifact declares package cleaning; the sandbox resolves symbols
	// under main, so rewrite the clause for execution.
	code := strings.Replace(doc, "package cleaning", "package main", 1)

	runner := sandbox.New(0)
	once := map[string]interface{}{"name": "  ALICE "}
	if res := runner.ValidateRecords(context.Background(), code, "CleanData", []map[string]interface{}{once}); !res.OK {
		t.Fatalf("composition failed to execute: %s", res.Message)
	}

	// Validated in place: once now holds CleanData(once). Running the
	// composition again must not change it further.
	twice := map[string]interface{}{}
	for k, v := range once {
		twice[k] = v
	}
	if res := runner.ValidateRecords(context.Background(), code, "CleanData", []map[string]interface{}{twice}); !res.OK {
		t.Fatalf("second application failed: %s", res.Message)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("composition not idempotent: %v vs %v", once, twice)
	}
}
