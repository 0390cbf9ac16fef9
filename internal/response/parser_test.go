// internal/response/parser_test.go
package response

import (
	"strings"
	"testing"
)

const validReply = `Here is my analysis of the chunk.

<cleaning_analysis>
  <issues_detected>
    <issue id="1" solved="false">Dates use three different formats</issue>
    <issue id="2" solved="true">Trailing whitespace in names</issue>
  </issues_detected>

  <function_to_generate>
    <name>normalizeDates</name>
    <docstring>Rewrites dates to ISO 8601. Handles DD/MM/YYYY and epoch seconds.</docstring>
    <code>
` + "```go" + `
func normalizeDates(record map[string]interface{}) map[string]interface{} {
	return record
}
` + "```" + `
    </code>
  </function_to_generate>

  <chunk_status>needs_more_work</chunk_status>
</cleaning_analysis>

Let me know if you need anything else.`

// TestParseValidReply tests that a well-formed reply surrounded by prose is
// decoded into issues, the proposed function, and the status. The analysis
// section must be found by tolerant scanning, not whole-document parsing.
func TestParseValidReply(t *testing.T) {
	result, err := Parse(validReply)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if len(result.Issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(result.Issues))
	}
	if result.Issues[0].Solved || !result.Issues[1].Solved {
		t.Errorf("solved flags decoded incorrectly: %+v", result.Issues)
	}
	if result.Function == nil {
		t.Fatal("expected a proposed function")
	}
	if result.Function.Name != "normalizeDates" {
		t.Errorf("function name = %q", result.Function.Name)
	}
	if !strings.HasPrefix(result.Function.Code, "func normalizeDates") {
		t.Errorf("code fence not stripped: %q", result.Function.Code)
	}
	if result.Status != StatusNeedsMoreWork {
		t.Errorf("status = %q", result.Status)
	}
}

// TestParseMissingAnalysis tests that a reply with no cleaning_analysis
// element is a ParseError whose diagnostic names the missing element, since
// the diagnostic is fed back to the backend verbatim.
func TestParseMissingAnalysis(t *testing.T) {
	_, err := Parse("I could not find any issues worth mentioning.")
	if err == nil {
		t.Fatal("expected ParseError")
	}
	if _, ok := err.(*ParseError); !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if !strings.Contains(err.Error(), "cleaning_analysis") {
		t.Errorf("diagnostic should name the missing element: %v", err)
	}
}

// TestParseBadGoSyntax tests that syntactically invalid generated code is a
// ParseError rather than being accepted and failing later in the sandbox.
func TestParseBadGoSyntax(t *testing.T) {
	reply := `<cleaning_analysis>
  <function_to_generate>
    <name>broken</name>
    <docstring>d</docstring>
    <code>func broken(record map[string]interface{}) { this is not go</code>
  </function_to_generate>
  <chunk_status>needs_more_work</chunk_status>
</cleaning_analysis>`
	_, err := Parse(reply)
	if err == nil {
		t.Fatal("expected ParseError for invalid Go")
	}
	if !strings.Contains(err.Error(), "syntax") {
		t.Errorf("diagnostic should mention syntax: %v", err)
	}
}

// TestParseSelfImport tests that generated code importing the harness
// module is rejected with its own diagnostic; it is an invalid
// cross-boundary reference, not a dependency.
func TestParseSelfImport(t *testing.T) {
	reply := `<cleaning_analysis>
  <function_to_generate>
    <name>sneaky</name>
    <docstring>d</docstring>
    <code>import "github.com/scourlabs/scour/internal/state"

func sneaky(record map[string]interface{}) map[string]interface{} { return record }</code>
  </function_to_generate>
  <chunk_status>needs_more_work</chunk_status>
</cleaning_analysis>`
	_, err := Parse(reply)
	if err == nil {
		t.Fatal("expected ParseError for self-referential import")
	}
	if !strings.Contains(err.Error(), "self-contained") {
		t.Errorf("diagnostic should explain the self-containment rule: %v", err)
	}
}

// TestParseCleanStatus tests the clean status path: no function element and
// status clean, which ends a chunk.
func TestParseCleanStatus(t *testing.T) {
	reply := `<cleaning_analysis>
  <issues_detected></issues_detected>
  <chunk_status>clean</chunk_status>
</cleaning_analysis>`
	result, err := Parse(reply)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if result.Status != StatusClean {
		t.Errorf("status = %q, want clean", result.Status)
	}
	if result.Function != nil {
		t.Error("expected no function")
	}
}

// TestParseStatusDefaults tests that a missing or unknown chunk_status
// defaults to needs_more_work.
func TestParseStatusDefaults(t *testing.T) {
	reply := `<cleaning_analysis>
  <issues_detected><issue id="1" solved="false">x</issue></issues_detected>
</cleaning_analysis>`
	result, err := Parse(reply)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if result.Status != StatusNeedsMoreWork {
		t.Errorf("status = %q, want needs_more_work", result.Status)
	}
}

// TestExtractCodeBlock tests fence extraction: a go-tagged fence, an
// untagged fence, and bare code all yield the trimmed source.
func TestExtractCodeBlock(t *testing.T) {
	code := "func f() {}"
	cases := []string{
		"```go\n" + code + "\n```",
		"```\n" + code + "\n```",
		"  " + code + "  ",
	}
	for i, input := range cases {
		if got := ExtractCodeBlock(input); got != code {
			t.Errorf("case %d: ExtractCodeBlock() = %q, want %q", i, got, code)
		}
	}
}

// TestWrapInPackage tests package-clause detection: bare declarations are
// wrapped, a real clause is left alone, and a comment or string literal
// mentioning "package " does not suppress the wrap.
func TestWrapInPackage(t *testing.T) {
	bare := "func f() {}"
	if got := WrapInPackage(bare); !strings.HasPrefix(got, "package main\n") {
		t.Errorf("bare declaration should be wrapped, got %q", got)
	}

	clause := "package cleaning\n\nfunc f() {}"
	if got := WrapInPackage(clause); got != clause {
		t.Errorf("existing clause should be untouched, got %q", got)
	}

	commented := "// package data arrives as strings\nfunc f() {}"
	if got := WrapInPackage(commented); !strings.HasPrefix(got, "package main\n") {
		t.Errorf("comment mentioning package should still be wrapped, got %q", got)
	}

	literal := `func f() string { return "package " }`
	if got := WrapInPackage(literal); !strings.HasPrefix(got, "package main\n") {
		t.Errorf("string literal mentioning package should still be wrapped, got %q", got)
	}
}

// TestParseFunctionWithPackageComment tests that a generated function whose
// comment mentions the word package still passes the syntax gate.
func TestParseFunctionWithPackageComment(t *testing.T) {
	reply := `<cleaning_analysis>
  <issues_detected><issue id="1" solved="false">x</issue></issues_detected>
  <function_to_generate>
    <name>tagRecords</name>
    <docstring>Tags records.</docstring>
    <code>
` + "```go" + `
// package data arrives with inconsistent tags
func tagRecords(record map[string]interface{}) map[string]interface{} {
	return record
}
` + "```" + `
    </code>
  </function_to_generate>
  <chunk_status>needs_more_work</chunk_status>
</cleaning_analysis>`
	result, err := Parse(reply)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if result.Function == nil || result.Function.Name != "tagRecords" {
		t.Fatalf("function not decoded: %+v", result.Function)
	}
}
