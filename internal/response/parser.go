// internal/response/parser.go
// Package response decodes the backend's semi-structured reply into issues,
// an optional proposed function, and a chunk status. The analysis section is
// located by tolerant scanning so surrounding prose does not break parsing.
package response

import (
	"encoding/xml"
	"fmt"
	"go/parser"
	"go/token"
	"regexp"
	"strings"
)

// selfImportPath is the harness module path. Generated code importing the
// harness is an invalid cross-boundary reference, not a legitimate
// dependency, and is rejected with a distinct diagnostic.
const selfImportPath = "github.com/scourlabs/scour"

const (
	// StatusClean means the backend found no remaining issues in the chunk.
	StatusClean = "clean"
	// StatusNeedsMoreWork means the chunk still has unsolved issues.
	StatusNeedsMoreWork = "needs_more_work"
)

// Issue is one backend-reported data quality observation. Issues are
// ephemeral: they feed progress reporting and the run report, never the
// checkpoint.
type Issue struct {
	ID          string
	Solved      bool
	Description string
}

// Function is a proposed cleaning function extracted from a reply.
type Function struct {
	Name      string
	Docstring string
	Code      string
}

// Result is the decoded reply for one iteration.
type Result struct {
	Issues   []Issue
	Function *Function
	Status   string
}

// ParseError describes a malformed or incomplete reply. The diagnostic is
// fed back into the next iteration's prompt so the backend can correct
// itself.
type ParseError struct {
	msg string
}

func (e *ParseError) Error() string { return e.msg }

func parseErrorf(format string, args ...any) *ParseError {
	return &ParseError{msg: fmt.Sprintf(format, args...)}
}

var codeFencePattern = regexp.MustCompile("(?s)```(?:go)?\\s*\\n?(.*?)```")

// analysisDoc mirrors the XML shape of the cleaning_analysis section.
type analysisDoc struct {
	XMLName xml.Name    `xml:"cleaning_analysis"`
	Issues  []issueElem `xml:"issues_detected>issue"`
	Func    *funcElem   `xml:"function_to_generate"`
	Status  string      `xml:"chunk_status"`
}

type issueElem struct {
	ID          string `xml:"id,attr"`
	Solved      string `xml:"solved,attr"`
	Description string `xml:",chardata"`
}

type funcElem struct {
	Name      string `xml:"name"`
	Docstring string `xml:"docstring"`
	Code      string `xml:"code"`
}

// Parse extracts the structured result from a raw backend reply. Errors are
// always *ParseError with a human-readable diagnostic: missing analysis
// section, malformed XML, Go syntax errors in the proposed code, or a
// forbidden self-referential import.
func Parse(text string) (*Result, error) {
	section, err := findAnalysisSection(text)
	if err != nil {
		return nil, err
	}

	var doc analysisDoc
	if err := xml.Unmarshal([]byte(section), &doc); err != nil {
		return nil, parseErrorf("invalid XML in <cleaning_analysis>: %v", err)
	}

	result := &Result{Status: normalizeStatus(doc.Status)}
	for _, issue := range doc.Issues {
		result.Issues = append(result.Issues, Issue{
			ID:          issue.ID,
			Solved:      strings.EqualFold(strings.TrimSpace(issue.Solved), "true"),
			Description: strings.TrimSpace(issue.Description),
		})
	}

	if doc.Func != nil {
		fn, err := decodeFunction(doc.Func)
		if err != nil {
			return nil, err
		}
		result.Function = fn
	}
	return result, nil
}

// findAnalysisSection locates the single <cleaning_analysis> element inside
// arbitrary surrounding prose.
func findAnalysisSection(text string) (string, error) {
	const open, close = "<cleaning_analysis>", "</cleaning_analysis>"
	start := strings.Index(text, open)
	if start < 0 {
		return "", parseErrorf("no <cleaning_analysis> element found in response")
	}
	end := strings.Index(text[start:], close)
	if end < 0 {
		return "", parseErrorf("<cleaning_analysis> element is not closed")
	}
	return text[start : start+end+len(close)], nil
}

// decodeFunction validates a proposed function: non-empty name and code,
// well-formed Go, and no import back into the harness.
func decodeFunction(elem *funcElem) (*Function, error) {
	code := ExtractCodeBlock(elem.Code)
	if code == "" {
		// An empty function_to_generate element is treated as absent, which
		// the controller logs as an iteration that produced no function.
		return nil, nil
	}
	name := strings.TrimSpace(elem.Name)
	if name == "" {
		return nil, parseErrorf("function_to_generate has code but no <name>")
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "generated.go", WrapInPackage(code), parser.AllErrors)
	if err != nil {
		return nil, parseErrorf("invalid Go syntax in generated code: %v", err)
	}
	for _, imp := range file.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		if path == selfImportPath || strings.HasPrefix(path, selfImportPath+"/") {
			return nil, parseErrorf("generated code imports %q; functions must be self-contained and may not reference the pipeline", path)
		}
	}

	return &Function{
		Name:      name,
		Docstring: strings.TrimSpace(elem.Docstring),
		Code:      code,
	}, nil
}

// ExtractCodeBlock pulls Go source out of a markdown code fence, falling
// back to the trimmed text when no fence is present.
func ExtractCodeBlock(text string) string {
	if match := codeFencePattern.FindStringSubmatch(text); match != nil {
		return strings.TrimSpace(match[1])
	}
	return strings.TrimSpace(text)
}

// WrapInPackage prefixes code with a package clause when it lacks one, so
// bare function declarations can be parsed and interpreted. The clause is
// detected by parsing rather than substring matching; comments or string
// literals mentioning "package" do not count.
func WrapInPackage(code string) string {
	fset := token.NewFileSet()
	if _, err := parser.ParseFile(fset, "generated.go", code, parser.PackageClauseOnly); err == nil {
		return code
	}
	return "package main\n\n" + code
}

// normalizeStatus maps anything that is not exactly "clean" to
// needs_more_work, which is also the default when the status element is
// absent.
func normalizeStatus(status string) string {
	if strings.EqualFold(strings.TrimSpace(status), StatusClean) {
		return StatusClean
	}
	return StatusNeedsMoreWork
}
