// internal/output/output.go
// Package output merges the accepted cleaning functions into one Go source
// artifact: hoisted imports, the function bodies in acceptance order, and a
// composed entry point threading a value through all of them.
package output

import (
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"sort"
	"strings"

	"github.com/scourlabs/scour/internal/logging"
	"github.com/scourlabs/scour/internal/response"
	"github.com/scourlabs/scour/internal/state"
	"github.com/scourlabs/scour/internal/util"
)

// selfImportPrefix marks import declarations that only made sense inside the
// validation sandbox; they are stripped during merging.
const selfImportPrefix = "github.com/scourlabs/scour"

// OutputValidationError reports that the merged artifact fails to parse as
// Go. Position identifies the offending location in the merged document.
type OutputValidationError struct {
	Position string
	Msg      string
}

func (e *OutputValidationError) Error() string {
	return fmt.Sprintf("merged output has invalid Go syntax at %s: %s", e.Position, e.Msg)
}

// Merge composes the retained functions into a single Go source document.
// Functions sharing a name are deduplicated keeping the first occurrence,
// with a warning per drop. A syntactically broken result yields an
// *OutputValidationError; callers degrade to the parseable subset.
func Merge(funcs []state.Function, structured bool) (string, error) {
	funcs = DeduplicateByName(funcs)

	var importPaths []string
	seenImports := map[string]bool{}
	bodies := make([]string, 0, len(funcs))
	names := make([]string, 0, len(funcs))

	for _, f := range funcs {
		paths, body := splitImports(f.Code)
		for _, path := range paths {
			if strings.HasPrefix(path, selfImportPrefix) {
				continue
			}
			if !seenImports[path] {
				seenImports[path] = true
				importPaths = append(importPaths, path)
			}
		}
		header := ""
		if doc := strings.TrimSpace(f.Docstring); doc != "" {
			for _, line := range strings.Split(doc, "\n") {
				header += "// " + strings.TrimSpace(line) + "\n"
			}
		}
		bodies = append(bodies, header+body)
		names = append(names, f.Name)
	}
	sort.Strings(importPaths)

	var b strings.Builder
	b.WriteString("// Code generated by scour. DO NOT EDIT.\n")
	b.WriteString("//\n// Composed data cleaning functions in acceptance order.\n")
	b.WriteString("package cleaning\n\n")

	if len(importPaths) > 0 {
		b.WriteString("import (\n")
		for _, path := range importPaths {
			fmt.Fprintf(&b, "\t%q\n", path)
		}
		b.WriteString(")\n\n")
	}

	for _, body := range bodies {
		b.WriteString(strings.TrimSpace(body))
		b.WriteString("\n\n")
	}
	b.WriteString(entryPoint(names, structured))

	doc := b.String()
	fset := token.NewFileSet()
	if _, err := parser.ParseFile(fset, "cleaning_functions.go", doc, parser.AllErrors); err != nil {
		pos, msg := firstSyntaxError(err)
		return "", &OutputValidationError{Position: pos, Msg: msg}
	}
	return doc, nil
}

// Write merges funcs and writes the artifact to path. When the full merge
// fails validation, it retries with only the functions that individually
// parse, logging each skipped name; the skipped names are returned.
func Write(path string, funcs []state.Function, structured bool) ([]string, error) {
	doc, err := Merge(funcs, structured)
	var skipped []string
	if err != nil {
		var ove *OutputValidationError
		if !errors.As(err, &ove) {
			return nil, err
		}
		logging.LogEvent("output validation failed (%v); retrying with parseable subset", ove)

		var valid []state.Function
		for _, f := range funcs {
			fset := token.NewFileSet()
			if _, perr := parser.ParseFile(fset, f.Name+".go", response.WrapInPackage(f.Code), parser.AllErrors); perr != nil {
				logging.LogEvent("skipping function %q: invalid Go syntax", f.Name)
				skipped = append(skipped, f.Name)
				continue
			}
			valid = append(valid, f)
		}
		doc, err = Merge(valid, structured)
		if err != nil {
			return skipped, err
		}
	}
	if err := util.WriteFile(path, []byte(doc)); err != nil {
		return skipped, fmt.Errorf("could not write output %q: %w", path, err)
	}
	return skipped, nil
}

// DeduplicateByName drops later functions whose name was already accepted,
// warning on each drop. Order is otherwise preserved.
func DeduplicateByName(funcs []state.Function) []state.Function {
	seen := map[string]bool{}
	result := make([]state.Function, 0, len(funcs))
	for _, f := range funcs {
		if seen[f.Name] {
			logging.LogEvent("warning: skipping duplicate function %q", f.Name)
			continue
		}
		seen[f.Name] = true
		result = append(result, f)
	}
	return result
}

// splitImports separates a function's import declarations from the rest of
// its source, returning the import paths and the body without them. Package
// clauses are dropped as well; the merged document supplies its own.
func splitImports(code string) (paths []string, body string) {
	var kept []string
	inBlock := false
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case inBlock:
			if strings.HasPrefix(trimmed, ")") {
				inBlock = false
				continue
			}
			if p := importPath(trimmed); p != "" {
				paths = append(paths, p)
			}
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
		case strings.HasPrefix(trimmed, "import "):
			if p := importPath(strings.TrimPrefix(trimmed, "import ")); p != "" {
				paths = append(paths, p)
			}
		case strings.HasPrefix(trimmed, "package "):
			// dropped
		default:
			kept = append(kept, line)
		}
	}
	for len(kept) > 0 && strings.TrimSpace(kept[0]) == "" {
		kept = kept[1:]
	}
	return paths, strings.Join(kept, "\n")
}

// importPath extracts the quoted path from one import line, tolerating an
// alias prefix.
func importPath(line string) string {
	start := strings.Index(line, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(line[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return line[start+1 : start+1+end]
}

// entryPoint synthesizes the composition entry threading a value through
// every retained function in acceptance order. With no functions it is the
// identity transform.
func entryPoint(names []string, structured bool) string {
	signature := "CleanText(text string) string"
	value := "text"
	if structured {
		signature = "CleanData(record map[string]interface{}) map[string]interface{}"
		value = "record"
	}

	var b strings.Builder
	b.WriteString("// " + strings.SplitN(signature, "(", 2)[0] + " applies all cleaning functions in order.\n")
	if len(names) > 0 {
		b.WriteString("//\n// Functions applied:\n")
		for _, name := range names {
			b.WriteString("//   - " + name + "\n")
		}
	}
	b.WriteString("func " + signature + " {\n")
	for _, name := range names {
		fmt.Fprintf(&b, "\t%s = %s(%s)\n", value, name, value)
	}
	b.WriteString("\treturn " + value + "\n}\n")
	return b.String()
}

// firstSyntaxError renders a parser error into a position and message.
func firstSyntaxError(err error) (pos, msg string) {
	// parser.ParseFile returns a scanner.ErrorList; its first entry carries
	// the most useful position.
	text := err.Error()
	if i := strings.Index(text, " "); i > 0 && strings.Contains(text[:i], ":") {
		return strings.TrimSuffix(text[:i], ":"), strings.TrimSpace(text[i:])
	}
	return "unknown", text
}
