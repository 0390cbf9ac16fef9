// internal/promptgen/context.go
package promptgen

import (
	"fmt"
	"strings"

	"github.com/scourlabs/scour/internal/state"
)

// elisionFormat is the marker prepended when earlier entries were dropped to
// respect the budget.
const elisionFormat = "(%d earlier functions omitted)\n"

// BuildContext renders the accepted functions as a budgeted summary the
// backend can use to avoid re-proposing existing fixes. Each function
// contributes one "- name: docstring" line. When the rendering would exceed
// budget characters, whole entries are dropped least-recent first and an
// elision marker is prepended; the result never exceeds the budget.
func BuildContext(funcs []state.Function, budget int) string {
	if len(funcs) == 0 || budget <= 0 {
		return ""
	}

	lines := make([]string, len(funcs))
	for i, f := range funcs {
		doc := strings.ReplaceAll(strings.TrimSpace(f.Docstring), "\n", " ")
		lines[i] = fmt.Sprintf("- %s: %s\n", f.Name, doc)
	}

	// Walk newest to oldest, keeping whole entries while they fit. The
	// marker's own length counts against the budget once anything is
	// dropped.
	kept := 0
	size := 0
	for i := len(lines) - 1; i >= 0; i-- {
		marker := 0
		if i > 0 {
			marker = len(fmt.Sprintf(elisionFormat, i))
		}
		if size+len(lines[i])+marker > budget {
			break
		}
		size += len(lines[i])
		kept++
	}

	if kept == 0 {
		return ""
	}

	var b strings.Builder
	dropped := len(lines) - kept
	if dropped > 0 {
		fmt.Fprintf(&b, elisionFormat, dropped)
	}
	for _, line := range lines[dropped:] {
		b.WriteString(line)
	}
	return strings.TrimRight(b.String(), "\n")
}
