// internal/pipeline/report.go
package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/scourlabs/scour/internal/util"
)

// writeReport renders a markdown summary of the run: parameters, accepted
// functions, per-chunk outcomes, and backend latency.
func (c *Cleaner) writeReport(structured bool) error {
	var b strings.Builder

	b.WriteString("# Cleaning Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", time.Now().UTC().Format(time.RFC3339))

	b.WriteString("## Run Parameters\n\n")
	fmt.Fprintf(&b, "- Input: `%s`\n", c.opts.FilePath)
	fmt.Fprintf(&b, "- Mode: %s\n", c.opts.Mode)
	fmt.Fprintf(&b, "- Chunk size: %d\n", c.opts.ChunkSize)
	fmt.Fprintf(&b, "- Max iterations per chunk: %d\n", c.opts.MaxIterations)
	if structured {
		b.WriteString("- Function signature: `func(record map[string]interface{}) map[string]interface{}`\n")
	} else {
		b.WriteString("- Function signature: `func(text string) string`\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Generated Functions (%d)\n\n", len(c.funcs))
	if len(c.funcs) == 0 {
		b.WriteString("None — the composition is the identity transform.\n\n")
	}
	for _, f := range c.funcs {
		doc := strings.ReplaceAll(strings.TrimSpace(f.Docstring), "\n", " ")
		fmt.Fprintf(&b, "- **%s** — %s\n", f.Name, util.TruncateRunes(doc, 200))
	}
	if len(c.funcs) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("## Chunks\n\n")
	for _, summary := range c.chunkLog {
		fmt.Fprintf(&b, "### Chunk %d — %s (%d iterations)\n\n", summary.Index, summary.Status, summary.Iterations)
		if len(summary.Issues) == 0 {
			b.WriteString("No issues reported.\n\n")
			continue
		}
		for _, issue := range summary.Issues {
			marker := " "
			if issue.Solved {
				marker = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s\n", marker, util.TruncateRunes(issue.Description, 200))
		}
		b.WriteString("\n")
	}

	latency := c.latency.Summary()
	b.WriteString("## Backend Latency\n\n")
	fmt.Fprintf(&b, "- Calls: %d\n", latency.Calls)
	fmt.Fprintf(&b, "- Average: %.1f ms\n", latency.AvgMs)
	fmt.Fprintf(&b, "- Min / Max: %.1f ms / %.1f ms\n", latency.MinMs, latency.MaxMs)

	return util.WriteFile(c.opts.ReportPath, []byte(b.String()))
}
