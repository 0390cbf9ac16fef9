// internal/promptgen/prompt.go
// Package promptgen assembles the instruction text sent to the LLM backend:
// a mode-specific task template, the budgeted summary of existing functions,
// an optional inferred schema, the chunk body, and corrective feedback from
// a failed prior iteration.
package promptgen

import (
	"fmt"
	"sort"
	"strings"
)

// structuredTemplate is the fixed task template for record-oriented chunks.
// The generated functions must be plain Go so they can run inside the
// interpreter sandbox and be merged into the output artifact.
const structuredTemplate = `You are a data cleaning expert. Analyze data and generate Go functions to fix issues.

=== USER'S CLEANING GOALS ===
%s

=== EXISTING FUNCTIONS (DO NOT RECREATE) ===
%s

=== DATA CHUNK ===
%s

=== TASK ===
1. List ALL data quality issues you find in the chunk
2. Mark each as solved="true" if an existing function handles it
3. Generate code for ONLY the FIRST unsolved issue
4. Use this EXACT format:

<cleaning_analysis>
  <issues_detected>
    <issue id="1" solved="true|false">Description of issue</issue>
  </issues_detected>

  <function_to_generate>
    <name>functionName</name>
    <docstring>What it does, edge cases handled</docstring>
    <code>
` + "```go" + `
func functionName(record map[string]interface{}) map[string]interface{} {
	// Complete implementation
	return record
}
` + "```" + `
    </code>
  </function_to_generate>

  <chunk_status>clean|needs_more_work</chunk_status>
</cleaning_analysis>

RULES:
- ONE function per response
- If all issues solved: <chunk_status>clean</chunk_status>, omit <function_to_generate>
- Signature must be exactly func Name(record map[string]interface{}) map[string]interface{}
- Only Go standard library imports, declared in an import block above the function
- Function must be idempotent (safe to run multiple times)
- Use ` + "```go" + ` markdown blocks for code`

// textTemplate is the fixed task template for freeform text chunks.
const textTemplate = `You are a text cleaning expert. Analyze the text block and generate Go functions to fix issues.

=== USER'S CLEANING GOALS ===
%s

=== EXISTING FUNCTIONS (DO NOT RECREATE) ===
%s

=== TEXT BLOCK ===
%s

=== TASK ===
1. List ALL text quality issues you find in the block
2. Mark each as solved="true" if an existing function handles it
3. Generate code for ONLY the FIRST unsolved issue
4. Use this EXACT format:

<cleaning_analysis>
  <issues_detected>
    <issue id="1" solved="true|false">Description of issue</issue>
  </issues_detected>

  <function_to_generate>
    <name>functionName</name>
    <docstring>What it does, edge cases handled</docstring>
    <code>
` + "```go" + `
func functionName(text string) string {
	// Complete implementation
	return text
}
` + "```" + `
    </code>
  </function_to_generate>

  <chunk_status>clean|needs_more_work</chunk_status>
</cleaning_analysis>

RULES:
- ONE function per response
- If all issues solved: <chunk_status>clean</chunk_status>, omit <function_to_generate>
- Signature must be exactly func Name(text string) string
- Only Go standard library imports, declared in an import block above the function
- Function must be idempotent (safe to run multiple times)
- Use ` + "```go" + ` markdown blocks for code`

// BuildPrompt combines the mode template with instructions, context, an
// optional schema description (structured chunks only), the chunk body, and
// corrective feedback from the prior iteration. Templates are stable
// strings; nothing beyond substitution happens here.
func BuildPrompt(instructions, context, chunk, schema string, structured bool, feedback string) string {
	if strings.TrimSpace(instructions) == "" {
		instructions = "(none provided — fix general data quality problems)"
	}
	if strings.TrimSpace(context) == "" {
		context = "(none yet)"
	}

	template := textTemplate
	if structured {
		template = structuredTemplate
	}
	prompt := fmt.Sprintf(template, instructions, context, chunk)

	if structured && strings.TrimSpace(schema) != "" {
		prompt += "\n\n=== RECORD SCHEMA (inferred) ===\n" + schema
	}
	if feedback != "" {
		prompt += "\n\nYour previous response had an error: " + feedback + "\nPlease fix and try again."
	}
	return prompt
}

// DescribeSchema infers a one-line-per-field description from sample
// records: field name plus the Go type observed first. Fields are sorted so
// the description is deterministic.
func DescribeSchema(records []map[string]interface{}) string {
	if len(records) == 0 {
		return ""
	}

	types := map[string]string{}
	for _, record := range records {
		for field, value := range record {
			if _, seen := types[field]; seen {
				continue
			}
			switch value.(type) {
			case string:
				types[field] = "string"
			case float64:
				types[field] = "number"
			case bool:
				types[field] = "bool"
			case nil:
				types[field] = "null"
			case []interface{}:
				types[field] = "array"
			case map[string]interface{}:
				types[field] = "object"
			default:
				types[field] = fmt.Sprintf("%T", value)
			}
		}
	}

	fields := make([]string, 0, len(types))
	for field := range types {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var b strings.Builder
	for _, field := range fields {
		fmt.Fprintf(&b, "- %s: %s\n", field, types[field])
	}
	return strings.TrimRight(b.String(), "\n")
}
