// internal/chunker/chunker.go
// Package chunker splits an input file into the ordered, deterministic
// sequence of chunks the pipeline feeds to the LLM backend. Chunk indices
// must be stable across runs because checkpoint resume addresses chunks by
// index.
package chunker

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Mode selects the chunking strategy.
type Mode string

const (
	// ModeAuto picks a format from the file extension, falling back to text.
	ModeAuto Mode = "auto"
	// ModeStructured forces record-based chunking.
	ModeStructured Mode = "structured"
	// ModeText forces character-window chunking.
	ModeText Mode = "text"
)

// Format identifies the concrete input format after detection.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatText  Format = "text"
)

// textCharsPerItem converts a record-oriented chunk size into a character
// budget for text mode.
const textCharsPerItem = 80

// Chunk is one ordered slice of the input. Text is what the backend sees;
// Records carries the parsed sample records for structured formats so the
// validator never re-parses chunk text.
type Chunk struct {
	Index   int
	Text    string
	Records []map[string]interface{}
}

// Structured reports whether the chunk carries parsed records.
func (c Chunk) Structured() bool { return c.Records != nil }

// DetectFormat resolves the concrete format for a path under the given mode.
// ModeText always yields FormatText. ModeAuto and ModeStructured inspect the
// extension; unknown extensions fall back to text (structured mode treats
// that as an error at split time only when no records can be parsed).
func DetectFormat(path string, mode Mode) Format {
	if mode == ModeText {
		return FormatText
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".json":
		return FormatJSON
	case ".jsonl", ".ndjson":
		return FormatJSONL
	default:
		return FormatText
	}
}

// SplitFile reads path and splits it according to mode. chunkSize is the
// record count per chunk for structured formats; for text it is multiplied
// by a fixed character factor. overlap is a character span shared between
// consecutive text chunks and is ignored for structured formats, which never
// share records.
func SplitFile(path string, mode Mode, chunkSize, overlap int) ([]Chunk, Format, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("could not read input file %q: %w", path, err)
	}
	format := DetectFormat(path, mode)
	chunks, err := Split(string(content), format, chunkSize, overlap)
	if err != nil {
		return nil, format, err
	}
	return chunks, format, nil
}

// Split chunks content for the given format. Identical arguments always
// yield an identical sequence. Blank content yields an empty sequence.
func Split(content string, format Format, chunkSize, overlap int) ([]Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	switch format {
	case FormatCSV:
		return splitCSV(content, chunkSize)
	case FormatJSON:
		return splitJSON(content, chunkSize)
	case FormatJSONL:
		return splitJSONL(content, chunkSize)
	case FormatText:
		return splitText(content, chunkSize*textCharsPerItem, overlap), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// splitText cuts content into character windows. Consecutive windows share
// overlap characters so issues spanning a boundary stay visible to at least
// one chunk. The overlap is clamped below the window budget so the sequence
// always advances.
func splitText(content string, charBudget, overlap int) []Chunk {
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= charBudget {
		overlap = charBudget - 1
	}
	step := charBudget - overlap

	runes := []rune(content)
	var chunks []Chunk
	for start := 0; start < len(runes); start += step {
		end := start + charBudget
		if end > len(runes) {
			end = len(runes)
		}
		text := string(runes[start:end])
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, Chunk{Index: len(chunks), Text: text})
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// splitCSV chunks by data-row count. Every chunk repeats the header row so
// it can be re-parsed standalone.
func splitCSV(content string, rowCount int) ([]Chunk, error) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("could not parse CSV input: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	dataRows := rows[1:]
	if len(dataRows) == 0 {
		// Header-only file: one chunk carrying just the header.
		text, err := renderCSV(header, nil)
		if err != nil {
			return nil, err
		}
		return []Chunk{{Index: 0, Text: text, Records: []map[string]interface{}{}}}, nil
	}

	var chunks []Chunk
	for start := 0; start < len(dataRows); start += rowCount {
		end := start + rowCount
		if end > len(dataRows) {
			end = len(dataRows)
		}
		slice := dataRows[start:end]
		text, err := renderCSV(header, slice)
		if err != nil {
			return nil, err
		}
		records := make([]map[string]interface{}, 0, len(slice))
		for _, row := range slice {
			record := make(map[string]interface{}, len(header))
			for i, col := range header {
				if i < len(row) {
					record[col] = row[i]
				} else {
					record[col] = ""
				}
			}
			records = append(records, record)
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Text: text, Records: records})
	}
	return chunks, nil
}

// renderCSV serializes a header plus rows back to CSV text.
func renderCSV(header []string, rows [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("could not render CSV chunk: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("could not render CSV chunk: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("could not render CSV chunk: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// splitJSON chunks a JSON array by item count. A top-level object becomes a
// single chunk.
func splitJSON(content string, itemCount int) ([]Chunk, error) {
	var value interface{}
	if err := json.Unmarshal([]byte(content), &value); err != nil {
		return nil, fmt.Errorf("could not parse JSON input: %w", err)
	}

	items, isArray := value.([]interface{})
	if !isArray {
		text, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("could not render JSON chunk: %w", err)
		}
		return []Chunk{{Index: 0, Text: string(text), Records: recordsFromItems([]interface{}{value})}}, nil
	}
	if len(items) == 0 {
		return nil, nil
	}

	var chunks []Chunk
	for start := 0; start < len(items); start += itemCount {
		end := start + itemCount
		if end > len(items) {
			end = len(items)
		}
		slice := items[start:end]
		text, err := json.MarshalIndent(slice, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("could not render JSON chunk: %w", err)
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Text: string(text), Records: recordsFromItems(slice)})
	}
	return chunks, nil
}

// splitJSONL chunks by non-blank line count. Lines that are not JSON objects
// still appear in chunk text but contribute no sample record.
func splitJSONL(content string, lineCount int) ([]Chunk, error) {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	if len(lines) == 0 {
		return nil, nil
	}

	var chunks []Chunk
	for start := 0; start < len(lines); start += lineCount {
		end := start + lineCount
		if end > len(lines) {
			end = len(lines)
		}
		slice := lines[start:end]
		records := []map[string]interface{}{}
		for _, line := range slice {
			var record map[string]interface{}
			if err := json.Unmarshal([]byte(line), &record); err == nil {
				records = append(records, record)
			}
		}
		chunks = append(chunks, Chunk{
			Index:   len(chunks),
			Text:    strings.Join(slice, "\n"),
			Records: records,
		})
	}
	return chunks, nil
}

// recordsFromItems keeps the JSON objects from a decoded slice, preserving
// order. Non-object items are skipped.
func recordsFromItems(items []interface{}) []map[string]interface{} {
	records := []map[string]interface{}{}
	for _, item := range items {
		if record, ok := item.(map[string]interface{}); ok {
			records = append(records, record)
		}
	}
	return records
}
