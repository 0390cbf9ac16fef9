// internal/chunker/chunker_test.go
package chunker

import (
	"strings"
	"testing"
)

// TestSplitDeterminism tests that Split produces byte-identical chunk
// sequences when called twice with the same input and parameters. Resume
// addresses chunks by index, so any nondeterminism here would corrupt
// resumed runs.
func TestSplitDeterminism(t *testing.T) {
	content := `[{"b": 1, "a": 2}, {"d": 3, "c": 4}, {"f": 5, "e": 6}]`
	first, err := Split(content, FormatJSON, 2, 0)
	if err != nil {
		t.Fatalf("Split() failed: %v", err)
	}
	second, err := Split(content, FormatJSON, 2, 0)
	if err != nil {
		t.Fatalf("Split() failed on second call: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Text != second[i].Text {
			t.Errorf("chunk %d text differs between calls", i)
		}
		if first[i].Index != i {
			t.Errorf("chunk %d has index %d", i, first[i].Index)
		}
	}
}

// TestSplitCSV tests that CSV chunking splits by data-row count and repeats
// the header row in every chunk so each chunk can be re-parsed standalone.
// It also verifies the parsed sample records map header names to values.
func TestSplitCSV(t *testing.T) {
	content := "name,age\nalice,30\nbob,40\ncarol,50\n"
	chunks, err := Split(content, FormatCSV, 2, 0)
	if err != nil {
		t.Fatalf("Split() failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if !strings.HasPrefix(chunk.Text, "name,age") {
			t.Errorf("chunk %d does not carry the header: %q", i, chunk.Text)
		}
	}
	if len(chunks[0].Records) != 2 || len(chunks[1].Records) != 1 {
		t.Fatalf("unexpected record counts: %d, %d", len(chunks[0].Records), len(chunks[1].Records))
	}
	if chunks[0].Records[0]["name"] != "alice" {
		t.Errorf("expected first record name alice, got %v", chunks[0].Records[0]["name"])
	}
	if chunks[1].Records[0]["name"] != "carol" {
		t.Errorf("expected last record name carol, got %v", chunks[1].Records[0]["name"])
	}
}

// TestSplitTextOverlap tests that text chunks share exactly the configured
// overlap with their predecessor and that the overlap is clamped below the
// chunk budget so the sequence always advances.
func TestSplitTextOverlap(t *testing.T) {
	content := strings.Repeat("abcdefghij", 100) // 1000 chars
	chunks := splitText(content, 400, 100)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Text
		tail := prev[len(prev)-100:]
		if !strings.HasPrefix(chunks[i].Text, tail) {
			t.Errorf("chunk %d does not begin with the previous chunk's 100-char tail", i)
		}
	}

	// Overlap >= budget must still advance.
	clamped := splitText(content, 100, 500)
	if len(clamped) == 0 {
		t.Fatal("expected chunks despite oversized overlap")
	}
	for i, chunk := range clamped {
		if chunk.Index != i {
			t.Fatalf("chunk indices out of order at %d", i)
		}
	}
}

// TestSplitEmptyInput tests that blank input yields an empty sequence for
// every format, which lets the controller treat the run as trivially
// complete.
func TestSplitEmptyInput(t *testing.T) {
	for _, format := range []Format{FormatCSV, FormatJSONL, FormatText} {
		chunks, err := Split("   \n  ", format, 10, 0)
		if err != nil {
			t.Fatalf("Split(%s) failed: %v", format, err)
		}
		if len(chunks) != 0 {
			t.Errorf("Split(%s) on blank input yielded %d chunks", format, len(chunks))
		}
	}
	chunks, err := Split("[]", FormatJSON, 10, 0)
	if err != nil {
		t.Fatalf("Split(json) failed: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("empty JSON array yielded %d chunks", len(chunks))
	}
}

// TestSplitJSONL tests that JSONL chunking splits by non-blank line count
// and parses object lines into sample records while keeping non-object
// lines in the chunk text only.
func TestSplitJSONL(t *testing.T) {
	content := "{\"id\": 1}\n\n{\"id\": 2}\nnot json\n{\"id\": 3}\n"
	chunks, err := Split(content, FormatJSONL, 2, 0)
	if err != nil {
		t.Fatalf("Split() failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if len(chunks[0].Records) != 2 {
		t.Errorf("expected 2 records in first chunk, got %d", len(chunks[0].Records))
	}
	if !strings.Contains(chunks[1].Text, "not json") {
		t.Errorf("non-JSON line missing from chunk text: %q", chunks[1].Text)
	}
	if len(chunks[1].Records) != 1 {
		t.Errorf("expected 1 record in second chunk, got %d", len(chunks[1].Records))
	}
}

// TestDetectFormat tests extension-based format detection under each mode:
// text mode always wins, auto falls back to text for unknown extensions.
func TestDetectFormat(t *testing.T) {
	cases := []struct {
		path string
		mode Mode
		want Format
	}{
		{"data.csv", ModeAuto, FormatCSV},
		{"data.json", ModeAuto, FormatJSON},
		{"data.jsonl", ModeAuto, FormatJSONL},
		{"data.ndjson", ModeAuto, FormatJSONL},
		{"notes.txt", ModeAuto, FormatText},
		{"data.csv", ModeText, FormatText},
		{"data.csv", ModeStructured, FormatCSV},
	}
	for _, tc := range cases {
		if got := DetectFormat(tc.path, tc.mode); got != tc.want {
			t.Errorf("DetectFormat(%q, %s) = %s, want %s", tc.path, tc.mode, got, tc.want)
		}
	}
}

// TestSplitRejectsBadChunkSize tests that a non-positive chunk size is an
// error rather than a silent fallback.
func TestSplitRejectsBadChunkSize(t *testing.T) {
	if _, err := Split("a,b\n1,2\n", FormatCSV, 0, 0); err == nil {
		t.Fatal("expected error for chunk size 0")
	}
}
