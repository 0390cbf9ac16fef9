// internal/state/state.go
// Package state persists pipeline checkpoints so interrupted runs can resume.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// Version is the checkpoint document version. Loading rejects any other
// value; the checkpoint embeds generated source whose contract may change
// between versions, so no migration is attempted.
const Version = "1.0.0"

// Function is one accepted unit of generated cleaning logic. Functions are
// immutable once accepted and their order equals acceptance order.
type Function struct {
	Name      string `json:"name"`
	Docstring string `json:"docstring"`
	Code      string `json:"code"`
}

// PipelineState is the durable checkpoint written after every completed chunk.
type PipelineState struct {
	Version            string     `json:"version"`
	InputPath          string     `json:"input_path"`
	InputSHA256        string     `json:"input_sha256"`
	Instructions       string     `json:"instructions"`
	ChunkSize          int        `json:"chunk_size"`
	MaxIterations      int        `json:"max_iterations"`
	ContextBudget      int        `json:"context_budget"`
	Overlap            int        `json:"overlap"`
	Mode               string     `json:"mode"`
	LastCompletedChunk int        `json:"last_completed_chunk"`
	TotalChunks        int        `json:"total_chunks"`
	Functions          []Function `json:"functions"`
	Timestamp          time.Time  `json:"timestamp"`
}

// checkpointSchema validates the structural shape of a checkpoint document
// before it is unmarshaled, so a corrupt or foreign file fails with a clear
// diagnostic instead of a partially-populated state.
const checkpointSchema = `{
  "type": "object",
  "required": ["version", "input_path", "input_sha256", "last_completed_chunk", "total_chunks", "functions"],
  "properties": {
    "version": {"type": "string"},
    "input_path": {"type": "string"},
    "input_sha256": {"type": "string"},
    "instructions": {"type": "string"},
    "chunk_size": {"type": "integer", "minimum": 1},
    "max_iterations": {"type": "integer", "minimum": 1},
    "context_budget": {"type": "integer", "minimum": 0},
    "overlap": {"type": "integer", "minimum": 0},
    "mode": {"type": "string"},
    "last_completed_chunk": {"type": "integer", "minimum": -1},
    "total_chunks": {"type": "integer", "minimum": 0},
    "functions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "code"],
        "properties": {
          "name": {"type": "string"},
          "docstring": {"type": "string"},
          "code": {"type": "string"}
        }
      }
    },
    "timestamp": {"type": "string"}
  }
}`

// InputIdentity returns the hex SHA-256 of the file at path. The identity is
// recorded in checkpoints and compared on resume so a checkpoint is never
// silently replayed against a different dataset.
func InputIdentity(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("could not read input for identity: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Save writes st to path atomically: the document is serialized to a
// temporary sibling, synced, and renamed over the target in a single step.
// A crash mid-write leaves the previous checkpoint intact.
func Save(path string, st *PipelineState) error {
	st.Version = Version
	st.Timestamp = time.Now().UTC()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("could not serialize checkpoint: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("could not create checkpoint temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("could not write checkpoint: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("could not sync checkpoint: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("could not close checkpoint temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("could not replace checkpoint: %w", err)
	}
	return nil
}

// Load reads and validates the checkpoint at path. The document must match
// the checkpoint schema, carry the exact current Version, and record the
// same input identity as the current run. Any mismatch is an error; resume
// must never proceed against the wrong dataset or an incompatible format.
func Load(path, inputPath, inputSHA string) (*PipelineState, error) {
	st, err := Read(path)
	if err != nil {
		return nil, err
	}
	if st.InputPath != inputPath || st.InputSHA256 != inputSHA {
		return nil, fmt.Errorf(
			"checkpoint input mismatch: checkpoint was created for %q (sha256 %.12s…), current input is %q (sha256 %.12s…)",
			st.InputPath, st.InputSHA256, inputPath, inputSHA)
	}
	return st, nil
}

// Read reads and validates the checkpoint at path without an identity to
// compare against. Callers resuming purely from the checkpoint use Read and
// then re-derive the identity from the recorded input path.
func Read(path string) (*PipelineState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read checkpoint %q: %w", path, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(checkpointSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid checkpoint %q: %w", path, err)
	}
	if !result.Valid() {
		msgs := ""
		for _, desc := range result.Errors() {
			if msgs != "" {
				msgs += "; "
			}
			msgs += desc.String()
		}
		return nil, fmt.Errorf("checkpoint %q does not match the expected shape: %s", path, msgs)
	}

	var st PipelineState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("could not decode checkpoint %q: %w", path, err)
	}
	if st.Version != Version {
		return nil, fmt.Errorf("checkpoint version %q is not supported (want %q); delete the checkpoint and restart", st.Version, Version)
	}
	return &st, nil
}
