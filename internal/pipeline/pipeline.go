// internal/pipeline/pipeline.go
// Package pipeline drives the incremental cleaning run: chunk sequencing,
// the per-chunk iteration state machine, checkpointing, and the final merge.
// Processing is strictly sequential — each iteration's context depends on
// every function accepted before it.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/scourlabs/scour/internal/backend"
	"github.com/scourlabs/scour/internal/chunker"
	"github.com/scourlabs/scour/internal/logging"
	"github.com/scourlabs/scour/internal/metrics"
	"github.com/scourlabs/scour/internal/output"
	"github.com/scourlabs/scour/internal/promptgen"
	"github.com/scourlabs/scour/internal/response"
	"github.com/scourlabs/scour/internal/sandbox"
	"github.com/scourlabs/scour/internal/state"
)

// maxSamples bounds how many records of a chunk the validator exercises.
const maxSamples = 3

// chunkStatus is the terminal state of one chunk.
type chunkStatus string

const (
	chunkClean     chunkStatus = "clean"
	chunkExhausted chunkStatus = "exhausted"
	chunkAnalyzed  chunkStatus = "analyzed"
)

// Options configures a cleaning run. Zero values fall back to the defaults
// documented on each field.
type Options struct {
	// FilePath is the input data file.
	FilePath string
	// Instructions are the user's cleaning goals, included verbatim in
	// every prompt.
	Instructions string
	// ChunkSize is records per chunk for structured input; text chunks
	// derive a character budget from it. Default 50.
	ChunkSize int
	// MaxIterations bounds the iterations per chunk. Default 5.
	MaxIterations int
	// ContextBudget caps the existing-functions summary in characters.
	// Default 8000.
	ContextBudget int
	// Overlap is the character span shared by consecutive text chunks.
	Overlap int
	// Mode selects structured, text, or auto chunking. Default auto.
	Mode chunker.Mode
	// StateFile enables checkpointing when non-empty.
	StateFile string
	// OutputPath is where the merged artifact is written. Default
	// cleaning_functions.go.
	OutputPath string
	// ReportPath enables the markdown run report when non-empty.
	ReportPath string
	// DryRun analyzes chunks without generating functions or writing
	// anything.
	DryRun bool
	// Retry wraps every backend call. Defaults to DefaultRetryPolicy.
	Retry backend.RetryPolicy
	// ValidationTimeout bounds each sandbox sample invocation.
	ValidationTimeout time.Duration
	// Observer receives progress events; may be nil.
	Observer Observer
}

func (o *Options) applyDefaults() {
	if o.ChunkSize <= 0 {
		o.ChunkSize = 50
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = 5
	}
	if o.ContextBudget <= 0 {
		o.ContextBudget = 8000
	}
	if o.Mode == "" {
		o.Mode = chunker.ModeAuto
	}
	if o.OutputPath == "" {
		o.OutputPath = "cleaning_functions.go"
	}
	if o.Retry.MaxAttempts == 0 {
		o.Retry = backend.DefaultRetryPolicy()
	}
}

// ChunkSummary records one chunk's outcome for the run report.
type ChunkSummary struct {
	Index      int
	Status     string
	Iterations int
	Issues     []response.Issue
}

// Cleaner is the pipeline controller. It owns the function accumulator;
// functions are append-only and their order is the composition order.
type Cleaner struct {
	backend  backend.Backend
	opts     Options
	runner   *sandbox.Runner
	latency  *metrics.LatencyTracker
	funcs    []state.Function
	last     int // last completed chunk index, -1 before any
	total    int // expected chunk count from a checkpoint, 0 when fresh
	resumed  bool
	chunkLog []ChunkSummary
}

// New builds a Cleaner for a fresh run.
func New(b backend.Backend, opts Options) *Cleaner {
	opts.applyDefaults()
	return &Cleaner{
		backend: b,
		opts:    opts,
		runner:  sandbox.New(opts.ValidationTimeout),
		latency: &metrics.LatencyTracker{},
		last:    -1,
	}
}

// Resume rebuilds a Cleaner from a checkpoint. The tuning parameters come
// from the checkpoint so the chunk sequence is reproduced exactly; opts
// contributes only the run-surface settings (retry policy, observer, output
// and report paths). The checkpoint's recorded input identity must match
// the input file as it exists now.
func Resume(b backend.Backend, stateFile string, opts Options) (*Cleaner, error) {
	st, err := state.Read(stateFile)
	if err != nil {
		return nil, err
	}
	sha, err := state.InputIdentity(st.InputPath)
	if err != nil {
		return nil, err
	}
	if sha != st.InputSHA256 {
		return nil, fmt.Errorf("input file %q has changed since the checkpoint was written; refusing to resume", st.InputPath)
	}

	opts.FilePath = st.InputPath
	opts.Instructions = st.Instructions
	opts.ChunkSize = st.ChunkSize
	opts.MaxIterations = st.MaxIterations
	opts.ContextBudget = st.ContextBudget
	opts.Overlap = st.Overlap
	opts.Mode = chunker.Mode(st.Mode)
	opts.StateFile = stateFile

	c := New(b, opts)
	c.funcs = append(c.funcs, st.Functions...)
	c.last = st.LastCompletedChunk
	c.total = st.TotalChunks
	c.resumed = true
	return c, nil
}

// SetObserver installs the progress observer. It must be called before Run.
func (c *Cleaner) SetObserver(obs Observer) {
	c.opts.Observer = obs
}

// Functions returns a copy of the accepted function list.
func (c *Cleaner) Functions() []state.Function {
	out := make([]state.Function, len(c.funcs))
	copy(out, c.funcs)
	return out
}

// LatencySummary returns the backend call timing statistics for the run.
func (c *Cleaner) LatencySummary() metrics.LatencySummary {
	return c.latency.Summary()
}

// ChunkLog returns the per-chunk outcomes recorded so far.
func (c *Cleaner) ChunkLog() []ChunkSummary {
	out := make([]ChunkSummary, len(c.chunkLog))
	copy(out, c.chunkLog)
	return out
}

// Run executes the pipeline to completion: chunk the input once, iterate
// every remaining chunk to clean or exhaustion, checkpoint after each, and
// merge the output artifact. Chunk exhaustion is logged, never fatal; only
// configuration and IO faults abort the run.
func (c *Cleaner) Run(ctx context.Context) error {
	chunks, format, err := chunker.SplitFile(c.opts.FilePath, c.opts.Mode, c.opts.ChunkSize, c.opts.Overlap)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		logging.LogEvent("no data to process")
		c.emit(Event{Type: EventComplete, TotalChunks: 0})
		return nil
	}
	if c.resumed && c.total != len(chunks) {
		return fmt.Errorf("checkpoint expects %d chunks but input splits into %d; tuning parameters must not change across resume", c.total, len(chunks))
	}

	structured := format != chunker.FormatText
	schema := ""
	if structured {
		schema = promptgen.DescribeSchema(chunks[0].Records)
	}

	inputSHA := ""
	if c.opts.StateFile != "" && !c.opts.DryRun {
		if inputSHA, err = state.InputIdentity(c.opts.FilePath); err != nil {
			return err
		}
	}

	for i := c.last + 1; i < len(chunks); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		logging.LogEvent("processing chunk %d/%d", i+1, len(chunks))
		c.emit(Event{Type: EventChunkStart, ChunkIndex: i, TotalChunks: len(chunks)})

		summary := c.processChunk(ctx, chunks[i], len(chunks), structured, schema)
		c.chunkLog = append(c.chunkLog, summary)
		if summary.Status == string(chunkExhausted) {
			logging.LogEvent("warning: chunk %d hit max iterations (%d)", i, c.opts.MaxIterations)
		}

		c.last = i
		if c.opts.StateFile != "" && !c.opts.DryRun {
			if err := c.checkpoint(inputSHA, len(chunks)); err != nil {
				return err
			}
		}
		c.emit(Event{Type: EventChunkDone, ChunkIndex: i, TotalChunks: len(chunks), Message: summary.Status, Issues: summary.Issues})
	}

	if !c.opts.DryRun {
		skipped, err := output.Write(c.opts.OutputPath, c.funcs, structured)
		if err != nil {
			return err
		}
		for _, name := range skipped {
			logging.LogEvent("warning: function %q excluded from output", name)
		}
		if c.opts.ReportPath != "" {
			if err := c.writeReport(structured); err != nil {
				logging.LogEvent("warning: could not write report: %v", err)
			}
		}
	}

	c.emit(Event{Type: EventComplete, ChunkIndex: len(chunks) - 1, TotalChunks: len(chunks)})
	logging.LogEvent("done: generated %d functions", len(c.funcs))
	return nil
}

// processChunk runs the iteration state machine for one chunk. Parse and
// validation failures become feedback for the next iteration; a clean status
// ends the chunk early; running out of iterations exhausts it.
func (c *Cleaner) processChunk(ctx context.Context, chunk chunker.Chunk, total int, structured bool, schema string) ChunkSummary {
	summary := ChunkSummary{Index: chunk.Index, Status: string(chunkExhausted)}
	feedback := ""

	for iter := 0; iter < c.opts.MaxIterations; iter++ {
		summary.Iterations = iter + 1
		c.emit(Event{Type: EventIteration, ChunkIndex: chunk.Index, TotalChunks: total, Iteration: iter})

		contextText := promptgen.BuildContext(c.funcs, c.opts.ContextBudget)
		prompt := promptgen.BuildPrompt(c.opts.Instructions, contextText, chunk.Text, schema, structured, feedback)

		start := time.Now()
		reply, err := c.opts.Retry.Do(ctx, func() (string, error) {
			return c.backend.Generate(ctx, prompt)
		})
		c.latency.Observe(time.Since(start))
		if err != nil {
			// Retries exhausted: fatal to the iteration, and with no way to
			// make progress, to the chunk. The run itself continues.
			logging.LogEvent("chunk %d iteration %d: backend unavailable: %v", chunk.Index, iter, err)
			return summary
		}

		result, perr := response.Parse(reply)
		if perr != nil {
			feedback = perr.Error()
			logging.LogEvent("chunk %d iteration %d: %v", chunk.Index, iter, perr)
			continue
		}
		feedback = ""
		summary.Issues = mergeIssues(summary.Issues, result.Issues)

		if c.opts.DryRun {
			summary.Status = string(chunkAnalyzed)
			return summary
		}
		if result.Status == response.StatusClean {
			summary.Status = string(chunkClean)
			return summary
		}

		if result.Function == nil {
			logging.LogEvent("warning: chunk %d iteration %d produced no function", chunk.Index, iter)
			continue
		}

		var verdict sandbox.Result
		if structured {
			samples := chunk.Records
			if len(samples) > maxSamples {
				samples = samples[:maxSamples]
			}
			verdict = c.runner.ValidateRecords(ctx, result.Function.Code, result.Function.Name, samples)
		} else {
			verdict = c.runner.ValidateText(ctx, result.Function.Code, result.Function.Name, chunk.Text)
		}
		if !verdict.OK {
			feedback = verdict.Message
			logging.LogEvent("chunk %d iteration %d: validation failed: %s", chunk.Index, iter, verdict.Message)
			c.emit(Event{Type: EventValidationFailed, ChunkIndex: chunk.Index, TotalChunks: total, Iteration: iter, FunctionName: result.Function.Name, Message: verdict.Message})
			continue
		}

		c.funcs = append(c.funcs, state.Function{
			Name:      result.Function.Name,
			Docstring: result.Function.Docstring,
			Code:      result.Function.Code,
		})
		logging.LogEvent("  generated: %s", result.Function.Name)
		c.emit(Event{Type: EventFunctionGenerated, ChunkIndex: chunk.Index, TotalChunks: total, Iteration: iter, FunctionName: result.Function.Name})
	}
	return summary
}

// checkpoint persists the current accumulator state atomically.
func (c *Cleaner) checkpoint(inputSHA string, totalChunks int) error {
	st := &state.PipelineState{
		InputPath:          c.opts.FilePath,
		InputSHA256:        inputSHA,
		Instructions:       c.opts.Instructions,
		ChunkSize:          c.opts.ChunkSize,
		MaxIterations:      c.opts.MaxIterations,
		ContextBudget:      c.opts.ContextBudget,
		Overlap:            c.opts.Overlap,
		Mode:               string(c.opts.Mode),
		LastCompletedChunk: c.last,
		TotalChunks:        totalChunks,
		Functions:          c.Functions(),
	}
	if err := state.Save(c.opts.StateFile, st); err != nil {
		return fmt.Errorf("could not save checkpoint: %w", err)
	}
	return nil
}

// mergeIssues appends newly reported issues, replacing earlier reports that
// share an id so the run report reflects the latest solved flags.
func mergeIssues(existing, incoming []response.Issue) []response.Issue {
	for _, issue := range incoming {
		replaced := false
		for i := range existing {
			if existing[i].ID != "" && existing[i].ID == issue.ID {
				existing[i] = issue
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, issue)
		}
	}
	return existing
}
