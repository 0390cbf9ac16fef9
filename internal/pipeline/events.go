// internal/pipeline/events.go
package pipeline

import (
	"github.com/scourlabs/scour/internal/logging"
	"github.com/scourlabs/scour/internal/response"
)

// EventType identifies one kind of progress event.
type EventType string

const (
	// EventChunkStart fires before the first iteration of a chunk.
	EventChunkStart EventType = "chunk_start"
	// EventIteration fires at the top of every iteration.
	EventIteration EventType = "iteration"
	// EventValidationFailed fires when a proposed function fails sandbox
	// validation; Message carries the diagnostic.
	EventValidationFailed EventType = "validation_failed"
	// EventFunctionGenerated fires when a function is accepted.
	EventFunctionGenerated EventType = "function_generated"
	// EventChunkDone fires after a chunk reaches clean or exhausts its
	// iteration budget; Message is the terminal chunk status.
	EventChunkDone EventType = "chunk_done"
	// EventComplete fires once, after the output artifact is written.
	EventComplete EventType = "complete"
)

// Event is one progress notification. ChunkIndex and TotalChunks are always
// set; the remaining fields are event-specific.
type Event struct {
	Type         EventType
	ChunkIndex   int
	TotalChunks  int
	Iteration    int
	FunctionName string
	Message      string
	Issues       []response.Issue
}

// Observer receives progress events synchronously. Emission is best-effort:
// a panicking observer is logged and never propagates into the pipeline.
type Observer func(Event)

// emit delivers ev to the observer, swallowing observer faults.
func (c *Cleaner) emit(ev Event) {
	if c.opts.Observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logging.LogEvent("progress observer failed on %s event: %v", ev.Type, r)
		}
	}()
	c.opts.Observer(ev)
}
