// Package telemetry provides a JSONL event stream for recording the decisions
// of an update check. Every run start, item decision, message, and run result
// is written as one structured JSON event stamped with the run's ID, making
// runs auditable and comparable across machines.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papapumpkin/manifold/internal/updatecheck"
)

// Event kinds identify the type of telemetry event.
const (
	KindRunStart    = "run_start"
	KindRunDone     = "run_done"
	KindItemDecided = "item_decided"
	KindMessage     = "message"
)

// Event represents a single telemetry record. Each event carries a timestamp,
// a kind tag, the run ID, and optional item context along with arbitrary
// structured data.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	RunID     string    `json:"run,omitempty"`
	Item      string    `json:"item,omitempty"`
	Side      string    `json:"side,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Decision is the Data payload of an item_decided event.
type Decision struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
}

// Message is the Data payload of a message event.
type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Emitter writes telemetry events to a JSONL file. It is safe for concurrent
// use by multiple goroutines. A nil *Emitter is a valid no-op emitter.
type Emitter struct {
	file  *os.File
	enc   *json.Encoder
	runID string
	mu    sync.Mutex
}

// NewEmitter creates a new Emitter that writes JSONL events to the file at
// path. The file is created if it does not exist, or appended to if it does.
// Each Emitter gets a fresh run ID.
func NewEmitter(path string) (*Emitter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Emitter{
		file:  f,
		enc:   json.NewEncoder(f),
		runID: uuid.NewString(),
	}, nil
}

// RunID returns the ID stamped on this emitter's events. A nil Emitter has
// no run ID.
func (e *Emitter) RunID() string {
	if e == nil {
		return ""
	}
	return e.runID
}

// Emit writes a single event to the JSONL file, filling in the timestamp and
// run ID when unset. Calling Emit on a nil Emitter is a no-op.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if evt.RunID == "" {
		evt.RunID = e.runID
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Report implements updatecheck.Reporter. Decisions become item_decided
// events and everything else a message event. Detail-level messages are
// dropped. Encoding errors are ignored so telemetry never fails a run.
func (e *Emitter) Report(ev updatecheck.Event) {
	if e == nil {
		return
	}
	if ev.IsDecision() {
		d := Decision{Outcome: string(ev.Outcome)}
		if ev.Reason != nil {
			d.Reason = ev.Reason.Error()
		}
		_ = e.Emit(Event{Kind: KindItemDecided, Item: ev.Name, Side: string(ev.Side), Data: d})
		return
	}
	if ev.Level == updatecheck.LevelDetail {
		return
	}
	_ = e.Emit(Event{Kind: KindMessage, Item: ev.Name, Data: Message{Level: ev.Level.String(), Text: ev.Message}})
}

// RunStart records the manifest and catalogs a run was started with.
func (e *Emitter) RunStart(manifest string, catalogs []string) error {
	return e.Emit(Event{
		Kind: KindRunStart,
		Data: map[string]any{"manifest": manifest, "catalogs": catalogs},
	})
}

// RunDone records the run result and how many items each list ended with.
func (e *Emitter) RunDone(result updatecheck.Result, counts map[string]int) error {
	return e.Emit(Event{
		Kind: KindRunDone,
		Data: map[string]any{"result": result.String(), "code": int(result), "counts": counts},
	})
}

// Close flushes and closes the underlying file. Calling Close on a nil
// Emitter is a no-op.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}
