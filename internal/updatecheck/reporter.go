package updatecheck

import "github.com/papapumpkin/manifold/internal/ledger"

// Level is the severity of a reported event.
type Level int

// Event levels, least severe first.
const (
	LevelDetail Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelDetail:
		return "detail"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	}
	return "unknown"
}

// Event is one structured observation from a run. Decision events carry a
// Name, Side and Outcome; plain messages carry only Level and Message.
type Event struct {
	Level   Level
	Name    string
	Side    ledger.Side
	Outcome ledger.Outcome
	Reason  error
	Message string
}

// IsDecision reports whether the event records a terminal outcome for a name.
func (e Event) IsDecision() bool {
	return e.Outcome != ""
}

// Reporter receives events as the engine makes decisions. Implementations
// render or persist them; the engine itself never prints.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(Event)

// Report calls f(ev).
func (f ReporterFunc) Report(ev Event) { f(ev) }

// MultiReporter forwards every event to each non-nil reporter in order.
type MultiReporter []Reporter

// Report implements Reporter.
func (m MultiReporter) Report(ev Event) {
	for _, r := range m {
		if r != nil {
			r.Report(ev)
		}
	}
}

type nopReporter struct{}

func (nopReporter) Report(Event) {}
