// Package updatecheck decides, for one client run, which catalog items to
// install, update, or remove. It walks each requested item's requires
// graph depth first, consults the installed-state query and the payload
// fetcher, and records every decision in a run-scoped ledger.
package updatecheck

import (
	"fmt"

	"github.com/papapumpkin/manifold/internal/catalog"
	"github.com/papapumpkin/manifold/internal/fetch"
	"github.com/papapumpkin/manifold/internal/installed"
	"github.com/papapumpkin/manifold/internal/ledger"
)

// Mode is the reason an item is being installed. It decides which ledger
// list a successful install lands in.
type Mode int

const (
	// ModeManaged installs are mandated by policy.
	ModeManaged Mode = iota
	// ModeOptional installs were selected through self-serve.
	ModeOptional
	// ModeUpdate installs update something already present.
	ModeUpdate
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeManaged:
		return "managed"
	case ModeOptional:
		return "optional"
	case ModeUpdate:
		return "update"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// CatalogIndex is the read-only lookup the engine resolves names against.
// *catalog.Index satisfies it.
type CatalogIndex interface {
	Resolve(entry string, catalogs []string) (*catalog.Descriptor, error)
	UpdatesFor(name string, catalogs []string) []*catalog.Descriptor
	Autoremovals(catalogs []string) []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithQuerier sets the installed-state query. Without one, nothing is
// considered installed.
func WithQuerier(q installed.Querier) Option {
	return func(e *Engine) {
		if q != nil {
			e.querier = q
		}
	}
}

// WithReporter sets the event sink.
func WithReporter(r Reporter) Option {
	return func(e *Engine) {
		if r != nil {
			e.reporter = r
		}
	}
}

// WithWalkInstalledDependencies makes the engine walk the requires of items
// that are already installed, so missing requirements get repaired.
func WithWalkInstalledDependencies(walk bool) Option {
	return func(e *Engine) { e.walkInstalled = walk }
}

// Engine is the install-decision state machine. It holds no per-run state:
// everything decided lives in the *ledger.Ledger passed to each call, and
// the same ledger must be passed through a whole run.
type Engine struct {
	index         CatalogIndex
	fetcher       fetch.Coordinator
	querier       installed.Querier
	reporter      Reporter
	manifests     ManifestSource
	walkInstalled bool
}

// NewEngine returns an Engine resolving against ix and acquiring payloads
// through fetcher.
func NewEngine(ix CatalogIndex, fetcher fetch.Coordinator, opts ...Option) *Engine {
	e := &Engine{
		index:    ix,
		fetcher:  fetcher,
		querier:  noneInstalled{},
		reporter: nopReporter{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type noneInstalled struct{}

func (noneInstalled) Query([]catalog.Probe) installed.Status { return installed.NotPresent }

// ProcessInstall decides whether name, and everything it requires, should be
// installed. The decision for every name touched is recorded in l; calling
// again for a decided name returns the recorded outcome without any lookup,
// walk, or fetch.
func (e *Engine) ProcessInstall(name string, catalogs []string, l *ledger.Ledger) ledger.Outcome {
	out, _ := e.install(name, catalogs, l, ModeManaged)
	return out
}

// install is ProcessInstall with an explicit mode. The returned error is the
// reason recorded for a Failed or Skipped outcome.
func (e *Engine) install(entry string, catalogs []string, l *ledger.Ledger, mode Mode) (ledger.Outcome, error) {
	name, _ := catalog.SplitNameAndVersion(entry)

	if rec, ok := l.InstallRecord(name); ok {
		if rec.State == ledger.InProgress {
			err := fmt.Errorf("%w: %s", ErrCircularDependency, name)
			e.reporter.Report(Event{Level: LevelWarning, Name: name, Message: err.Error()})
			return ledger.OutcomeFailed, err
		}
		return rec.Outcome, rec.Reason
	}

	if l.IsProcessedUninstall(name) {
		err := fmt.Errorf("%w: %s", ErrProcessedForRemoval, name)
		e.reporter.Report(Event{
			Level:   LevelWarning,
			Name:    name,
			Side:    ledger.SideInstall,
			Outcome: ledger.OutcomeSkipped,
			Reason:  err,
		})
		return ledger.OutcomeSkipped, err
	}

	l.ClaimInstall(name)

	d, err := e.index.Resolve(entry, catalogs)
	if err != nil {
		return e.finishInstall(l, name, ledger.OutcomeFailed, fmt.Errorf("%w: %s", ErrNotFoundInCatalogs, entry))
	}

	if e.querier.Query(d.Installs).Satisfied() {
		if e.walkInstalled {
			if _, err := e.requirements(d, catalogs, l, mode); err != nil {
				e.reporter.Report(Event{Level: LevelWarning, Name: name, Message: "installed but " + err.Error()})
			}
		}
		item := newItem(d)
		item.Installed = true
		e.schedule(l, d, item, mode)
		out, reason := e.finishInstall(l, name, ledger.OutcomeAlreadyInstalled, nil)
		e.lookForUpdates(name, catalogs, l)
		return out, reason
	}

	if out, err := e.requirements(d, catalogs, l, mode); out == ledger.OutcomeFailed {
		e.recordProblem(l, d, mode, err)
		return e.finishInstall(l, name, ledger.OutcomeFailed, err)
	}

	payload, err := e.fetcher.Acquire(d)
	if err != nil {
		e.recordProblem(l, d, mode, err)
		return e.finishInstall(l, name, ledger.OutcomeFailed, err)
	}

	item := newItem(d)
	item.InstallerItem = payload.Path
	e.schedule(l, d, item, mode)
	out, reason := e.finishInstall(l, name, ledger.OutcomeInstalled, nil)
	e.lookForUpdates(name, catalogs, l)
	return out, reason
}

// requirements walks every entry of Expand(d) in order. All entries are
// walked even after one fails, so independent branches still get decided.
// The first failure is returned wrapped in ErrDependencyUnresolved.
func (e *Engine) requirements(d *catalog.Descriptor, catalogs []string, l *ledger.Ledger, mode Mode) (ledger.Outcome, error) {
	var first error
	for _, dep := range Expand(d) {
		out, err := e.install(dep, catalogs, l, mode)
		if out != ledger.OutcomeFailed || first != nil {
			continue
		}
		depName, _ := catalog.SplitNameAndVersion(dep)
		if err == nil {
			first = fmt.Errorf("%w: %s", ErrDependencyUnresolved, depName)
		} else {
			first = fmt.Errorf("%w: %s: %w", ErrDependencyUnresolved, depName, err)
		}
	}
	if first != nil {
		return ledger.OutcomeFailed, first
	}
	return ledger.OutcomeInstalled, nil
}

// schedule records item in the list matching mode. Anything that updates an
// item already decided this run is a managed update regardless of mode.
func (e *Engine) schedule(l *ledger.Ledger, d *catalog.Descriptor, item ledger.Item, mode Mode) {
	switch {
	case mode == ModeUpdate:
		l.RecordManagedUpdate(item)
	case UpdateTarget(d, l) != "":
		l.RecordManagedUpdate(item)
	case mode == ModeOptional:
		l.RecordOptionalInstall(item)
	default:
		l.RecordManagedInstall(item)
	}
}

// recordProblem lists a failed managed install with an explanatory note and
// no installer item, so finalization can report it as a problem item.
func (e *Engine) recordProblem(l *ledger.Ledger, d *catalog.Descriptor, mode Mode, reason error) {
	if mode != ModeManaged {
		return
	}
	item := newItem(d)
	item.Note = reason.Error()
	l.RecordManagedInstall(item)
}

// lookForUpdates processes every visible update for name as a managed update.
func (e *Engine) lookForUpdates(name string, catalogs []string, l *ledger.Ledger) {
	for _, u := range e.index.UpdatesFor(name, catalogs) {
		if l.IsProcessedInstall(u.Name) || l.IsProcessedUninstall(u.Name) {
			continue
		}
		e.reporter.Report(Event{
			Level:   LevelDetail,
			Name:    u.Name,
			Message: fmt.Sprintf("%s is an update for %s", u.Label(), name),
		})
		e.install(u.Name, catalogs, l, ModeUpdate)
	}
}

func (e *Engine) finishInstall(l *ledger.Ledger, name string, outcome ledger.Outcome, reason error) (ledger.Outcome, error) {
	l.FinishInstall(name, outcome, reason)
	e.reporter.Report(Event{
		Level:   levelFor(outcome),
		Name:    name,
		Side:    ledger.SideInstall,
		Outcome: outcome,
		Reason:  reason,
	})
	return outcome, reason
}

// ProcessManagedUpdate installs name only when some version of it is
// already present. Items that are not installed are skipped without being
// marked, so a later self-serve selection can still install them.
func (e *Engine) ProcessManagedUpdate(entry string, catalogs []string, l *ledger.Ledger) ledger.Outcome {
	name, _ := catalog.SplitNameAndVersion(entry)
	if rec, ok := l.InstallRecord(name); ok {
		return rec.Outcome
	}
	if l.IsProcessedUninstall(name) {
		return ledger.OutcomeSkipped
	}

	d, err := e.index.Resolve(entry, catalogs)
	if err != nil {
		e.reporter.Report(Event{
			Level:   LevelWarning,
			Name:    name,
			Message: fmt.Sprintf("managed update %s is not available in catalogs %v", name, catalogs),
		})
		return ledger.OutcomeSkipped
	}
	if !e.querier.Query(d.Installs).Present() {
		e.reporter.Report(Event{
			Level:   LevelDetail,
			Name:    name,
			Message: fmt.Sprintf("%s is not installed; skipping managed update", name),
		})
		return ledger.OutcomeSkipped
	}

	out, _ := e.install(entry, catalogs, l, ModeUpdate)
	return out
}

// ProcessOptionalInstall lists name as available for self-serve install.
// Nothing is fetched or scheduled. Reports whether the item was newly listed.
func (e *Engine) ProcessOptionalInstall(entry string, catalogs []string, l *ledger.Ledger) (ledger.Item, bool) {
	name, _ := catalog.SplitNameAndVersion(entry)
	d, err := e.index.Resolve(entry, catalogs)
	if err != nil {
		e.reporter.Report(Event{
			Level:   LevelWarning,
			Name:    name,
			Message: fmt.Sprintf("optional install %s is not available in catalogs %v", name, catalogs),
		})
		return ledger.Item{}, false
	}

	item := newItem(d)
	item.Installed = e.querier.Query(d.Installs).Satisfied()
	if !item.Installed && d.InstallerItemLocation == "" {
		item.Note = "No installer item available"
	}
	return item, l.RecordAvailableOptional(item)
}

func newItem(d *catalog.Descriptor) ledger.Item {
	return ledger.Item{
		Name:          d.Name,
		Version:       d.Version,
		DisplayName:   d.DisplayName,
		InstallerType: d.InstallerType,
		Size:          d.InstallerItemSize,
		Requires:      append([]string(nil), d.Requires...),
		UpdateFor:     append([]string(nil), d.UpdateFor...),
		Unattended:    d.UnattendedInstall,
	}
}

func levelFor(o ledger.Outcome) Level {
	switch o {
	case ledger.OutcomeFailed:
		return LevelError
	case ledger.OutcomeSkipped:
		return LevelWarning
	}
	return LevelInfo
}
