package updatecheck

import (
	"context"
	"errors"
	"fmt"

	"github.com/papapumpkin/manifold/internal/ledger"
)

// Result summarizes a Check run for the caller's exit status.
type Result int

// Run results. Negative values mean the run did not complete normally.
const (
	ResultDidntStart         Result = -2
	ResultFinishedWithErrors Result = -1
	ResultNoUpdatesAvailable Result = 0
	ResultUpdatesAvailable   Result = 1
)

// String returns the result name.
func (r Result) String() string {
	switch r {
	case ResultDidntStart:
		return "didnt_start"
	case ResultFinishedWithErrors:
		return "finished_with_errors"
	case ResultNoUpdatesAvailable:
		return "no_updates_available"
	case ResultUpdatesAvailable:
		return "updates_available"
	}
	return fmt.Sprintf("result(%d)", int(r))
}

// installerTypeOSInstall marks items that restart into an OS installer and
// so must run after everything else.
const installerTypeOSInstall = "startosinstall"

// Run is the input to one Check.
type Run struct {
	Manifest  *Manifest
	LocalOnly *Manifest // optional machine-local additions
	SelfServe SelfServe
}

type stage struct {
	name string
	fn   func() error
}

// Check processes a client's manifest in stages (managed installs,
// removals, autoremovals and updates, the local-only manifest, optional
// installs, featured items, then self-serve selections) and returns the
// finalized InstallInfo. Cancellation is honoured between stages; a stopped
// run returns ResultNoUpdatesAvailable with what was decided so far,
// finalized like a complete run. Callers must not persist it.
func (e *Engine) Check(ctx context.Context, run Run, l *ledger.Ledger) (Result, ledger.Info) {
	m := run.Manifest
	if m == nil {
		return ResultDidntStart, l.Info()
	}
	if len(m.Catalogs) == 0 {
		e.reporter.Report(Event{Level: LevelError, Message: fmt.Sprintf("%v: %s", ErrNoCatalogs, m.Name)})
		return ResultFinishedWithErrors, l.Info()
	}

	var local *Manifest
	if run.LocalOnly != nil {
		lo := *run.LocalOnly
		if len(lo.Catalogs) > 0 {
			e.reporter.Report(Event{
				Level:   LevelWarning,
				Message: "catalogs in the local-only manifest are ignored",
			})
		}
		lo.Catalogs = m.Catalogs
		local = &lo
	}

	stages := []stage{
		{"managed installs", func() error { return e.ProcessManifest(m, KeyManagedInstalls, l) }},
		{"managed removals", func() error { return e.ProcessManifest(m, KeyManagedUninstalls, l) }},
		{"implicit removals", func() error { return e.autoremove(m, l) }},
		{"managed updates", func() error { return e.ProcessManifest(m, KeyManagedUpdates, l) }},
		{"local-only manifest", func() error {
			if local == nil {
				return nil
			}
			return errors.Join(
				e.ProcessManifest(local, KeyManagedInstalls, l),
				e.ProcessManifest(local, KeyManagedUninstalls, l),
			)
		}},
		{"optional installs", func() error {
			err := e.ProcessManifest(m, KeyOptionalInstalls, l)
			if local != nil {
				err = errors.Join(err, e.ProcessManifest(local, KeyOptionalInstalls, l))
			}
			return err
		}},
		{"featured items", func() error { return e.ProcessManifest(m, KeyFeaturedItems, l) }},
		{"self-serve selections", func() error { return e.selfServe(m, run.SelfServe, l) }},
	}

	for _, s := range stages {
		if ctx.Err() != nil {
			e.reporter.Report(Event{Level: LevelInfo, Message: "stop requested; skipping " + s.name})
			return ResultNoUpdatesAvailable, Finalize(l.Info(), e.reporter)
		}
		e.reporter.Report(Event{Level: LevelDetail, Message: "checking " + s.name})
		if err := s.fn(); err != nil {
			e.reporter.Report(Event{Level: LevelWarning, Message: fmt.Sprintf("%s: %v", s.name, err)})
		}
	}

	info := Finalize(l.Info(), e.reporter)
	return ResultFor(info), info
}

// Finalize turns a raw ledger snapshot into what the execution stage
// consumes:
//   - offered optional items are flagged will_be_installed or will_be_removed
//   - managed installs that could not be scheduled become problem_items
//   - startosinstall items move to the end of managed_installs
//   - install lists keep only items with an installer item, and removals
//     keep only items that are installed
func Finalize(info ledger.Info, r Reporter) ledger.Info {
	if r == nil {
		r = nopReporter{}
	}

	scheduled := make(map[string]bool)
	for _, list := range [][]ledger.Item{info.ManagedInstalls, info.ManagedUpdates, info.OptionalInstalls} {
		for _, it := range list {
			if it.InstallerItem != "" {
				scheduled[it.Name] = true
			}
		}
	}
	removing := make(map[string]bool)
	for _, it := range info.Removals {
		if it.Installed {
			removing[it.Name] = true
		}
	}
	for i := range info.AvailableOptional {
		it := &info.AvailableOptional[i]
		it.WillBeInstalled = scheduled[it.Name]
		it.WillBeRemoved = removing[it.Name]
	}

	info.ProblemItems = nil
	for _, it := range info.ManagedInstalls {
		if !it.Installed && it.InstallerItem == "" {
			info.ProblemItems = append(info.ProblemItems, it)
		}
	}

	var regular, osInstalls []ledger.Item
	for _, it := range info.ManagedInstalls {
		if it.InstallerType == installerTypeOSInstall {
			osInstalls = append(osInstalls, it)
		} else {
			regular = append(regular, it)
		}
	}
	if len(osInstalls) > 1 {
		r.Report(Event{
			Level:   LevelWarning,
			Message: fmt.Sprintf("%d %s items scheduled; only the first will run", len(osInstalls), installerTypeOSInstall),
		})
	}

	info.ManagedInstalls = withInstallerItem(append(regular, osInstalls...))
	info.ManagedUpdates = withInstallerItem(info.ManagedUpdates)
	info.OptionalInstalls = withInstallerItem(info.OptionalInstalls)

	var removals []ledger.Item
	for _, it := range info.Removals {
		if it.Installed {
			removals = append(removals, it)
		}
	}
	info.Removals = removals
	return info
}

// ResultFor reports whether a finalized InstallInfo leaves work to do.
func ResultFor(info ledger.Info) Result {
	if len(info.ManagedInstalls)+len(info.ManagedUpdates)+len(info.OptionalInstalls)+len(info.Removals) > 0 {
		return ResultUpdatesAvailable
	}
	return ResultNoUpdatesAvailable
}

func withInstallerItem(items []ledger.Item) []ledger.Item {
	var out []ledger.Item
	for _, it := range items {
		if it.InstallerItem != "" {
			out = append(out, it)
		}
	}
	return out
}
