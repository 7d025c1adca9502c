package updatecheck

import (
	"errors"
	"fmt"

	"github.com/papapumpkin/manifold/internal/catalog"
	"github.com/papapumpkin/manifold/internal/ledger"
)

// ProcessUninstall decides whether name should be removed. An item decided
// for install this run is never also removed, and an item that something
// decided for install still requires is skipped with the dependent named in
// the reason.
func (e *Engine) ProcessUninstall(entry string, catalogs []string, l *ledger.Ledger) ledger.Outcome {
	out, _ := e.uninstall(entry, catalogs, l)
	return out
}

func (e *Engine) uninstall(entry string, catalogs []string, l *ledger.Ledger) (ledger.Outcome, error) {
	name, _ := catalog.SplitNameAndVersion(entry)

	if rec, ok := l.UninstallRecord(name); ok {
		return rec.Outcome, rec.Reason
	}
	if l.IsProcessedInstall(name) {
		err := fmt.Errorf("%w: %s", ErrProcessedForInstall, name)
		e.reporter.Report(Event{
			Level:   LevelWarning,
			Name:    name,
			Side:    ledger.SideUninstall,
			Outcome: ledger.OutcomeSkipped,
			Reason:  err,
		})
		return ledger.OutcomeSkipped, err
	}

	l.ClaimUninstall(name)

	d, err := e.index.Resolve(entry, catalogs)
	if err != nil {
		return e.finishUninstall(l, name, ledger.OutcomeFailed, fmt.Errorf("%w: %s", ErrNotFoundInCatalogs, entry))
	}
	if !d.Uninstallable {
		return e.finishUninstall(l, name, ledger.OutcomeFailed, fmt.Errorf("%w: %s", ErrNotUninstallable, d.Label()))
	}
	if dependent := requiredBy(name, l); dependent != "" {
		return e.finishUninstall(l, name, ledger.OutcomeSkipped, fmt.Errorf("%w by %s", ErrStillRequired, dependent))
	}

	item := newItem(d)
	item.Installed = e.querier.Query(d.Installs).Present()
	l.RecordRemoval(item)
	if !item.Installed {
		return e.finishUninstall(l, name, ledger.OutcomeAlreadyRemoved, nil)
	}
	return e.finishUninstall(l, name, ledger.OutcomeRemoved, nil)
}

// autoremove removes installed items marked autoremove that m does not keep.
// An item is kept when it is offered in optional_installs or
// default_installs, or already processed on either side this run.
func (e *Engine) autoremove(m *Manifest, l *ledger.Ledger) error {
	offered, errOpt := e.collect(m, KeyOptionalInstalls)
	defaults, errDef := e.collect(m, KeyDefaultInstalls)
	keep := make(map[string]bool, len(offered)+len(defaults))
	for _, entry := range append(offered, defaults...) {
		name, _ := catalog.SplitNameAndVersion(entry)
		keep[name] = true
	}

	for _, name := range e.index.Autoremovals(m.Catalogs) {
		if keep[name] || l.IsProcessedInstall(name) || l.IsProcessedUninstall(name) {
			continue
		}
		d, err := e.index.Resolve(name, m.Catalogs)
		if err != nil || !e.querier.Query(d.Installs).Present() {
			continue
		}
		e.reporter.Report(Event{
			Level:   LevelDetail,
			Name:    name,
			Message: fmt.Sprintf("%s is marked autoremove and no manifest keeps it", d.Label()),
		})
		e.ProcessUninstall(name, m.Catalogs, l)
	}
	return errors.Join(errOpt, errDef)
}

// requiredBy returns the first item decided for install that requires name.
// Items that failed to schedule do not hold their requirements in place.
func requiredBy(name string, l *ledger.Ledger) string {
	for _, it := range l.Decided() {
		if !it.Installed && it.InstallerItem == "" {
			continue
		}
		for _, req := range it.Requires {
			if base, _ := catalog.SplitNameAndVersion(req); base == name {
				return it.Name
			}
		}
	}
	return ""
}

func (e *Engine) finishUninstall(l *ledger.Ledger, name string, outcome ledger.Outcome, reason error) (ledger.Outcome, error) {
	l.FinishUninstall(name, outcome, reason)
	e.reporter.Report(Event{
		Level:   levelFor(outcome),
		Name:    name,
		Side:    ledger.SideUninstall,
		Outcome: outcome,
		Reason:  reason,
	})
	return outcome, reason
}
