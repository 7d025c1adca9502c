package ledger

import "errors"

// Ledger is the mutable per-run decision record. All mutators are additive:
// nothing recorded is ever removed, and a name's terminal outcome never
// changes once set.
type Ledger struct {
	installs   claims
	uninstalls claims

	managedInstalls  []Item
	managedUpdates   []Item
	optionalInstalls []Item
	removals         []Item
	available        []Item
	featured         []string
}

// claims tracks the records of one side in first-claim order.
type claims struct {
	records map[string]*Record
	order   []string
}

func (c *claims) get(name string) *Record {
	if c.records == nil {
		return nil
	}
	return c.records[name]
}

// claim creates an InProgress record. Returns false if name already has one.
func (c *claims) claim(name string) bool {
	if c.get(name) != nil {
		return false
	}
	if c.records == nil {
		c.records = make(map[string]*Record)
	}
	c.records[name] = &Record{Name: name, State: InProgress}
	c.order = append(c.order, name)
	return true
}

// finish sets the terminal outcome, claiming name first if needed. A record
// already Done is left untouched.
func (c *claims) finish(name string, outcome Outcome, reason error) {
	c.claim(name)
	r := c.records[name]
	if r.State == Done {
		return
	}
	r.State = Done
	r.Outcome = outcome
	r.Reason = reason
}

// New returns an empty ledger for a fresh run.
func New() *Ledger {
	return &Ledger{}
}

// FromInfo seeds a ledger from a previously captured Info. Failures keep
// their outcome and reason; other processed names become Done records whose
// outcome is derived from the lists they appear in.
func FromInfo(info Info) *Ledger {
	l := &Ledger{
		managedInstalls:  cloneItems(info.ManagedInstalls),
		managedUpdates:   cloneItems(info.ManagedUpdates),
		optionalInstalls: cloneItems(info.OptionalInstalls),
		removals:         cloneItems(info.Removals),
		available:        cloneItems(info.AvailableOptional),
		featured:         append([]string(nil), info.FeaturedItems...),
	}
	failed := make(map[Side]map[string]Failure)
	for _, f := range info.Failures {
		if failed[f.Side] == nil {
			failed[f.Side] = make(map[string]Failure)
		}
		failed[f.Side][f.Name] = f
	}
	seed := func(c *claims, side Side, names []string) {
		for _, name := range names {
			if f, ok := failed[side][name]; ok {
				c.finish(name, f.Outcome, errors.New(f.Reason))
				continue
			}
			c.finish(name, "", nil)
		}
	}
	seed(&l.installs, SideInstall, info.ProcessedInstalls)
	seed(&l.uninstalls, SideUninstall, info.ProcessedUninstalls)
	return l
}

// ClaimInstall marks name InProgress on the install side and adds it to the
// processed list. Returns false if name was already claimed or processed.
func (l *Ledger) ClaimInstall(name string) bool {
	return l.installs.claim(name)
}

// FinishInstall records the terminal install outcome for name.
func (l *Ledger) FinishInstall(name string, outcome Outcome, reason error) {
	l.installs.finish(name, outcome, reason)
}

// MarkProcessedInstall records name as processed without an explicit outcome.
// It is a no-op for names already claimed.
func (l *Ledger) MarkProcessedInstall(name string) {
	l.installs.finish(name, "", nil)
}

// IsProcessedInstall reports whether name has been claimed on the install side.
func (l *Ledger) IsProcessedInstall(name string) bool {
	return l.installs.get(name) != nil
}

// InstallRecord returns the install-side record for name.
func (l *Ledger) InstallRecord(name string) (Record, bool) {
	r := l.installs.get(name)
	if r == nil {
		return Record{Name: name}, false
	}
	out := *r
	if out.State == Done && out.Outcome == "" {
		out.Outcome = l.derivedInstallOutcome(name)
	}
	return out, true
}

// ClaimUninstall marks name InProgress on the removal side.
func (l *Ledger) ClaimUninstall(name string) bool {
	return l.uninstalls.claim(name)
}

// FinishUninstall records the terminal removal outcome for name.
func (l *Ledger) FinishUninstall(name string, outcome Outcome, reason error) {
	l.uninstalls.finish(name, outcome, reason)
}

// MarkProcessedUninstall records name as processed for removal.
func (l *Ledger) MarkProcessedUninstall(name string) {
	l.uninstalls.finish(name, "", nil)
}

// IsProcessedUninstall reports whether name has been claimed on the removal side.
func (l *Ledger) IsProcessedUninstall(name string) bool {
	return l.uninstalls.get(name) != nil
}

// UninstallRecord returns the removal-side record for name.
func (l *Ledger) UninstallRecord(name string) (Record, bool) {
	r := l.uninstalls.get(name)
	if r == nil {
		return Record{Name: name}, false
	}
	out := *r
	if out.State == Done && out.Outcome == "" {
		out.Outcome = OutcomeSkipped
		if it, ok := findItem(l.removals, name); ok {
			out.Outcome = OutcomeAlreadyRemoved
			if it.Installed {
				out.Outcome = OutcomeRemoved
			}
		}
	}
	return out, true
}

// RecordManagedInstall appends item to managed_installs unless an entry with
// the same name is already there. Reports whether it was added.
func (l *Ledger) RecordManagedInstall(item Item) bool {
	return appendUnique(&l.managedInstalls, item)
}

// RecordManagedUpdate appends item to managed_updates.
func (l *Ledger) RecordManagedUpdate(item Item) bool {
	return appendUnique(&l.managedUpdates, item)
}

// RecordOptionalInstall appends a selected self-serve item to optional_installs.
func (l *Ledger) RecordOptionalInstall(item Item) bool {
	return appendUnique(&l.optionalInstalls, item)
}

// RecordRemoval appends item to removals.
func (l *Ledger) RecordRemoval(item Item) bool {
	return appendUnique(&l.removals, item)
}

// RecordAvailableOptional lists item as offered for self-serve install.
func (l *Ledger) RecordAvailableOptional(item Item) bool {
	return appendUnique(&l.available, item)
}

// RecordFeatured adds name to featured_items.
func (l *Ledger) RecordFeatured(name string) bool {
	for _, f := range l.featured {
		if f == name {
			return false
		}
	}
	l.featured = append(l.featured, name)
	return true
}

// Decided returns every item scheduled or confirmed present this run:
// managed installs, managed updates, and selected optional installs.
func (l *Ledger) Decided() []Item {
	out := cloneItems(l.managedInstalls)
	out = append(out, cloneItems(l.managedUpdates)...)
	return append(out, cloneItems(l.optionalInstalls)...)
}

// AvailableOptional returns the items offered for self-serve install.
func (l *Ledger) AvailableOptional() []Item {
	return cloneItems(l.available)
}

// Info returns a snapshot of the ledger's lists and processed names.
func (l *Ledger) Info() Info {
	info := Info{
		ManagedInstalls:     cloneItems(l.managedInstalls),
		ManagedUpdates:      cloneItems(l.managedUpdates),
		OptionalInstalls:    cloneItems(l.optionalInstalls),
		Removals:            cloneItems(l.removals),
		AvailableOptional:   cloneItems(l.available),
		FeaturedItems:       append([]string(nil), l.featured...),
		ProcessedInstalls:   append([]string(nil), l.installs.order...),
		ProcessedUninstalls: append([]string(nil), l.uninstalls.order...),
	}
	info.Failures = append(failures(&l.installs, SideInstall), failures(&l.uninstalls, SideUninstall)...)
	return info
}

func (l *Ledger) derivedInstallOutcome(name string) Outcome {
	for _, list := range [][]Item{l.managedInstalls, l.managedUpdates, l.optionalInstalls} {
		it, ok := findItem(list, name)
		if !ok {
			continue
		}
		switch {
		case it.Installed:
			return OutcomeAlreadyInstalled
		case it.InstallerItem != "":
			return OutcomeInstalled
		default:
			return OutcomeFailed
		}
	}
	return OutcomeSkipped
}

func failures(c *claims, side Side) []Failure {
	var out []Failure
	for _, name := range c.order {
		r := c.records[name]
		if r.Reason == nil {
			continue
		}
		out = append(out, Failure{
			Name:    name,
			Side:    side,
			Outcome: r.Outcome,
			Reason:  r.Reason.Error(),
		})
	}
	return out
}

func appendUnique(list *[]Item, item Item) bool {
	if _, ok := findItem(*list, item.Name); ok {
		return false
	}
	*list = append(*list, cloneItem(item))
	return true
}

func findItem(list []Item, name string) (Item, bool) {
	for _, it := range list {
		if it.Name == name {
			return it, true
		}
	}
	return Item{}, false
}

func cloneItem(it Item) Item {
	it.Requires = append([]string(nil), it.Requires...)
	it.UpdateFor = append([]string(nil), it.UpdateFor...)
	return it
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = cloneItem(it)
	}
	return out
}
