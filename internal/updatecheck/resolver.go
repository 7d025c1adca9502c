package updatecheck

import (
	"fmt"

	"github.com/papapumpkin/manifold/internal/catalog"
	"github.com/papapumpkin/manifold/internal/ledger"
)

// Expand returns the entries of d.Requires that must be resolved before d,
// in declaration order. Entries naming the same item are collapsed to the
// first, so a pinned and an unpinned mention of one item yield one walk.
func Expand(d *catalog.Descriptor) []string {
	seen := make(map[string]bool, len(d.Requires))
	out := make([]string, 0, len(d.Requires))
	for _, req := range d.Requires {
		name, _ := catalog.SplitNameAndVersion(req)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, req)
	}
	return out
}

// UpdateTarget returns the first update_for name of d that is already
// decided in l: scheduled for install or confirmed installed. An empty
// string means d updates nothing decided this run.
func UpdateTarget(d *catalog.Descriptor, l *ledger.Ledger) string {
	if len(d.UpdateFor) == 0 {
		return ""
	}
	decided := make(map[string]bool)
	for _, it := range l.Decided() {
		if it.Installed || it.InstallerItem != "" {
			decided[it.Name] = true
		}
	}
	for _, u := range d.UpdateFor {
		if name, _ := catalog.SplitNameAndVersion(u); decided[name] {
			return name
		}
	}
	return ""
}

// Plan returns name and everything it transitively requires, in an order
// where each item comes after all of its requirements. The graph spans every
// indexed catalog. A requires cycle touching the closure is an error.
func Plan(ix *catalog.Index, entry string) ([]string, error) {
	name, _ := catalog.SplitNameAndVersion(entry)
	g, cycles := catalog.RequiresGraph(ix)
	if !g.Has(name) {
		return nil, fmt.Errorf("%w: %s", ErrNotFoundInCatalogs, name)
	}

	closure := map[string]bool{name: true}
	for _, a := range g.Ancestors(name) {
		closure[a] = true
	}
	for _, c := range cycles {
		if closure[c.Name] {
			return nil, fmt.Errorf("%w: %w", ErrCircularDependency, c.Err)
		}
	}

	order, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(closure))
	for _, n := range order {
		if closure[n] {
			out = append(out, n)
		}
	}
	return out, nil
}

// Dependents returns every indexed item that requires name directly or
// transitively, sorted by name.
func Dependents(ix *catalog.Index, entry string) ([]string, error) {
	name, _ := catalog.SplitNameAndVersion(entry)
	g, _ := catalog.RequiresGraph(ix)
	if !g.Has(name) {
		return nil, fmt.Errorf("%w: %s", ErrNotFoundInCatalogs, name)
	}
	return g.Descendants(name), nil
}
