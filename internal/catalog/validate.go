package catalog

import (
	"errors"
	"fmt"

	"github.com/papapumpkin/manifold/internal/dag"
)

// Validate checks the requires graph of an index: every requires entry must
// name an item some catalog carries, and requires chains must not loop.
// Problems found here are reported only; resolution fails the affected items
// at run time instead of dropping them.
func Validate(ix *Index) []ValidationError {
	var errs []ValidationError

	names := ix.Names(ix.Catalogs())
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}

	for _, d := range ix.all {
		for _, req := range d.Requires {
			base, _ := SplitNameAndVersion(req)
			if !known[base] {
				errs = append(errs, ValidationError{
					Category:   ValCatUnknownRequirement,
					Name:       d.Name,
					Version:    d.Version,
					SourceFile: d.SourceFile,
					Field:      "requires",
					Err:        fmt.Errorf("%w: %q", ErrUnknownRequirement, req),
				})
			}
		}
	}

	_, cycles := RequiresGraph(ix)
	errs = append(errs, cycles...)
	return errs
}

// RequiresGraph builds the requires DAG over every indexed item name. Edges
// from all versions of a name are merged. Edges that would close a cycle are
// left out of the graph and reported as ValCatCycle errors.
func RequiresGraph(ix *Index) (*dag.DAG, []ValidationError) {
	g := dag.New()
	for i, d := range ix.all {
		if !g.Has(d.Name) {
			_ = g.AddNode(d.Name, i)
		}
	}

	var errs []ValidationError
	for _, d := range ix.all {
		for _, req := range d.Requires {
			base, _ := SplitNameAndVersion(req)
			if !g.Has(base) {
				continue
			}
			err := g.AddEdge(d.Name, base)
			if err == nil {
				continue
			}
			if errors.Is(err, dag.ErrCycle) {
				errs = append(errs, ValidationError{
					Category:   ValCatCycle,
					Name:       d.Name,
					Version:    d.Version,
					SourceFile: d.SourceFile,
					Field:      "requires",
					Err:        fmt.Errorf("%w: %w", ErrRequiresCycle, err),
				})
			}
		}
	}
	return g, errs
}
