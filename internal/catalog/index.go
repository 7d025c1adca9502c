package catalog

import (
	"fmt"
	"sort"

	"github.com/papapumpkin/manifold/internal/version"
)

// Index is the read-only lookup structure built once per run from loaded
// catalogs. It is safe for concurrent readers.
type Index struct {
	// byCatalog maps catalog name → item name → descriptors, highest version first.
	byCatalog map[string]map[string][]*Descriptor
	all       []*Descriptor
}

// NewIndex validates descs and indexes every well-formed descriptor under each
// catalog it lists. Malformed descriptors are dropped and reported; they
// never reach resolution.
func NewIndex(descs []Descriptor) (*Index, []ValidationError) {
	ix := &Index{byCatalog: make(map[string]map[string][]*Descriptor)}
	var errs []ValidationError

	for i := range descs {
		d := cloneDescriptor(descs[i])
		if verr := checkDescriptor(d); verr != nil {
			errs = append(errs, *verr)
			continue
		}
		if verr := ix.checkDuplicate(d); verr != nil {
			errs = append(errs, *verr)
			continue
		}
		ix.all = append(ix.all, d)
		for _, c := range d.Catalogs {
			items := ix.byCatalog[c]
			if items == nil {
				items = make(map[string][]*Descriptor)
				ix.byCatalog[c] = items
			}
			items[d.Name] = append(items[d.Name], d)
		}
	}

	for _, items := range ix.byCatalog {
		for _, cands := range items {
			sort.SliceStable(cands, func(i, j int) bool {
				return version.Compare(cands[i].Version, cands[j].Version) > 0
			})
		}
	}
	return ix, errs
}

// Resolve finds the descriptor for entry, searching catalogs in order. The
// first catalog carrying the name wins; within it the highest version is
// chosen unless entry pins one ("name==version"). Returns ErrNotFound when no
// listed catalog has a match.
func (ix *Index) Resolve(entry string, catalogs []string) (*Descriptor, error) {
	name, pin := SplitNameAndVersion(entry)
	for _, c := range catalogs {
		cands := ix.byCatalog[c][name]
		if len(cands) == 0 {
			continue
		}
		if pin == "" {
			return cands[0], nil
		}
		for _, d := range cands {
			if version.Equal(d.Version, pin) {
				return d, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, entry)
}

// UpdatesFor returns descriptors visible in catalogs that declare themselves
// an update for name. Each item name appears once, taken from the first
// catalog that carries an update for it, at its highest version.
func (ix *Index) UpdatesFor(name string, catalogs []string) []*Descriptor {
	seen := make(map[string]bool)
	var out []*Descriptor
	for _, c := range catalogs {
		items := ix.byCatalog[c]
		for _, itemName := range sortedKeys(items) {
			if itemName == name || seen[itemName] {
				continue
			}
			for _, d := range items[itemName] {
				if d.IsUpdateFor(name) {
					seen[itemName] = true
					out = append(out, d)
					break
				}
			}
		}
	}
	return out
}

// Names returns every item name visible in catalogs, sorted.
func (ix *Index) Names(catalogs []string) []string {
	set := make(map[string]bool)
	for _, c := range catalogs {
		for name := range ix.byCatalog[c] {
			set[name] = true
		}
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Catalogs returns the names of all indexed catalogs, sorted.
func (ix *Index) Catalogs() []string {
	return sortedKeys(ix.byCatalog)
}

// Autoremovals returns the names of items visible in catalogs that have a
// descriptor marked autoremove, sorted.
func (ix *Index) Autoremovals(catalogs []string) []string {
	set := make(map[string]bool)
	for _, d := range ix.all {
		if !d.Autoremove || set[d.Name] {
			continue
		}
		for _, c := range catalogs {
			if d.InCatalog(c) {
				set[d.Name] = true
				break
			}
		}
	}
	return sortedKeys(set)
}

// Len returns the number of indexed descriptors.
func (ix *Index) Len() int {
	return len(ix.all)
}

func (ix *Index) checkDuplicate(d *Descriptor) *ValidationError {
	for _, c := range d.Catalogs {
		for _, existing := range ix.byCatalog[c][d.Name] {
			if version.Equal(existing.Version, d.Version) {
				return &ValidationError{
					Category:   ValCatDuplicateVersion,
					Name:       d.Name,
					Version:    d.Version,
					SourceFile: d.SourceFile,
					Err:        fmt.Errorf("%w: already listed in catalog %q", ErrDuplicateVersion, c),
				}
			}
		}
	}
	return nil
}

// checkDescriptor rejects descriptors missing identity fields or requiring
// themselves.
func checkDescriptor(d *Descriptor) *ValidationError {
	missing := func(field string) *ValidationError {
		return &ValidationError{
			Category:   ValCatMissingField,
			Name:       d.Name,
			Version:    d.Version,
			SourceFile: d.SourceFile,
			Field:      field,
			Err:        fmt.Errorf("%w: %s", ErrMissingField, field),
		}
	}
	switch {
	case d.Name == "":
		return missing("name")
	case d.Version == "":
		return missing("version")
	case len(d.Catalogs) == 0:
		return missing("catalogs")
	}
	for _, req := range d.Requires {
		if base, _ := SplitNameAndVersion(req); base == d.Name {
			return &ValidationError{
				Category:   ValCatSelfRequirement,
				Name:       d.Name,
				Version:    d.Version,
				SourceFile: d.SourceFile,
				Field:      "requires",
				Err:        ErrSelfRequirement,
			}
		}
	}
	return nil
}

// cloneDescriptor copies d including its slices so the index never aliases
// caller-owned data.
func cloneDescriptor(d Descriptor) *Descriptor {
	out := d
	out.Catalogs = append([]string(nil), d.Catalogs...)
	out.Requires = append([]string(nil), d.Requires...)
	out.UpdateFor = append([]string(nil), d.UpdateFor...)
	out.Installs = append([]Probe(nil), d.Installs...)
	return &out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
