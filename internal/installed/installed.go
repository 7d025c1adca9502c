// Package installed answers whether an item's receipt probes are satisfied
// on this machine.
package installed

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/papapumpkin/manifold/internal/catalog"
	"github.com/papapumpkin/manifold/internal/version"
)

// Status is the comparison of what is installed against what a probe wants.
// Values are ordered so that the weakest probe decides an item's status.
type Status int

// Installed states, weakest first.
const (
	NotPresent Status = iota
	Older
	Current
	Newer
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case NotPresent:
		return "not_present"
	case Older:
		return "older"
	case Current:
		return "current"
	case Newer:
		return "newer"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Satisfied reports whether no install is needed: the probed version or a
// newer one is present.
func (s Status) Satisfied() bool { return s >= Current }

// Present reports whether some version is installed.
func (s Status) Present() bool { return s >= Older }

// Querier evaluates receipt probes. It is synchronous and side-effect free.
type Querier interface {
	Query(probes []catalog.Probe) Status
}

// Receipt records one installed thing and its version.
type Receipt struct {
	BundleID string `toml:"bundle_id,omitempty"`
	Path     string `toml:"path,omitempty"`
	Version  string `toml:"version"`
}

func (r Receipt) key() string {
	if r.BundleID != "" {
		return r.BundleID
	}
	return r.Path
}

type receiptsFile struct {
	Receipts []Receipt `toml:"receipt"`
}

// DB is an in-memory receipts database keyed by bundle ID or path.
type DB struct {
	byKey map[string]Receipt
}

// NewDB builds a DB. A later receipt for the same key replaces an earlier one.
func NewDB(receipts ...Receipt) *DB {
	db := &DB{byKey: make(map[string]Receipt, len(receipts))}
	for _, r := range receipts {
		if k := r.key(); k != "" {
			db.byKey[k] = r
		}
	}
	return db
}

// LoadDB reads a TOML receipts file. A missing file yields an empty DB.
func LoadDB(path string) (*DB, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewDB(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading receipts: %w", err)
	}
	var f receiptsFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing receipts %s: %w", path, err)
	}
	return NewDB(f.Receipts...), nil
}

// Receipts returns all receipts sorted by key.
func (db *DB) Receipts() []Receipt {
	out := make([]Receipt, 0, len(db.byKey))
	for _, r := range db.byKey {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key() < out[j].key() })
	return out
}

// Query returns the weakest status across probes. No probes means nothing
// can prove the item is present.
func (db *DB) Query(probes []catalog.Probe) Status {
	if len(probes) == 0 {
		return NotPresent
	}
	status := Newer
	for _, p := range probes {
		if s := db.probe(p); s < status {
			status = s
		}
	}
	return status
}

func (db *DB) probe(p catalog.Probe) Status {
	r, ok := db.byKey[p.Key()]
	if !ok {
		return NotPresent
	}
	if p.Version == "" {
		return Current
	}
	switch c := version.Compare(r.Version, p.Version); {
	case c < 0:
		return Older
	case c > 0:
		return Newer
	}
	return Current
}
