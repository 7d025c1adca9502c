package updatecheck

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/papapumpkin/manifold/internal/catalog"
	"github.com/papapumpkin/manifold/internal/ledger"
)

// Manifest list keys understood by ProcessManifest.
const (
	KeyManagedInstalls   = "managed_installs"
	KeyManagedUninstalls = "managed_uninstalls"
	KeyManagedUpdates    = "managed_updates"
	KeyOptionalInstalls  = "optional_installs"
	KeyFeaturedItems     = "featured_items"
	KeyDefaultInstalls   = "default_installs"
)

// manifestExt is appended to manifest names that have no extension.
const manifestExt = ".toml"

// Manifest is the policy document for a client: which catalogs it sees and
// which items it must install, remove, update, or may offer.
type Manifest struct {
	Name              string   `toml:"name"`
	Catalogs          []string `toml:"catalogs"`
	IncludedManifests []string `toml:"included_manifests"`
	ManagedInstalls   []string `toml:"managed_installs"`
	ManagedUninstalls []string `toml:"managed_uninstalls"`
	ManagedUpdates    []string `toml:"managed_updates"`
	OptionalInstalls  []string `toml:"optional_installs"`
	FeaturedItems     []string `toml:"featured_items"`
	DefaultInstalls   []string `toml:"default_installs"`
}

// List returns the entries stored under key.
func (m *Manifest) List(key string) ([]string, error) {
	switch key {
	case KeyManagedInstalls:
		return m.ManagedInstalls, nil
	case KeyManagedUninstalls:
		return m.ManagedUninstalls, nil
	case KeyManagedUpdates:
		return m.ManagedUpdates, nil
	case KeyOptionalInstalls:
		return m.OptionalInstalls, nil
	case KeyFeaturedItems:
		return m.FeaturedItems, nil
	case KeyDefaultInstalls:
		return m.DefaultInstalls, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownManifestKey, key)
}

// LoadManifest reads a TOML manifest. An empty name field defaults to the
// file's base name without extension.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if m.Name == "" {
		base := filepath.Base(path)
		m.Name = base[:len(base)-len(filepath.Ext(base))]
	}
	return &m, nil
}

// ManifestSource supplies manifests named in included_manifests.
type ManifestSource interface {
	Manifest(name string) (*Manifest, error)
}

// DirSource reads manifests from a directory. Names may contain slashes to
// reach subdirectories; names without an extension get ".toml".
type DirSource string

// Manifest implements ManifestSource.
func (s DirSource) Manifest(name string) (*Manifest, error) {
	p := filepath.Join(string(s), filepath.FromSlash(name))
	if filepath.Ext(p) == "" {
		p += manifestExt
	}
	m, err := LoadManifest(p)
	if err != nil {
		return nil, err
	}
	m.Name = name
	return m, nil
}

// WithManifestSource sets where included manifests are read from.
func WithManifestSource(src ManifestSource) Option {
	return func(e *Engine) { e.manifests = src }
}

// ProcessManifest processes every entry of m's list for key, included
// manifests first. Included manifests without catalogs inherit the
// including manifest's. Per-item problems are recorded in l; the returned
// error covers only manifest-level problems such as an unreadable include.
func (e *Engine) ProcessManifest(m *Manifest, key string, l *ledger.Ledger) error {
	if _, err := m.List(key); err != nil {
		return err
	}
	return e.walkManifest(m, key, nil, map[string]bool{}, func(entries, catalogs []string) {
		for _, entry := range entries {
			e.processEntry(key, entry, catalogs, l)
		}
	})
}

func (e *Engine) processEntry(key, entry string, catalogs []string, l *ledger.Ledger) {
	switch key {
	case KeyManagedInstalls:
		e.ProcessInstall(entry, catalogs, l)
	case KeyManagedUninstalls:
		e.ProcessUninstall(entry, catalogs, l)
	case KeyManagedUpdates:
		e.ProcessManagedUpdate(entry, catalogs, l)
	case KeyOptionalInstalls:
		e.ProcessOptionalInstall(entry, catalogs, l)
	case KeyFeaturedItems:
		name, _ := catalog.SplitNameAndVersion(entry)
		if !isAvailable(name, l) {
			e.reporter.Report(Event{
				Level:   LevelWarning,
				Name:    name,
				Message: fmt.Sprintf("featured item %s is not in optional_installs", name),
			})
			return
		}
		l.RecordFeatured(name)
	case KeyDefaultInstalls:
		// Default installs are selections, not decisions; Check folds them
		// into the self-serve installs.
	}
}

// collect gathers the entries for key across m and its includes.
func (e *Engine) collect(m *Manifest, key string) ([]string, error) {
	var out []string
	err := e.walkManifest(m, key, nil, map[string]bool{}, func(entries, _ []string) {
		out = append(out, entries...)
	})
	return out, err
}

// walkManifest visits m's includes depth first, then m itself, calling fn
// with each manifest's entries for key and the catalogs in effect.
func (e *Engine) walkManifest(m *Manifest, key string, parent []string, visiting map[string]bool, fn func(entries, catalogs []string)) error {
	catalogs := m.Catalogs
	if len(catalogs) == 0 {
		catalogs = parent
	}
	if len(catalogs) == 0 {
		return fmt.Errorf("%w: %s", ErrNoCatalogs, m.Name)
	}

	visiting[m.Name] = true
	defer delete(visiting, m.Name)

	var errs []error
	for _, inc := range m.IncludedManifests {
		if visiting[inc] {
			errs = append(errs, fmt.Errorf("%w: %s includes %s", ErrIncludeCycle, m.Name, inc))
			continue
		}
		child, err := e.includedManifest(inc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := e.walkManifest(child, key, catalogs, visiting, fn); err != nil {
			errs = append(errs, err)
		}
	}

	entries, err := m.List(key)
	if err != nil {
		return err
	}
	fn(entries, catalogs)
	return errors.Join(errs...)
}

func (e *Engine) includedManifest(name string) (*Manifest, error) {
	if e.manifests == nil {
		return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, name)
	}
	m, err := e.manifests.Manifest(name)
	if err != nil {
		return nil, err
	}
	if m.Name == "" {
		m.Name = name
	}
	return m, nil
}

func isAvailable(name string, l *ledger.Ledger) bool {
	for _, it := range l.AvailableOptional() {
		if it.Name == name {
			return true
		}
	}
	return false
}
