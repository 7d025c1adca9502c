// Package catalog models the descriptors published in software catalogs and
// the read-only index used to resolve an item name against an ordered list of
// visible catalogs.
package catalog

// Probe types understood by installed-state queries.
const (
	ProbeApplication = "application"
	ProbeBundle      = "bundle"
	ProbeFile        = "file"
)

// Probe is a receipt check used to decide whether an item is already present
// on the machine. BundleID or Path identifies the installed thing; Version is
// the minimum version that satisfies the probe.
type Probe struct {
	Type       string `toml:"type"`
	BundleID   string `toml:"bundle_id"`
	Path       string `toml:"path"`
	VersionKey string `toml:"version_key"`
	Version    string `toml:"version"`
}

// Key returns the identifier the probe is looked up by: the bundle ID when
// set, otherwise the path.
func (p Probe) Key() string {
	if p.BundleID != "" {
		return p.BundleID
	}
	return p.Path
}

// Descriptor is one versioned, catalog-listed definition of an installable
// item. Several descriptors may share a Name.
type Descriptor struct {
	Name        string   `toml:"name"`
	Version     string   `toml:"version"`
	DisplayName string   `toml:"display_name"`
	Description string   `toml:"description"`
	Catalogs    []string `toml:"catalogs"`
	Requires    []string `toml:"requires"`
	UpdateFor   []string `toml:"update_for"`

	InstallerItemLocation string `toml:"installer_item_location"`
	InstallerItemHash     string `toml:"installer_item_hash"`
	InstallerItemSize     int64  `toml:"installer_item_size"` // kilobytes
	InstallerType         string `toml:"installer_type"`
	MinimumOSVersion      string `toml:"minimum_os_version"`

	Installs          []Probe `toml:"installs"`
	Uninstallable     bool    `toml:"uninstallable"`
	Autoremove        bool    `toml:"autoremove"` // remove when no manifest keeps it
	UnattendedInstall bool    `toml:"unattended_install"`

	SourceFile string `toml:"-"` // catalog file the descriptor was read from
}

// InCatalog reports whether the descriptor is visible in the named catalog.
func (d *Descriptor) InCatalog(name string) bool {
	for _, c := range d.Catalogs {
		if c == name {
			return true
		}
	}
	return false
}

// Label returns "name-version" for messages.
func (d *Descriptor) Label() string {
	if d.Version == "" {
		return d.Name
	}
	return d.Name + "-" + d.Version
}

// IsUpdateFor reports whether name appears in the descriptor's update_for list.
func (d *Descriptor) IsUpdateFor(name string) bool {
	for _, u := range d.UpdateFor {
		if base, _ := SplitNameAndVersion(u); base == name {
			return true
		}
	}
	return false
}

// File is the on-disk shape of a catalog: a flat list of descriptors.
type File struct {
	Items []Descriptor `toml:"items"`
}
