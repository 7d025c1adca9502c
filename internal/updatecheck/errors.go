package updatecheck

import "errors"

// Failure reasons attached to ledger records. Every per-item problem is
// captured as one of these (or a *fetch.Error) rather than aborting the run.
var (
	// ErrNotFoundInCatalogs indicates no visible catalog carries the item.
	ErrNotFoundInCatalogs = errors.New("not found in any visible catalog")
	// ErrDependencyUnresolved indicates a required item ended Failed.
	ErrDependencyUnresolved = errors.New("dependency unresolved")
	// ErrCircularDependency indicates the requires walk returned to an item
	// whose own requirements were still being resolved.
	ErrCircularDependency = errors.New("circular dependency")
	// ErrNotUninstallable indicates removal was requested for an item whose
	// descriptor does not allow it.
	ErrNotUninstallable = errors.New("item is not uninstallable")
	// ErrStillRequired indicates removal was refused because an item decided
	// for install this run requires it.
	ErrStillRequired = errors.New("still required")
	// ErrProcessedForRemoval indicates install was refused because the item
	// was already decided for removal this run.
	ErrProcessedForRemoval = errors.New("already processed for removal")
	// ErrProcessedForInstall indicates removal was refused because the item
	// was already decided for install this run.
	ErrProcessedForInstall = errors.New("already processed for install")
)

// Run-level errors.
var (
	// ErrNoCatalogs indicates a manifest lists no catalogs to search.
	ErrNoCatalogs = errors.New("manifest has no catalogs")
	// ErrUnknownManifestKey indicates ProcessManifest was asked for a list it
	// does not know how to process.
	ErrUnknownManifestKey = errors.New("unknown manifest key")
	// ErrManifestNotFound indicates a manifest source has no manifest by that name.
	ErrManifestNotFound = errors.New("manifest not found")
	// ErrIncludeCycle indicates included_manifests loops back on itself.
	ErrIncludeCycle = errors.New("included manifest cycle")
)
