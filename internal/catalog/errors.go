package catalog

import "errors"

// Sentinel errors for catalog lookup and validation.
var (
	// ErrNotFound indicates no visible catalog carries a descriptor for the name.
	ErrNotFound = errors.New("no descriptor found in catalogs")
	// ErrMissingField indicates a required descriptor field is empty.
	ErrMissingField = errors.New("required field missing")
	// ErrSelfRequirement indicates a descriptor lists itself in requires.
	ErrSelfRequirement = errors.New("descriptor requires itself")
	// ErrDuplicateVersion indicates two descriptors in one catalog share name and version.
	ErrDuplicateVersion = errors.New("duplicate descriptor version")
	// ErrUnknownRequirement indicates requires names an item no catalog carries.
	ErrUnknownRequirement = errors.New("requires unknown item")
	// ErrRequiresCycle indicates a circular requires chain.
	ErrRequiresCycle = errors.New("requires cycle detected")
	// ErrNoCatalogs indicates a catalog directory held no catalog files.
	ErrNoCatalogs = errors.New("no catalogs found")
)

// ValidationCategory classifies a validation error for programmatic handling.
type ValidationCategory string

const (
	// ValCatMissingField indicates a required field is empty.
	ValCatMissingField ValidationCategory = "missing_field"
	// ValCatSelfRequirement indicates a descriptor requires itself.
	ValCatSelfRequirement ValidationCategory = "self_requirement"
	// ValCatDuplicateVersion indicates a repeated name/version pair within a catalog.
	ValCatDuplicateVersion ValidationCategory = "duplicate_version"
	// ValCatUnknownRequirement indicates a dangling requires entry.
	ValCatUnknownRequirement ValidationCategory = "unknown_requirement"
	// ValCatCycle indicates a circular requires chain.
	ValCatCycle ValidationCategory = "cycle"
)

// Rejects reports whether descriptors in this category are dropped from the
// index. Graph-level problems are reported but left for resolution to handle.
func (c ValidationCategory) Rejects() bool {
	switch c {
	case ValCatMissingField, ValCatSelfRequirement, ValCatDuplicateVersion:
		return true
	}
	return false
}

// ValidationError records a malformed descriptor with source context.
type ValidationError struct {
	Category   ValidationCategory
	Name       string
	Version    string
	SourceFile string
	Field      string
	Err        error
}

// Error returns a human-readable string including source file and item context.
func (e *ValidationError) Error() string {
	prefix := e.SourceFile
	if prefix == "" {
		prefix = "catalog"
	}
	if e.Name != "" {
		label := e.Name
		if e.Version != "" {
			label += "-" + e.Version
		}
		return prefix + ": item " + label + ": " + e.Err.Error()
	}
	return prefix + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
