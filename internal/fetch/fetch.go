// Package fetch acquires and verifies installer payloads for catalog
// descriptors. The install processor calls a Coordinator at most once per
// descriptor per run and treats any error as terminal for that item.
package fetch

import (
	"errors"
	"fmt"

	"github.com/papapumpkin/manifold/internal/catalog"
)

// Kind classifies a fetch failure.
type Kind string

const (
	// KindVerification means the payload was unusable: missing location,
	// hash mismatch, or otherwise failed integrity checks.
	KindVerification Kind = "verification"
	// KindTransport means the payload could not be retrieved.
	KindTransport Kind = "transport"
)

// Sentinels matched by *Error through errors.Is.
var (
	ErrVerification = errors.New("payload verification failed")
	ErrTransport    = errors.New("payload transport failed")
	// ErrNoLocation indicates the descriptor has no installer_item_location.
	ErrNoLocation = errors.New("no installer_item_location")
	// ErrHashMismatch indicates the payload digest differs from installer_item_hash.
	ErrHashMismatch = errors.New("installer_item_hash mismatch")
)

// Error is a typed fetch failure for one item.
type Error struct {
	Kind Kind
	Item string
	Err  error
}

// Error returns "<kind> error for <item>: <cause>".
func (e *Error) Error() string {
	return fmt.Sprintf("%s error for %s: %v", e.Kind, e.Item, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches ErrVerification and ErrTransport by kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrVerification:
		return e.Kind == KindVerification
	case ErrTransport:
		return e.Kind == KindTransport
	}
	return false
}

// Verification wraps err as a verification failure for item.
func Verification(item string, err error) *Error {
	return &Error{Kind: KindVerification, Item: item, Err: err}
}

// Transport wraps err as a transport failure for item.
func Transport(item string, err error) *Error {
	return &Error{Kind: KindTransport, Item: item, Err: err}
}

// Payload locates an acquired, verified installer item.
type Payload struct {
	Path   string // local path of the cached payload
	Size   int64  // bytes
	SHA256 string // hex digest of the payload
}

// Coordinator acquires the payload for a descriptor. Implementations own any
// timeout; callers block until it returns.
type Coordinator interface {
	Acquire(d *catalog.Descriptor) (Payload, error)
}

// CoordinatorFunc adapts a function to the Coordinator interface.
type CoordinatorFunc func(d *catalog.Descriptor) (Payload, error)

// Acquire calls f(d).
func (f CoordinatorFunc) Acquire(d *catalog.Descriptor) (Payload, error) {
	return f(d)
}
