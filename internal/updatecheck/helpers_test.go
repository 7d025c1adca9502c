package updatecheck

import (
	"errors"
	"testing"

	"github.com/papapumpkin/manifold/internal/catalog"
	"github.com/papapumpkin/manifold/internal/fetch"
	"github.com/papapumpkin/manifold/internal/installed"
	"github.com/papapumpkin/manifold/internal/ledger"
)

var prod = []string{"production"}

// item builds a well-formed descriptor in the production catalog with one
// bundle probe at its own version.
func item(name, ver string, requires ...string) catalog.Descriptor {
	return catalog.Descriptor{
		Name:                  name,
		Version:               ver,
		Catalogs:              []string{"production"},
		Requires:              requires,
		InstallerItemLocation: name + "-" + ver + ".pkg",
		InstallerItemSize:     1024,
		Installs:              []catalog.Probe{{Type: catalog.ProbeBundle, BundleID: bundleID(name), Version: ver}},
		Uninstallable:         true,
	}
}

func bundleID(name string) string { return "com.example." + name }

// receipt marks name as installed at ver.
func receipt(name, ver string) installed.Receipt {
	return installed.Receipt{BundleID: bundleID(name), Version: ver}
}

// countingIndex wraps a real index and counts lookups.
type countingIndex struct {
	*catalog.Index
	resolves map[string]int
}

func newIndex(t *testing.T, descs ...catalog.Descriptor) *countingIndex {
	t.Helper()
	ix, errs := catalog.NewIndex(descs)
	if len(errs) > 0 {
		t.Fatalf("NewIndex: unexpected validation errors: %v", errs)
	}
	return &countingIndex{Index: ix, resolves: make(map[string]int)}
}

func (c *countingIndex) Resolve(entry string, catalogs []string) (*catalog.Descriptor, error) {
	c.resolves[entry]++
	return c.Index.Resolve(entry, catalogs)
}

func (c *countingIndex) total() int {
	n := 0
	for _, v := range c.resolves {
		n += v
	}
	return n
}

// fakeFetcher succeeds unless the item is listed in fail, recording the
// order of acquisitions.
type fakeFetcher struct {
	fail  map[string]error
	order []string
}

func (f *fakeFetcher) Acquire(d *catalog.Descriptor) (fetch.Payload, error) {
	f.order = append(f.order, d.Name)
	if err, ok := f.fail[d.Name]; ok {
		return fetch.Payload{}, err
	}
	return fetch.Payload{Path: "/cache/" + d.InstallerItemLocation, Size: d.InstallerItemSize * 1024}, nil
}

func (f *fakeFetcher) count(name string) int {
	n := 0
	for _, o := range f.order {
		if o == name {
			n++
		}
	}
	return n
}

// eventLog collects reported events.
type eventLog struct {
	events []Event
}

func (r *eventLog) Report(ev Event) { r.events = append(r.events, ev) }

func (r *eventLog) decisions(name string) []Event {
	var out []Event
	for _, ev := range r.events {
		if ev.Name == name && ev.IsDecision() {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	index   *countingIndex
	fetcher *fakeFetcher
	events  *eventLog
	engine  *Engine
	ledger  *ledger.Ledger
}

func newFixture(t *testing.T, descs []catalog.Descriptor, receipts []installed.Receipt, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		index:   newIndex(t, descs...),
		fetcher: &fakeFetcher{fail: make(map[string]error)},
		events:  &eventLog{},
		ledger:  ledger.New(),
	}
	opts = append([]Option{
		WithQuerier(installed.NewDB(receipts...)),
		WithReporter(f.events),
	}, opts...)
	f.engine = NewEngine(f.index, f.fetcher, opts...)
	return f
}

func (f *fixture) record(t *testing.T, name string) ledger.Record {
	t.Helper()
	r, ok := f.ledger.InstallRecord(name)
	if !ok {
		t.Fatalf("no install record for %s", name)
	}
	return r
}

func names(items []ledger.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}

func count(list []string, name string) int {
	n := 0
	for _, s := range list {
		if s == name {
			n++
		}
	}
	return n
}

var errBadHash = errors.New("bad hash")
