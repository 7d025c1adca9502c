package dag

import (
	"errors"
	"strings"
	"testing"
)

// itemSpec describes a node for buildDAG: name, declaration order, requires.
type itemSpec struct {
	name     string
	order    int
	requires []string
}

func buildDAG(t *testing.T, specs []itemSpec) *DAG {
	t.Helper()
	d := New()
	for _, s := range specs {
		if err := d.AddNode(s.name, s.order); err != nil {
			t.Fatalf("AddNode(%q): %v", s.name, err)
		}
	}
	for _, s := range specs {
		for _, req := range s.requires {
			if err := d.AddEdge(s.name, req); err != nil {
				t.Fatalf("AddEdge(%q, %q): %v", s.name, req, err)
			}
		}
	}
	return d
}

// validInstallOrder checks that every requirement appears before the item
// that requires it.
func validInstallOrder(d *DAG, order []string) bool {
	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	for name, reqs := range d.adjacency {
		for req := range reqs {
			if pos[req] >= pos[name] {
				return false
			}
		}
	}
	return true
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAddNode(t *testing.T) {
	t.Parallel()

	t.Run("basic add", func(t *testing.T) {
		t.Parallel()
		d := New()
		if err := d.AddNode("Firefox", 2); err != nil {
			t.Fatalf("AddNode: %v", err)
		}
		if order, ok := d.nodes["Firefox"]; !ok || order != 2 {
			t.Errorf("nodes[Firefox] = %d, %v; want 2, true", order, ok)
		}
		if !d.Has("Firefox") || d.Has("Chrome") {
			t.Error("Has reports wrong membership")
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		t.Parallel()
		d := New()
		_ = d.AddNode("a", 0)
		if err := d.AddNode("a", 1); !errors.Is(err, ErrDuplicateNode) {
			t.Errorf("got %v, want ErrDuplicateNode", err)
		}
	})
}

func TestAddEdge(t *testing.T) {
	t.Parallel()

	t.Run("self edge", func(t *testing.T) {
		t.Parallel()
		d := New()
		_ = d.AddNode("a", 0)
		if err := d.AddEdge("a", "a"); !errors.Is(err, ErrSelfEdge) {
			t.Errorf("got %v, want ErrSelfEdge", err)
		}
	})

	t.Run("missing node", func(t *testing.T) {
		t.Parallel()
		d := New()
		_ = d.AddNode("a", 0)
		if err := d.AddEdge("a", "b"); !errors.Is(err, ErrNodeNotFound) {
			t.Errorf("got %v, want ErrNodeNotFound", err)
		}
		if err := d.AddEdge("b", "a"); !errors.Is(err, ErrNodeNotFound) {
			t.Errorf("got %v, want ErrNodeNotFound", err)
		}
	})

	t.Run("duplicate edge is no-op", func(t *testing.T) {
		t.Parallel()
		d := buildDAG(t, []itemSpec{{"b", 0, nil}, {"a", 1, []string{"b"}}})
		if err := d.AddEdge("a", "b"); err != nil {
			t.Errorf("duplicate AddEdge returned error: %v", err)
		}
	})
}

func TestCycleDetectionOnAddEdge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		specs     []itemSpec
		from, to  string
		wantChain string
	}{
		{
			name:      "direct cycle",
			specs:     []itemSpec{{"b", 0, nil}, {"a", 1, []string{"b"}}},
			from:      "b",
			to:        "a",
			wantChain: "b → a → b",
		},
		{
			name:      "transitive cycle",
			specs:     []itemSpec{{"c", 0, nil}, {"b", 1, []string{"c"}}, {"a", 2, []string{"b"}}},
			from:      "c",
			to:        "a",
			wantChain: "c → a → b → c",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := buildDAG(t, tt.specs)
			err := d.AddEdge(tt.from, tt.to)
			if !errors.Is(err, ErrCycle) {
				t.Fatalf("AddEdge(%q, %q) = %v, want ErrCycle", tt.from, tt.to, err)
			}
			if !strings.Contains(err.Error(), tt.wantChain) {
				t.Errorf("error %q does not name chain %q", err, tt.wantChain)
			}
		})
	}
}

func TestTopologicalSort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		specs []itemSpec
		want  []string // nil means only check validity
	}{
		{
			name: "linear",
			specs: []itemSpec{
				{"a", 0, []string{"b"}},
				{"b", 1, []string{"c"}},
				{"c", 2, nil},
			},
			want: []string{"c", "b", "a"},
		},
		{
			name: "diamond",
			specs: []itemSpec{
				{"a", 0, []string{"b", "c"}},
				{"b", 1, []string{"d"}},
				{"c", 2, []string{"d"}},
				{"d", 3, nil},
			},
			want: []string{"d", "b", "c", "a"},
		},
		{
			name: "independent items keep declaration order",
			specs: []itemSpec{
				{"zulu", 0, nil},
				{"alpha", 1, nil},
				{"mike", 2, nil},
			},
			want: []string{"zulu", "alpha", "mike"},
		},
		{
			name: "order ties break on name",
			specs: []itemSpec{
				{"b", 0, nil},
				{"a", 0, nil},
			},
			want: []string{"a", "b"},
		},
		{
			name:  "empty",
			specs: nil,
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := buildDAG(t, tt.specs)
			order, err := d.TopologicalSort()
			if err != nil {
				t.Fatalf("TopologicalSort: %v", err)
			}
			if !validInstallOrder(d, order) {
				t.Errorf("invalid install order: %v", order)
			}
			if !equalSlices(order, tt.want) {
				t.Errorf("order = %v, want %v", order, tt.want)
			}
		})
	}
}

func TestTopologicalSort_CycleDetection(t *testing.T) {
	t.Parallel()
	d := New()
	_ = d.AddNode("a", 0)
	_ = d.AddNode("b", 1)
	// Force a cycle by manipulating internal state.
	d.adjacency["a"]["b"] = true
	d.reverse["b"]["a"] = true
	d.adjacency["b"]["a"] = true
	d.reverse["a"]["b"] = true

	_, err := d.TopologicalSort()
	if !errors.Is(err, ErrCycle) {
		t.Errorf("got %v, want ErrCycle", err)
	}
	if !strings.Contains(err.Error(), "0 of 2") {
		t.Errorf("error %q should report ordered count", err)
	}
}

func TestAncestorsAndDescendants(t *testing.T) {
	t.Parallel()
	d := buildDAG(t, []itemSpec{
		{"a", 0, []string{"b", "c"}},
		{"b", 1, []string{"d"}},
		{"c", 2, []string{"d"}},
		{"d", 3, nil},
	})

	if got := d.Ancestors("a"); !equalSlices(got, []string{"b", "c", "d"}) {
		t.Errorf("Ancestors(a) = %v, want [b c d]", got)
	}
	if got := d.Ancestors("d"); len(got) != 0 {
		t.Errorf("Ancestors(d) = %v, want empty", got)
	}
	if got := d.Descendants("d"); !equalSlices(got, []string{"a", "b", "c"}) {
		t.Errorf("Descendants(d) = %v, want [a b c]", got)
	}
	if got := d.Ancestors("x"); got != nil {
		t.Errorf("Ancestors(x) = %v, want nil", got)
	}
	if got := d.Descendants("x"); got != nil {
		t.Errorf("Descendants(x) = %v, want nil", got)
	}
}

func TestPath(t *testing.T) {
	t.Parallel()
	d := buildDAG(t, []itemSpec{
		{"a", 0, []string{"b"}},
		{"b", 1, []string{"c"}},
		{"c", 2, nil},
		{"x", 3, nil},
	})
	if got := d.Path("a", "c"); !equalSlices(got, []string{"a", "b", "c"}) {
		t.Errorf("Path(a, c) = %v, want [a b c]", got)
	}
	if got := d.Path("c", "a"); got != nil {
		t.Errorf("Path(c, a) = %v, want nil", got)
	}
	if got := d.Path("a", "x"); got != nil {
		t.Errorf("Path(a, x) = %v, want nil", got)
	}
}
