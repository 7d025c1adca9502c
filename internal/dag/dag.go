// Package dag models the requires relation between catalog items as a
// directed acyclic graph. It supports cycle rejection on insert, install
// ordering (requirements before the items that need them), and transitive
// requirement/dependent queries.
package dag

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCycle is returned when an edge would close a requires cycle.
var ErrCycle = errors.New("cycle detected")

// ErrNodeNotFound is returned when an operation references a non-existent node.
var ErrNodeNotFound = errors.New("node not found")

// ErrDuplicateNode is returned when adding a node that already exists.
var ErrDuplicateNode = errors.New("duplicate node")

// ErrSelfEdge is returned when an edge would create a self-loop.
var ErrSelfEdge = errors.New("self-referencing edge")

// DAG is a requires graph. Edges point from an item to its requirements:
// if A requires B, there is an edge from A to B.
type DAG struct {
	// nodes maps name → declaration order; lower values sort first.
	nodes map[string]int
	// adjacency maps name → set of required names (forward edges).
	adjacency map[string]map[string]bool
	// reverse maps name → set of names that require it (backward edges).
	reverse map[string]map[string]bool
}

// New creates an empty DAG.
func New() *DAG {
	return &DAG{
		nodes:     make(map[string]int),
		adjacency: make(map[string]map[string]bool),
		reverse:   make(map[string]map[string]bool),
	}
}

// AddNode adds a node with the given name and declaration order. Returns
// ErrDuplicateNode if the name is already present.
func (d *DAG) AddNode(name string, order int) error {
	if _, exists := d.nodes[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, name)
	}
	d.nodes[name] = order
	d.adjacency[name] = make(map[string]bool)
	d.reverse[name] = make(map[string]bool)
	return nil
}

// Has reports whether name is a node.
func (d *DAG) Has(name string) bool {
	_, ok := d.nodes[name]
	return ok
}

// AddEdge records that from requires to. Both nodes must already exist.
// Returns an error if either node is missing, the edge is a self-loop, or the
// edge would close a cycle; the cycle error names the offending chain.
func (d *DAG) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfEdge, from)
	}
	if _, ok := d.nodes[from]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, from)
	}
	if _, ok := d.nodes[to]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, to)
	}
	if d.adjacency[from][to] {
		return nil
	}
	// A path to → ... → from already exists, so from → to would close it.
	if path := d.Path(to, from); path != nil {
		chain := append([]string{from}, path...)
		return fmt.Errorf("%w: %s", ErrCycle, strings.Join(chain, " → "))
	}
	d.adjacency[from][to] = true
	d.reverse[to][from] = true
	return nil
}

// TopologicalSort returns node names in install order: every requirement
// comes before the items that require it. Ties break on declaration order,
// then name. Returns ErrCycle if the graph contains a cycle.
func (d *DAG) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(d.nodes))
	for name := range d.nodes {
		inDegree[name] = len(d.adjacency[name])
	}

	queue := d.ordered(d.zeroDegreeNodes(inDegree))

	sorted := make([]string, 0, len(d.nodes))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		sorted = append(sorted, name)

		var freed []string
		for dependent := range d.reverse[name] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				freed = append(freed, dependent)
			}
		}
		if len(freed) > 0 {
			queue = append(queue, d.ordered(freed)...)
		}
	}

	if len(sorted) != len(d.nodes) {
		return nil, fmt.Errorf("%w: not all items could be ordered (%d of %d)",
			ErrCycle, len(sorted), len(d.nodes))
	}
	return sorted, nil
}

// Ancestors returns everything name transitively requires, sorted
// alphabetically. Returns nil if the node does not exist.
func (d *DAG) Ancestors(name string) []string {
	if _, ok := d.nodes[name]; !ok {
		return nil
	}
	visited := make(map[string]bool)
	d.collect(name, d.adjacency, visited)
	return sortedSet(visited)
}

// Descendants returns everything that transitively requires name, sorted
// alphabetically. Returns nil if the node does not exist.
func (d *DAG) Descendants(name string) []string {
	if _, ok := d.nodes[name]; !ok {
		return nil
	}
	visited := make(map[string]bool)
	d.collect(name, d.reverse, visited)
	return sortedSet(visited)
}

// Path returns the shortest chain of requires edges from src to dst,
// including both ends, or nil when dst is unreachable.
func (d *DAG) Path(src, dst string) []string {
	if src == dst {
		return nil
	}
	parent := map[string]string{src: ""}
	queue := []string{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range d.ordered(keys(d.adjacency[cur])) {
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = cur
			if next == dst {
				var path []string
				for n := dst; n != ""; n = parent[n] {
					path = append([]string{n}, path...)
				}
				return path
			}
			queue = append(queue, next)
		}
	}
	return nil
}

// collect walks edges from name depth-first, marking every reachable node.
func (d *DAG) collect(name string, edges map[string]map[string]bool, visited map[string]bool) {
	for next := range edges[name] {
		if !visited[next] {
			visited[next] = true
			d.collect(next, edges, visited)
		}
	}
}

// zeroDegreeNodes returns names from the in-degree map that have zero value.
func (d *DAG) zeroDegreeNodes(inDegree map[string]int) []string {
	var result []string
	for name, deg := range inDegree {
		if deg == 0 {
			result = append(result, name)
		}
	}
	return result
}

// ordered returns a copy of names sorted by declaration order, with the name
// as tiebreaker.
func (d *DAG) ordered(names []string) []string {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Slice(sorted, func(i, j int) bool {
		oi, oj := d.nodes[sorted[i]], d.nodes[sorted[j]]
		if oi != oj {
			return oi < oj
		}
		return sorted[i] < sorted[j]
	})
	return sorted
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

func sortedSet(set map[string]bool) []string {
	out := keys(set)
	sort.Strings(out)
	return out
}
