package schema

import (
	"fmt"
	"sort"
	"strings"
)

// DependencyGraph orders entity types so referenced tables come before the tables holding
// foreign keys to them. Self-references never create an edge.
type DependencyGraph struct {
	nodes []*EntityType
	edges map[*EntityType][]*Association // dependent -> associations it owns FKs for
}

// NewDependencyGraph builds the graph from resolved associations
func NewDependencyGraph(s *Schema) *DependencyGraph {
	g := &DependencyGraph{
		nodes: s.Entities,
		edges: make(map[*EntityType][]*Association),
	}
	for _, a := range s.Associations {
		if a.Kind == ManyToMany || a.SelfReferencing() {
			continue
		}
		g.edges[a.Dependent] = append(g.edges[a.Dependent], a)
	}
	return g
}

// Dependencies returns the entity types e references, in declaration order
func (g *DependencyGraph) Dependencies(e *EntityType) []*EntityType {
	seen := make(map[*EntityType]bool)
	var deps []*EntityType
	for _, a := range g.edges[e] {
		if !seen[a.Principal] {
			seen[a.Principal] = true
			deps = append(deps, a.Principal)
		}
	}
	sort.SliceStable(deps, func(i, j int) bool { return deps[i].order < deps[j].order })
	return deps
}

// Dependents returns the entity types referencing e, in declaration order
func (g *DependencyGraph) Dependents(e *EntityType) []*EntityType {
	var out []*EntityType
	for _, n := range g.nodes {
		for _, a := range g.edges[n] {
			if a.Principal == e {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

// DetectCycles returns each circular dependency found by depth-first search
func (g *DependencyGraph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[*EntityType]bool)
	onStack := make(map[*EntityType]bool)

	var dfs func(node *EntityType, path []*EntityType)
	dfs = func(node *EntityType, path []*EntityType) {
		visited[node] = true
		onStack[node] = true
		path = append(path, node)

		for _, dep := range g.Dependencies(node) {
			if !visited[dep] {
				dfs(dep, path)
			} else if onStack[dep] {
				for i, n := range path {
					if n == dep {
						cycle := make([]string, 0, len(path)-i)
						for _, c := range path[i:] {
							cycle = append(cycle, c.Name)
						}
						cycles = append(cycles, cycle)
						break
					}
				}
			}
		}

		onStack[node] = false
	}

	for _, n := range g.nodes {
		if !visited[n] {
			dfs(n, nil)
		}
	}
	return cycles
}

// CreationOrder is the result of a topological sort
type CreationOrder struct {
	// Entities lists entity types with referenced types first.
	Entities []*EntityType
	// Deferred holds associations whose constraint must be added after all tables exist.
	Deferred []*Association
}

// TopologicalSort orders entity types by dependency. Ties are broken by declaration order.
// When a cycle blocks progress, the earliest declared remaining type is emitted and its
// outgoing constraints are deferred.
func (g *DependencyGraph) TopologicalSort() *CreationOrder {
	pending := make(map[*EntityType]int)
	for _, n := range g.nodes {
		pending[n] = len(g.Dependencies(n))
	}
	done := make(map[*EntityType]bool)
	order := &CreationOrder{}

	emit := func(n *EntityType) {
		done[n] = true
		order.Entities = append(order.Entities, n)
		for _, d := range g.Dependents(n) {
			pending[d]--
		}
	}

	for len(order.Entities) < len(g.nodes) {
		var next *EntityType
		for _, n := range g.nodes {
			if !done[n] && pending[n] == 0 {
				next = n
				break
			}
		}
		if next == nil {
			for _, n := range g.nodes {
				if !done[n] {
					next = n
					break
				}
			}
			for _, a := range g.edges[next] {
				if !done[a.Principal] {
					order.Deferred = append(order.Deferred, a)
				}
			}
		}
		emit(next)
	}

	return order
}

// IsDeferred reports whether the association's constraint is added after table creation
func (o *CreationOrder) IsDeferred(a *Association) bool {
	for _, d := range o.Deferred {
		if d == a {
			return true
		}
	}
	return false
}

// FormatCycles renders cycles for diagnostics
func FormatCycles(cycles [][]string) string {
	var b strings.Builder
	for i, cycle := range cycles {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("  cycle %d: %s -> %s", i+1, strings.Join(cycle, " -> "), cycle[0]))
	}
	return b.String()
}
