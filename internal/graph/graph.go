// Package graph derives a typed dependency graph from a phase registry:
// topological layering via Kahn's algorithm, cycle detection, and the
// per-wakeup "ready set" query the scheduler drives its loop with.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/castforge/castforge/internal/phase"
)

// ErrCycle is returned when the phase graph contains a dependency cycle.
var ErrCycle = errors.New("cycle detected in phase graph")

// ErrUnknownPhase is returned when a Requires entry names a phase that
// isn't registered.
var ErrUnknownPhase = errors.New("unknown phase referenced")

// ErrDuplicateProducer is returned when more than one phase in the registry
// produces the same context key.
var ErrDuplicateProducer = errors.New("context key has more than one producer")

// ErrGroupCycle is returned when a concurrency group member depends on
// another member of the same group.
var ErrGroupCycle = errors.New("concurrency group member depends on a peer in the same group")

// Layer is a batch of phases whose dependencies all fall in prior layers.
type Layer struct {
	Number   int
	PhaseIDs []phase.ID
}

// Graph is the phase dependency graph for one workflow variant.
type Graph struct {
	specs map[phase.ID]*phase.Spec
	// order preserves registration order for deterministic tie-breaks
	// Ties within a layer are broken by registration order.
	order []phase.ID
	// producerOf maps a context key to the single phase that writes it.
	producerOf map[phase.Key]phase.ID
	// adjacency maps a phase to the set of phases it depends on (derived
	// from Requires).
	adjacency map[phase.ID]map[phase.ID]struct{}
	// reverse maps a phase to the set of phases that depend on it.
	reverse map[phase.ID]map[phase.ID]struct{}
}

// Build validates specs and derives the dependency graph from them.
// Validation failures return (nil, error) before any phase runs, matching
// registry construction time, not at scheduling time.
func Build(specs []*phase.Spec) (*Graph, error) {
	g := &Graph{
		specs:      make(map[phase.ID]*phase.Spec, len(specs)),
		producerOf: make(map[phase.Key]phase.ID),
		adjacency:  make(map[phase.ID]map[phase.ID]struct{}, len(specs)),
		reverse:    make(map[phase.ID]map[phase.ID]struct{}, len(specs)),
	}

	for _, s := range specs {
		if _, exists := g.specs[s.ID]; exists {
			return nil, fmt.Errorf("duplicate phase id %q", s.ID)
		}
		g.specs[s.ID] = s
		g.order = append(g.order, s.ID)
		g.adjacency[s.ID] = make(map[phase.ID]struct{})
		g.reverse[s.ID] = make(map[phase.ID]struct{})
		for k := range s.Produces {
			if existing, ok := g.producerOf[k]; ok {
				return nil, fmt.Errorf("%w: %s (produced by both %s and %s)", ErrDuplicateProducer, k, existing, s.ID)
			}
			g.producerOf[k] = s.ID
		}
	}

	for _, s := range specs {
		for dep := range s.Requires {
			if _, ok := g.specs[dep]; !ok {
				return nil, fmt.Errorf("%w: phase %s requires unregistered phase %s", ErrUnknownPhase, s.ID, dep)
			}
			g.adjacency[s.ID][dep] = struct{}{}
			g.reverse[dep][s.ID] = struct{}{}
		}
	}

	if err := g.validateGroups(); err != nil {
		return nil, err
	}

	if _, err := g.Layers(); err != nil {
		return nil, err
	}

	return g, nil
}

// validateGroups rejects a registry where a concurrency group member
// depends (directly or transitively) on another member of the same group,
// which would make "may run in parallel" meaningless.
func (g *Graph) validateGroups() error {
	byGroup := make(map[phase.ConcurrencyGroup][]phase.ID)
	for _, id := range g.order {
		grp := g.specs[id].Group
		if grp == "" {
			continue
		}
		byGroup[grp] = append(byGroup[grp], id)
	}
	for grp, members := range byGroup {
		for _, a := range members {
			for _, b := range members {
				if a == b {
					continue
				}
				if g.hasPath(a, b) {
					return fmt.Errorf("%w: group %s, %s depends on %s", ErrGroupCycle, grp, a, b)
				}
			}
		}
	}
	return nil
}

// hasPath reports whether src transitively depends on dst.
func (g *Graph) hasPath(src, dst phase.ID) bool {
	visited := make(map[phase.ID]bool)
	queue := []phase.ID{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for dep := range g.adjacency[cur] {
			if dep == dst {
				return true
			}
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return false
}

// Spec returns the PhaseSpec for id, or nil if unregistered.
func (g *Graph) Spec(id phase.ID) *phase.Spec {
	return g.specs[id]
}

// Producer returns the phase that produces context key k, and whether one
// exists.
func (g *Graph) Producer(k phase.Key) (phase.ID, bool) {
	id, ok := g.producerOf[k]
	return id, ok
}

// PhaseIDs returns every registered phase ID in registration order.
func (g *Graph) PhaseIDs() []phase.ID {
	out := make([]phase.ID, len(g.order))
	copy(out, g.order)
	return out
}

// Requires returns the direct dependency IDs for id, sorted for
// determinism.
func (g *Graph) Requires(id phase.ID) []phase.ID {
	adj := g.adjacency[id]
	if len(adj) == 0 {
		return nil
	}
	out := make([]phase.ID, 0, len(adj))
	for dep := range adj {
		out = append(out, dep)
	}
	sortPhaseIDs(out)
	return out
}

// Layers computes topological layers using Kahn's algorithm: each layer
// contains phases whose dependencies all fall in prior layers. Within a
// layer, phase IDs are returned in registration order.
// Returns ErrCycle if the graph contains a cycle.
func (g *Graph) Layers() ([]Layer, error) {
	if len(g.specs) == 0 {
		return nil, nil
	}

	inDegree := make(map[phase.ID]int, len(g.specs))
	for id := range g.specs {
		inDegree[id] = len(g.adjacency[id])
	}

	var current []phase.ID
	for _, id := range g.order {
		if inDegree[id] == 0 {
			current = append(current, id)
		}
	}

	var layers []Layer
	processed := 0
	for len(current) > 0 {
		layers = append(layers, Layer{Number: len(layers), PhaseIDs: current})
		processed += len(current)

		nextSet := make(map[phase.ID]struct{})
		for _, id := range current {
			for dependent := range g.reverse[id] {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					nextSet[dependent] = struct{}{}
				}
			}
		}
		var next []phase.ID
		for _, id := range g.order {
			if _, ok := nextSet[id]; ok {
				next = append(next, id)
			}
		}
		current = next
	}

	if processed != len(g.specs) {
		return nil, fmt.Errorf("%w: only %d of %d phases could be layered", ErrCycle, processed, len(g.specs))
	}
	return layers, nil
}

// Ready returns phase IDs whose dependencies are all satisfied, given the
// set of phases considered "done" (Succeeded, or Skipped in a way the
// caller has already judged acceptable). Results are in registration order.
func (g *Graph) Ready(done map[phase.ID]bool, excluded map[phase.ID]bool) []phase.ID {
	var ready []phase.ID
	for _, id := range g.order {
		if done[id] || excluded[id] {
			continue
		}
		allMet := true
		for dep := range g.adjacency[id] {
			if !done[dep] {
				allMet = false
				break
			}
		}
		if allMet {
			ready = append(ready, id)
		}
	}
	return ready
}

func sortPhaseIDs(ids []phase.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
