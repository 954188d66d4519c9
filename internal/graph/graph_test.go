package graph

import (
	"errors"
	"testing"

	"github.com/castforge/castforge/internal/phase"
)

func spec(id phase.ID, group phase.ConcurrencyGroup, requires ...phase.ID) *phase.Spec {
	produces := phase.KeySet(phase.Key(id) + "_out")
	return &phase.Spec{
		ID:          id,
		Requires:    phase.RequiresSet(requires...),
		Produces:    produces,
		Group:       group,
		Criticality: phase.Critical,
	}
}

func TestBuildLinearChain(t *testing.T) {
	g, err := Build([]*phase.Spec{
		spec("a", ""),
		spec("b", "", "a"),
		spec("c", "", "b"),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	layers, err := g.Layers()
	if err != nil {
		t.Fatalf("Layers() error = %v", err)
	}
	if len(layers) != 3 {
		t.Fatalf("expected 3 layers, got %d", len(layers))
	}
	if layers[0].PhaseIDs[0] != "a" || layers[1].PhaseIDs[0] != "b" || layers[2].PhaseIDs[0] != "c" {
		t.Fatalf("unexpected layer order: %+v", layers)
	}
}

func TestBuildFanOutSameLayer(t *testing.T) {
	g, err := Build([]*phase.Spec{
		spec("fetch", ""),
		spec("publish_a", "publishing", "fetch"),
		spec("publish_b", "publishing", "fetch"),
		spec("publish_c", "publishing", "fetch"),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	layers, err := g.Layers()
	if err != nil {
		t.Fatalf("Layers() error = %v", err)
	}
	if len(layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(layers))
	}
	if len(layers[1].PhaseIDs) != 3 {
		t.Fatalf("expected 3 phases in publishing layer, got %d", len(layers[1].PhaseIDs))
	}
	// Registration order preserved within a layer.
	want := []phase.ID{"publish_a", "publish_b", "publish_c"}
	for i, id := range want {
		if layers[1].PhaseIDs[i] != id {
			t.Fatalf("layer order = %+v, want %+v", layers[1].PhaseIDs, want)
		}
	}
}

func TestBuildDetectsCycle(t *testing.T) {
	_, err := Build([]*phase.Spec{
		spec("a", "", "b"),
		spec("b", "", "a"),
	})
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
}

func TestBuildRejectsUnknownRequires(t *testing.T) {
	_, err := Build([]*phase.Spec{
		spec("a", "", "missing"),
	})
	if !errors.Is(err, ErrUnknownPhase) {
		t.Fatalf("expected ErrUnknownPhase, got %v", err)
	}
}

func TestBuildRejectsDuplicateProducer(t *testing.T) {
	s1 := spec("a", "")
	s2 := &phase.Spec{ID: "b", Produces: phase.KeySet("a_out"), Criticality: phase.Critical}
	_, err := Build([]*phase.Spec{s1, s2})
	if !errors.Is(err, ErrDuplicateProducer) {
		t.Fatalf("expected ErrDuplicateProducer, got %v", err)
	}
}

func TestBuildRejectsGroupCycle(t *testing.T) {
	a := spec("a", "grp")
	b := &phase.Spec{ID: "b", Requires: phase.RequiresSet("a"), Produces: phase.KeySet("b_out"), Group: "grp", Criticality: phase.Critical}
	_, err := Build([]*phase.Spec{a, b})
	if !errors.Is(err, ErrGroupCycle) {
		t.Fatalf("expected ErrGroupCycle, got %v", err)
	}
}

func TestReady(t *testing.T) {
	g, err := Build([]*phase.Spec{
		spec("a", ""),
		spec("b", "", "a"),
		spec("c", "", "a"),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	ready := g.Ready(map[phase.ID]bool{}, map[phase.ID]bool{})
	if len(ready) != 1 || ready[0] != "a" {
		t.Fatalf("Ready() = %v, want [a]", ready)
	}
	ready = g.Ready(map[phase.ID]bool{"a": true}, map[phase.ID]bool{})
	if len(ready) != 2 || ready[0] != "b" || ready[1] != "c" {
		t.Fatalf("Ready() = %v, want [b c]", ready)
	}
}

func TestEmptyRegistry(t *testing.T) {
	g, err := Build(nil)
	if err != nil {
		t.Fatalf("Build(nil) error = %v", err)
	}
	layers, err := g.Layers()
	if err != nil || layers != nil {
		t.Fatalf("Layers() = %v, %v; want nil, nil", layers, err)
	}
}
