package registry

import (
	"testing"

	"github.com/castforge/castforge/internal/phase"
	"github.com/castforge/castforge/internal/workflow"
)

func TestStandardBuildsValidGraph(t *testing.T) {
	g, err := Build(workflow.Standard)
	if err != nil {
		t.Fatalf("Build(Standard) error = %v", err)
	}
	if len(g.PhaseIDs()) != 17 {
		t.Fatalf("len(PhaseIDs()) = %d, want 17", len(g.PhaseIDs()))
	}
	if g.Spec(ApplyEffects) != nil {
		t.Fatal("Standard must not contain apply_effects")
	}
}

func TestEnhancedBuildsValidGraph(t *testing.T) {
	g, err := Build(workflow.Enhanced)
	if err != nil {
		t.Fatalf("Build(Enhanced) error = %v", err)
	}
	if len(g.PhaseIDs()) != 18 {
		t.Fatalf("len(PhaseIDs()) = %d, want 18", len(g.PhaseIDs()))
	}

	render := g.Spec(RenderVideo)
	if render == nil {
		t.Fatal("expected render_video in Enhanced")
	}
	if render.Adapter != AdapterVideoEnhanced {
		t.Fatalf("render_video.Adapter = %v, want %v", render.Adapter, AdapterVideoEnhanced)
	}

	for _, id := range []phase.ID{PublishA, PublishB, PublishC} {
		spec := g.Spec(id)
		if spec == nil {
			t.Fatalf("expected %s in Enhanced", id)
		}
		if _, ok := spec.AcceptsMissing[KeyEffectsVideoHandle]; !ok {
			t.Fatalf("%s.AcceptsMissing missing effects_video_handle", id)
		}
		if _, ok := spec.Requires[ApplyEffects]; !ok {
			t.Fatalf("%s.Requires missing apply_effects", id)
		}
	}
}

func TestUpdateStatusAcceptsMissingPublishResults(t *testing.T) {
	for _, typ := range []workflow.Type{workflow.Standard, workflow.Enhanced} {
		g, err := Build(typ)
		if err != nil {
			t.Fatalf("Build(%s) error = %v", typ, err)
		}
		spec := g.Spec(UpdateStatus)
		if spec == nil {
			t.Fatalf("%s: expected update_status in catalogue", typ)
		}
		for _, key := range []phase.Key{KeyPublishAResult, KeyPublishBResult, KeyPublishCResult} {
			if _, ok := spec.AcceptsMissing[key]; !ok {
				t.Fatalf("%s: update_status.AcceptsMissing missing %s, so a BestEffort publish failure would wrongly cascade a Skip", typ, key)
			}
		}
	}
}

func TestUnknownTypeErrors(t *testing.T) {
	if _, err := Build(workflow.Type("Bogus")); err == nil {
		t.Fatal("expected error for unknown workflow type")
	}
}
