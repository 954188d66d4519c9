package category

import (
	"context"
	"testing"

	"github.com/castforge/castforge/internal/adapter"
	"github.com/castforge/castforge/internal/phase"
	"github.com/castforge/castforge/internal/registry"
)

func TestAdapterExtractsCategoryField(t *testing.T) {
	e, err := NewExtractor("")
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	res := e.Adapter().Invoke(context.Background(), adapter.Input{
		registry.KeyScrapedContent: `{"category": "outdoors"}`,
	})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if got := res.Outputs[registry.KeyCategory]; got != "outdoors" {
		t.Fatalf("KeyCategory = %v, want outdoors", got)
	}
}

func TestAdapterFallsBackToNestedClassification(t *testing.T) {
	e, err := NewExtractor("")
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	res := e.Adapter().Invoke(context.Background(), adapter.Input{
		registry.KeyScrapedContent: map[string]interface{}{
			"classification": map[string]interface{}{"category": "electronics"},
		},
	})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if got := res.Outputs[registry.KeyCategory]; got != "electronics" {
		t.Fatalf("KeyCategory = %v, want electronics", got)
	}
}

func TestAdapterMissingInputIsPermanent(t *testing.T) {
	e, err := NewExtractor("")
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	res := e.Adapter().Invoke(context.Background(), adapter.Input{})
	if res.Err == nil || res.Err.Kind != phase.Permanent {
		t.Fatalf("expected Permanent error, got %+v", res.Err)
	}
}

func TestAdapterEmptyCategoryIsPermanent(t *testing.T) {
	e, err := NewExtractor("")
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	res := e.Adapter().Invoke(context.Background(), adapter.Input{
		registry.KeyScrapedContent: `{"category": ""}`,
	})
	if res.Err == nil || res.Err.Kind != phase.Permanent {
		t.Fatalf("expected Permanent error, got %+v", res.Err)
	}
}

func TestNewExtractorRejectsBadQuery(t *testing.T) {
	if _, err := NewExtractor("..."); err == nil {
		t.Fatal("expected parse error for malformed query")
	}
}
