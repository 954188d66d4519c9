package voice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/castforge/castforge/internal/adapter"
	"github.com/castforge/castforge/internal/phase"
	"github.com/castforge/castforge/internal/refadapters/storage"
	"github.com/castforge/castforge/internal/registry"
)

func TestAdapterSynthesizesAndStoresVoice(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("audio-bytes"))
	}))
	defer provider.Close()
	store := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer store.Close()

	s := &Synthesizer{Endpoint: provider.URL, Storage: &storage.Client{BaseURL: store.URL}}
	res := s.Adapter().Invoke(context.Background(), adapter.Input{
		registry.KeyScriptText: "hello world",
	})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	handles, ok := res.Outputs[registry.KeyVoiceHandles].([]string)
	if !ok || len(handles) != 1 {
		t.Fatalf("KeyVoiceHandles = %v", res.Outputs[registry.KeyVoiceHandles])
	}
}

func TestAdapterProviderFailureIsTransient(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer provider.Close()

	s := &Synthesizer{Endpoint: provider.URL, Storage: &storage.Client{BaseURL: "http://unused"}}
	res := s.Adapter().Invoke(context.Background(), adapter.Input{
		registry.KeyScriptText: "hello world",
	})
	if res.Err == nil || res.Err.Kind != phase.Transient {
		t.Fatalf("expected Transient error, got %+v", res.Err)
	}
}
