// Package voice implements the voice.synthesize adapter. No dedicated TTS
// SDK is narrow enough for this role (see DESIGN.md), so this is a minimal
// net/http POST to a configured provider endpoint, with the resulting
// audio bytes handed to refadapters/storage for a durable handle.
package voice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/castforge/castforge/internal/adapter"
	"github.com/castforge/castforge/internal/apperrors"
	"github.com/castforge/castforge/internal/phase"
	"github.com/castforge/castforge/internal/refadapters/storage"
	"github.com/castforge/castforge/internal/registry"
	"github.com/castforge/castforge/internal/workflow"
)

// Synthesizer calls a provider's TTS endpoint against the generated
// script and stores the resulting audio, producing its handle.
type Synthesizer struct {
	Endpoint string
	Storage  *storage.Client
	HTTP     *http.Client
}

func (s *Synthesizer) httpClient() *http.Client {
	if s.HTTP != nil {
		return s.HTTP
	}
	return http.DefaultClient
}

// Adapter returns an Adapter implementing registry.AdapterVoiceSynthesize.
func (s *Synthesizer) Adapter() adapter.Adapter {
	return adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
		script := fmt.Sprintf("%v", in[registry.KeyScriptText])

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint,
			bytes.NewReader([]byte(fmt.Sprintf(`{"text":%q}`, script))))
		if err != nil {
			return adapter.Result{Err: &workflow.ErrorRecord{Kind: phase.Permanent, Message: err.Error()}}
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient().Do(req)
		if err != nil {
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    phase.Transient,
				Message: apperrors.AdapterError(string(registry.AdapterVoiceSynthesize), err).Error(),
			}}
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return adapter.Result{Err: &workflow.ErrorRecord{Kind: phase.Transient, Message: err.Error()}}
		}
		if resp.StatusCode >= 300 {
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    phase.Transient,
				Message: fmt.Sprintf("voice: provider returned %d", resp.StatusCode),
			}}
		}

		handle, err := s.Storage.Put(ctx, fmt.Sprintf("voices/%s", workflow.NewID()), body, resp.Header.Get("Content-Type"))
		if err != nil {
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    phase.Transient,
				Message: apperrors.AdapterError(string(registry.AdapterVoiceSynthesize), err).Error(),
			}}
		}
		return adapter.Result{Outputs: adapter.Input{registry.KeyVoiceHandles: []string{handle}}}
	})
}
