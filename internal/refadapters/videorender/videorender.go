// Package videorender implements video.render, video.render.enhanced, and
// video.effects.apply. No dedicated rendering SDK is narrow enough for
// this role (see DESIGN.md), so these are minimal net/http POSTs to
// configured render-farm endpoints, with the resulting bytes handed to
// refadapters/storage for a durable handle.
package videorender

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

// Renderer calls a render-farm endpoint with the generated images/voices
// and stores the resulting video, producing registry.KeyVideoHandle. The
// same type backs both video.render and video.render.enhanced — only
// Endpoint differs between a Standard and an Enhanced wiring.
type Renderer struct {
	Endpoint string
	Storage  *storage.Client
	HTTP     *http.Client
}

func (r *Renderer) httpClient() *http.Client {
	if r.HTTP != nil {
		return r.HTTP
	}
	return http.DefaultClient
}

// Adapter returns an Adapter bound to whichever of AdapterVideoRender /
// AdapterVideoEnhanced the caller registers it under.
func (r *Renderer) Adapter() adapter.Adapter {
	return adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
		payload := fmt.Sprintf(`{"images":%v,"voices":%v}`, in[registry.KeyImageHandles], in[registry.KeyVoiceHandles])
		body, err := r.post(ctx, r.Endpoint, payload)
		if err != nil {
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    phase.Transient,
				Message: apperrors.AdapterError(string(registry.AdapterVideoRender), err).Error(),
			}}
		}
		handle, err := r.Storage.Put(ctx, fmt.Sprintf("videos/%s", workflow.NewID()), body, "video/mp4")
		if err != nil {
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    phase.Transient,
				Message: apperrors.AdapterError(string(registry.AdapterVideoRender), err).Error(),
			}}
		}
		return adapter.Result{Outputs: adapter.Input{registry.KeyVideoHandle: handle}}
	})
}

func (r *Renderer) post(ctx context.Context, url, payload string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte(payload)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("videorender: provider returned %d", resp.StatusCode)
	}
	return body, nil
}

// Effects applies a post-render effects pass (apply_effects, Enhanced
// only) and stores its output under registry.KeyEffectsVideoHandle.
// apply_effects is BestEffort, so a failure here never aborts the run —
// render_video's own video_handle remains publishable.
type Effects struct {
	Endpoint string
	Storage  *storage.Client
	HTTP     *http.Client
}

func (e *Effects) httpClient() *http.Client {
	if e.HTTP != nil {
		return e.HTTP
	}
	return http.DefaultClient
}

// Adapter returns an Adapter implementing registry.AdapterVideoEffects.
func (e *Effects) Adapter() adapter.Adapter {
	return adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
		payload := fmt.Sprintf(`{"video_handle":%q}`, in[registry.KeyVideoHandle])
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.Endpoint, bytes.NewReader([]byte(payload)))
		if err != nil {
			return adapter.Result{Err: &workflow.ErrorRecord{Kind: phase.Permanent, Message: err.Error()}}
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.httpClient().Do(req)
		if err != nil {
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    phase.Transient,
				Message: apperrors.AdapterError(string(registry.AdapterVideoEffects), err).Error(),
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
				Message: fmt.Sprintf("apply_effects: provider returned %d", resp.StatusCode),
			}}
		}

		handle, err := e.Storage.Put(ctx, fmt.Sprintf("videos/effects/%s", workflow.NewID()), body, "video/mp4")
		if err != nil {
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    phase.Transient,
				Message: apperrors.AdapterError(string(registry.AdapterVideoEffects), err).Error(),
			}}
		}
		return adapter.Result{Outputs: adapter.Input{registry.KeyEffectsVideoHandle: handle}}
	})
}
