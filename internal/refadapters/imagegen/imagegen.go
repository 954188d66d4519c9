// Package imagegen implements the image.generate adapter. No dedicated
// image-provider client is narrow enough for a single generate-and-store
// call (see DESIGN.md), so this is a minimal net/http POST to a configured
// provider endpoint, with the resulting bytes handed to refadapters/storage
// for a durable handle.
package imagegen

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

// Generator calls a provider's image endpoint once per invocation and
// stores the resulting image, producing a handle list with that one handle.
type Generator struct {
	Endpoint string
	Storage  *storage.Client
	HTTP     *http.Client
}

func (g *Generator) httpClient() *http.Client {
	if g.HTTP != nil {
		return g.HTTP
	}
	return http.DefaultClient
}

// Adapter returns an Adapter implementing registry.AdapterImageGenerate.
func (g *Generator) Adapter() adapter.Adapter {
	return adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
		prompt := fmt.Sprintf("product image for category %v", in[registry.KeyCategory])

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint,
			bytes.NewReader([]byte(fmt.Sprintf(`{"prompt":%q}`, prompt))))
		if err != nil {
			return adapter.Result{Err: &workflow.ErrorRecord{Kind: phase.Permanent, Message: err.Error()}}
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := g.httpClient().Do(req)
		if err != nil {
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    phase.Transient,
				Message: apperrors.AdapterError(string(registry.AdapterImageGenerate), err).Error(),
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
				Message: fmt.Sprintf("imagegen: provider returned %d", resp.StatusCode),
			}}
		}

		handle, err := g.Storage.Put(ctx, fmt.Sprintf("images/%s", workflow.NewID()), body, resp.Header.Get("Content-Type"))
		if err != nil {
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    phase.Transient,
				Message: apperrors.AdapterError(string(registry.AdapterImageGenerate), err).Error(),
			}}
		}
		return adapter.Result{Outputs: adapter.Input{registry.KeyImageHandles: []string{handle}}}
	})
}
