// Package tokenrefresh implements the optional validate_credentials
// pre-flight adapter using a golang.org/x/oauth2.TokenSource, so the
// bootstrap phase exercises the same token caching/refresh contract real
// provider credentials need before any other phase runs.
package tokenrefresh

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/castforge/castforge/internal/adapter"
	"github.com/castforge/castforge/internal/apperrors"
	"github.com/castforge/castforge/internal/phase"
	"github.com/castforge/castforge/internal/registry"
	"github.com/castforge/castforge/internal/workflow"
)

// Refresher wraps an oauth2.TokenSource (typically oauth2.ReuseTokenSource
// over a client-credentials config) so validate_credentials can force a
// refresh check without the rest of the module depending on oauth2 types.
type Refresher struct {
	Source oauth2.TokenSource
}

// Adapter returns an Adapter implementing registry.AdapterTokenRefresh.
func (r *Refresher) Adapter() adapter.Adapter {
	return adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
		tok, err := r.Source.Token()
		if err != nil {
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    phase.Transient,
				Message: apperrors.AdapterError(string(registry.AdapterTokenRefresh), err).Error(),
			}}
		}
		if !tok.Valid() {
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    phase.Permanent,
				Message: "tokenrefresh: refreshed token is still invalid",
			}}
		}
		return adapter.Result{Outputs: adapter.Input{registry.KeyCredentialsValid: true}}
	})
}
