// Package scrape implements the scrape.fetch adapter. No dedicated
// scraping SDK is narrow enough for this role (see DESIGN.md), so this is
// a minimal net/http GET against the item's source URL.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/castforge/castforge/internal/adapter"
	"github.com/castforge/castforge/internal/apperrors"
	"github.com/castforge/castforge/internal/phase"
	"github.com/castforge/castforge/internal/registry"
	"github.com/castforge/castforge/internal/workflow"
)

// Scraper fetches a source URL's raw content.
type Scraper struct {
	HTTP *http.Client
}

func (s *Scraper) httpClient() *http.Client {
	if s.HTTP != nil {
		return s.HTTP
	}
	return http.DefaultClient
}

// Adapter returns an Adapter implementing registry.AdapterScrape.
func (s *Scraper) Adapter() adapter.Adapter {
	return adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
		url := sourceURL(in[registry.KeyItem])
		if url == "" {
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    phase.Permanent,
				Message: "scrape: item has no source URL",
			}}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    phase.Permanent,
				Message: apperrors.AdapterError(string(registry.AdapterScrape), err).Error(),
			}}
		}
		resp, err := s.httpClient().Do(req)
		if err != nil {
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    phase.Transient,
				Message: apperrors.AdapterError(string(registry.AdapterScrape), err).Error(),
			}}
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    phase.Transient,
				Message: apperrors.AdapterError(string(registry.AdapterScrape), err).Error(),
			}}
		}
		if resp.StatusCode >= 300 {
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    phase.Transient,
				Message: fmt.Sprintf("scrape: GET %s returned %d", url, resp.StatusCode),
			}}
		}
		return adapter.Result{Outputs: adapter.Input{registry.KeyScrapedContent: string(body)}}
	})
}

func sourceURL(item interface{}) string {
	type urler interface{ GetSourceURL() string }
	if u, ok := item.(urler); ok {
		return u.GetSourceURL()
	}
	if s, ok := item.(fmt.Stringer); ok {
		return s.String()
	}
	return ""
}
