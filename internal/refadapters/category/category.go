// Package category implements the category.extract adapter: it runs a
// gojq query over a structured LLM JSON response to pull the category
// field, rather than re-parsing free text with ad-hoc string matching.
package category

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"

	"github.com/castforge/castforge/internal/adapter"
	"github.com/castforge/castforge/internal/apperrors"
	"github.com/castforge/castforge/internal/phase"
	"github.com/castforge/castforge/internal/registry"
	"github.com/castforge/castforge/internal/workflow"
)

const defaultQuery = ".category // .classification.category // empty"

// Extractor pulls a category string out of scraped_content's structured
// payload using a compiled gojq query.
type Extractor struct {
	query *gojq.Code
}

// NewExtractor compiles expr (defaultQuery if empty) once so repeated
// Invoke calls don't pay parse cost per phase attempt.
func NewExtractor(expr string) (*Extractor, error) {
	if expr == "" {
		expr = defaultQuery
	}
	parsed, err := gojq.Parse(expr)
	if err != nil {
		return nil, apperrors.FailedTo("parse category extraction query", err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, apperrors.FailedTo("compile category extraction query", err)
	}
	return &Extractor{query: code}, nil
}

// Adapter returns an Adapter implementing registry.AdapterCategoryExtract.
func (e *Extractor) Adapter() adapter.Adapter {
	return adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
		raw, ok := in[registry.KeyScrapedContent]
		if !ok {
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    phase.Permanent,
				Message: "category: scraped_content missing from input",
			}}
		}

		var doc interface{}
		switch v := raw.(type) {
		case string:
			if err := json.Unmarshal([]byte(v), &doc); err != nil {
				return adapter.Result{Err: &workflow.ErrorRecord{
					Kind:    phase.Permanent,
					Message: apperrors.AdapterError(string(registry.AdapterCategoryExtract), err).Error(),
				}}
			}
		default:
			doc = v
		}

		iter := e.query.RunWithContext(ctx, doc)
		val, found := iter.Next()
		if !found {
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    phase.Permanent,
				Message: "category: query produced no result",
			}}
		}
		if err, ok := val.(error); ok {
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    phase.Permanent,
				Message: apperrors.AdapterError(string(registry.AdapterCategoryExtract), err).Error(),
			}}
		}
		category := fmt.Sprintf("%v", val)
		if category == "" || category == "<nil>" {
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    phase.Permanent,
				Message: "category: extracted value is empty",
			}}
		}
		return adapter.Result{Outputs: adapter.Input{registry.KeyCategory: category}}
	})
}
