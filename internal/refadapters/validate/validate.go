// Package validate implements the validate.check adapter shared by
// validate_products and validate_media, using go-playground/validator/v10
// struct tags instead of hand-rolled field checks.
package validate

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/castforge/castforge/internal/adapter"
	"github.com/castforge/castforge/internal/phase"
	"github.com/castforge/castforge/internal/registry"
	"github.com/castforge/castforge/internal/workflow"
)

// productFields is validated for validate_products: the category
// extracted upstream must be non-empty and the persisted item must carry
// an ID.
type productFields struct {
	Category string `validate:"required"`
	ItemID   string `validate:"required"`
}

// mediaFields is validated for validate_media: both image and voice
// handles must be present, non-empty lists.
type mediaFields struct {
	ImageHandles []string `validate:"required,min=1"`
	VoiceHandles []string `validate:"required,min=1"`
}

// Checker validates either shape depending on which keys are present in
// the phase's input snapshot.
type Checker struct {
	v *validator.Validate
}

func NewChecker() *Checker {
	return &Checker{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Adapter returns an Adapter implementing registry.AdapterValidate.
func (c *Checker) Adapter() adapter.Adapter {
	return adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
		if _, mediaPhase := in[registry.KeyImageHandles]; mediaPhase {
			return c.validateMedia(in)
		}
		return c.validateProducts(in)
	})
}

func (c *Checker) validateProducts(in adapter.Input) adapter.Result {
	var fields productFields
	if category, ok := in[registry.KeyCategory]; ok && category != nil {
		fields.Category = fmt.Sprintf("%v", category)
	}
	if item, ok := in[registry.KeyItem]; ok {
		fields.ItemID = fmt.Sprintf("%v", item)
	}
	if err := c.v.Struct(fields); err != nil {
		return adapter.Result{Err: &workflow.ErrorRecord{
			Kind:    phase.Permanent,
			Message: "validate_products: " + err.Error(),
		}}
	}
	return adapter.Result{Outputs: adapter.Input{registry.KeyProductsValid: true}}
}

func (c *Checker) validateMedia(in adapter.Input) adapter.Result {
	images, _ := in[registry.KeyImageHandles].([]string)
	voices, _ := in[registry.KeyVoiceHandles].([]string)
	fields := mediaFields{ImageHandles: images, VoiceHandles: voices}
	if err := c.v.Struct(fields); err != nil {
		return adapter.Result{Err: &workflow.ErrorRecord{
			Kind:    phase.Permanent,
			Message: "validate_media: " + err.Error(),
		}}
	}
	return adapter.Result{Outputs: adapter.Input{registry.KeyMediaValid: true}}
}
