// Package textgen implements the text.generate adapter used by both
// generate_text_content and generate_scripts. anthropic-sdk-go is the
// primary provider; when the scheduler's breaker table reports the
// primary adapter as Open, requests are routed to a bedrockruntime-backed
// fallback instead of failing the phase outright — a caller-side use of
// the same breaker.Table the scheduler consults for admission.
package textgen

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/castforge/castforge/internal/adapter"
	"github.com/castforge/castforge/internal/apperrors"
	"github.com/castforge/castforge/internal/breaker"
	"github.com/castforge/castforge/internal/phase"
	"github.com/castforge/castforge/internal/registry"
	"github.com/castforge/castforge/internal/workflow"
)

// Generator produces prose content from an anthropic-sdk-go client, with a
// bedrockruntime fallback model picked up when the primary's breaker has
// tripped.
type Generator struct {
	Breakers    *breaker.Table
	Primary     anthropic.Client
	Fallback    *bedrockruntime.Client
	FallbackARN string
	MaxTokens   int64
}

// Adapter returns an Adapter implementing registry.AdapterTextGenerate. The
// output key is chosen from in: a text_content key present means this is
// the script-writing call (produces registry.KeyScriptText), otherwise it's
// the product-description call (registry.KeyTextContent).
func (g *Generator) Adapter() adapter.Adapter {
	return adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
		prompt := buildPrompt(in)

		var text string
		var err error
		if g.Breakers.State(registry.AdapterTextGenerate) == breaker.Open && g.Fallback != nil {
			text, err = g.invokeFallback(ctx, prompt)
		} else {
			text, err = g.invokePrimary(ctx, prompt)
		}
		if err != nil {
			return adapter.Result{Err: &workflow.ErrorRecord{
				Kind:    phase.Transient,
				Message: apperrors.AdapterError(string(registry.AdapterTextGenerate), err).Error(),
			}}
		}

		key := registry.KeyTextContent
		if _, hasScript := in[registry.KeyTextContent]; hasScript {
			key = registry.KeyScriptText
		}
		return adapter.Result{Outputs: adapter.Input{key: text}}
	})
}

func (g *Generator) invokePrimary(ctx context.Context, prompt string) (string, error) {
	msg, err := g.Primary.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.ModelClaude3_5SonnetLatest,
		MaxTokens: g.maxTokens(),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}
	if len(msg.Content) == 0 {
		return "", fmt.Errorf("textgen: empty response from primary provider")
	}
	return msg.Content[0].Text, nil
}

func (g *Generator) invokeFallback(ctx context.Context, prompt string) (string, error) {
	body := []byte(fmt.Sprintf(`{"prompt":%q,"max_tokens":%d}`, prompt, g.maxTokens()))
	out, err := g.Fallback.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.FallbackARN),
		Body:        body,
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", err
	}
	return string(out.Body), nil
}

func (g *Generator) maxTokens() int64 {
	if g.MaxTokens > 0 {
		return g.MaxTokens
	}
	return 1024
}

func buildPrompt(in adapter.Input) string {
	if category, ok := in[registry.KeyCategory]; ok {
		return fmt.Sprintf("Write marketing copy for a product in category %v.", category)
	}
	if text, ok := in[registry.KeyTextContent]; ok {
		return fmt.Sprintf("Turn the following product description into a short video script:\n\n%v", text)
	}
	return "Describe this product."
}

// NewClientOption builds the anthropic client option slice from an API
// key, so callers don't need to import anthropic's option package
// themselves.
func NewClientOption(apiKey string) option.RequestOption {
	return option.WithAPIKey(apiKey)
}
