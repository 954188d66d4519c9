// Package publish implements the publisher.publish adapter shared by all
// three publish phases: one real fan-out posts the rendered video to Slack
// (slack-go/slack) for publish_a and two generic webhook targets for
// publish_b/publish_c over net/http — no third-party webhook client is
// narrow enough for a single POST-and-parse call (see DESIGN.md). Each
// publish phase is BestEffort, so a fan-out failure is recorded against
// whichever phase happened to trigger it without aborting the run.
//
// publish_a/publish_b/publish_c all invoke this same Adapter for the same
// video, so Adapter itself must not re-post per caller: it keys concurrent
// calls for the same video handle through a singleflight.Group, so no
// matter how many of the three sibling phases call Invoke for one
// attempt round, Slack and both webhooks are hit at most once and every
// caller observes the same merged outputs.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/slack-go/slack"
	"golang.org/x/sync/singleflight"

	"github.com/castforge/castforge/internal/adapter"
	"github.com/castforge/castforge/internal/apperrors"
	"github.com/castforge/castforge/internal/phase"
	"github.com/castforge/castforge/internal/registry"
	"github.com/castforge/castforge/internal/workflow"
)

// Publisher holds the three endpoints' clients/targets.
type Publisher struct {
	Slack        *slack.Client
	SlackChannel string
	WebhookBURL  string
	WebhookCURL  string
	HTTPClient   *http.Client

	group singleflight.Group
}

func (p *Publisher) httpClient() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return http.DefaultClient
}

// Adapter returns the single Adapter bound to registry.AdapterPublish,
// invoked by publish_a, publish_b, and publish_c alike.
func (p *Publisher) Adapter() adapter.Adapter {
	return adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
		videoHandle := videoHandleFrom(in)
		key := fmt.Sprint(videoHandle)

		v, err, _ := p.group.Do(key, func() (interface{}, error) {
			return p.publishAll(ctx, videoHandle)
		})
		if err != nil {
			errRec, ok := err.(*workflow.ErrorRecord)
			if !ok {
				errRec = &workflow.ErrorRecord{Kind: phase.Transient, Message: err.Error()}
			}
			return adapter.Result{Err: errRec}
		}
		return adapter.Result{Outputs: v.(adapter.Input)}
	})
}

// publishAll performs the real Slack-post-plus-two-webhooks fan-out exactly
// once per singleflight key; callers share its result via Adapter.
func (p *Publisher) publishAll(ctx context.Context, videoHandle interface{}) (interface{}, error) {
	outputs := adapter.Input{}
	var failures []string

	if p.Slack != nil {
		if _, _, err := p.Slack.PostMessageContext(ctx, p.SlackChannel,
			slack.MsgOptionText(fmt.Sprintf("New video ready: %v", videoHandle), false)); err != nil {
			failures = append(failures, apperrors.AdapterError("publish_a", err).Error())
		} else {
			outputs[registry.KeyPublishAResult] = "posted"
		}
	}

	if body, err := p.postWebhook(ctx, p.WebhookBURL, videoHandle, "publish_b"); err != nil {
		failures = append(failures, err.Error())
	} else {
		outputs[registry.KeyPublishBResult] = body
	}

	if body, err := p.postWebhook(ctx, p.WebhookCURL, videoHandle, "publish_c"); err != nil {
		failures = append(failures, err.Error())
	} else {
		outputs[registry.KeyPublishCResult] = body
	}

	if len(failures) > 0 {
		return outputs, &workflow.ErrorRecord{
			Kind:    phase.Transient,
			Message: strings.Join(failures, "; "),
		}
	}
	return outputs, nil
}

func (p *Publisher) postWebhook(ctx context.Context, url string, videoHandle interface{}, name string) (string, error) {
	if url == "" {
		return "skipped", nil
	}
	payload, err := json.Marshal(map[string]interface{}{"video_handle": videoHandle})
	if err != nil {
		return "", apperrors.AdapterError(name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", apperrors.AdapterError(name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return "", apperrors.AdapterError(name, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%s: webhook returned %d: %s", name, resp.StatusCode, body)
	}
	return string(body), nil
}

func videoHandleFrom(in adapter.Input) interface{} {
	if effects, ok := in[registry.KeyEffectsVideoHandle]; ok {
		return effects
	}
	return in[registry.KeyVideoHandle]
}
