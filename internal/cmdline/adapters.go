package cmdline

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/castforge/castforge/internal/adapter"
	"github.com/castforge/castforge/internal/apperrors"
	"github.com/castforge/castforge/internal/breaker"
	"github.com/castforge/castforge/internal/config"
	"github.com/castforge/castforge/internal/refadapters/category"
	"github.com/castforge/castforge/internal/refadapters/imagegen"
	"github.com/castforge/castforge/internal/refadapters/lifecycle"
	"github.com/castforge/castforge/internal/refadapters/publish"
	"github.com/castforge/castforge/internal/refadapters/recordstore"
	"github.com/castforge/castforge/internal/refadapters/scrape"
	"github.com/castforge/castforge/internal/refadapters/storage"
	"github.com/castforge/castforge/internal/refadapters/textgen"
	"github.com/castforge/castforge/internal/refadapters/tokenrefresh"
	"github.com/castforge/castforge/internal/refadapters/validate"
	"github.com/castforge/castforge/internal/refadapters/videorender"
	"github.com/castforge/castforge/internal/refadapters/voice"
	"github.com/castforge/castforge/internal/registry"
)

// buildAdapters wires every registry.AdapterID to its internal/refadapters
// implementation from cfg.Providers. This is the one place allowed to
// import refadapters — the orchestration core never imports it itself.
func buildAdapters(ctx context.Context, cfg config.Config, breakers *breaker.Table, logger *logrus.Logger) (adapter.Registry, func(), error) {
	reg := make(adapter.Registry)
	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	store, err := recordstore.Open(ctx, cfg.Providers.RecordStoreDSN, cfg.Providers.RecordStoreMigration)
	if err != nil {
		return nil, cleanup, apperrors.FailedTo("wire record store adapter", err)
	}
	closers = append(closers, func() { store.Close() })
	reg[registry.AdapterRecordFetch] = store.FetchPendingAdapter()
	reg[registry.AdapterRecordPatch] = store.PatchAdapter()

	blob := &storage.Client{BaseURL: cfg.Providers.StorageBaseURL}

	scraper := &scrape.Scraper{}
	reg[registry.AdapterScrape] = scraper.Adapter()

	extractor, err := category.NewExtractor("")
	if err != nil {
		return nil, cleanup, apperrors.FailedTo("wire category adapter", err)
	}
	reg[registry.AdapterCategoryExtract] = extractor.Adapter()

	checker := validate.NewChecker()
	reg[registry.AdapterValidate] = checker.Adapter()

	anthropicClient := anthropic.NewClient(textgen.NewClientOption(cfg.Providers.AnthropicAPIKey))
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	var fallback *bedrockruntime.Client
	if err == nil {
		fallback = bedrockruntime.NewFromConfig(awsCfg)
	}
	generator := &textgen.Generator{
		Breakers:    breakers,
		Primary:     anthropicClient,
		Fallback:    fallback,
		FallbackARN: cfg.Providers.BedrockModelARN,
	}
	reg[registry.AdapterTextGenerate] = generator.Adapter()

	imgGen := &imagegen.Generator{Endpoint: cfg.Providers.ImageGenEndpoint, Storage: blob}
	reg[registry.AdapterImageGenerate] = imgGen.Adapter()

	voiceGen := &voice.Synthesizer{Endpoint: cfg.Providers.VoiceEndpoint, Storage: blob}
	reg[registry.AdapterVoiceSynthesize] = voiceGen.Adapter()

	reg[registry.AdapterVideoRender] = (&videorender.Renderer{Endpoint: cfg.Providers.VideoRenderURL, Storage: blob}).Adapter()
	reg[registry.AdapterVideoEnhanced] = (&videorender.Renderer{Endpoint: cfg.Providers.VideoEnhancedURL, Storage: blob}).Adapter()
	reg[registry.AdapterVideoEffects] = (&videorender.Effects{Endpoint: cfg.Providers.VideoEffectsURL, Storage: blob}).Adapter()

	publisher := &publish.Publisher{
		WebhookBURL: cfg.Providers.WebhookBURL,
		WebhookCURL: cfg.Providers.WebhookCURL,
	}
	if cfg.Providers.SlackToken != "" {
		publisher.Slack = slack.New(cfg.Providers.SlackToken)
		publisher.SlackChannel = cfg.Providers.SlackChannel
	}
	reg[registry.AdapterPublish] = publisher.Adapter()

	if cfg.Providers.OAuthClientID != "" {
		src := (&clientcredentials.Config{
			ClientID:     cfg.Providers.OAuthClientID,
			ClientSecret: cfg.Providers.OAuthClientSecret,
			TokenURL:     cfg.Providers.OAuthTokenURL,
		}).TokenSource(ctx)
		reg[registry.AdapterTokenRefresh] = (&tokenrefresh.Refresher{Source: src}).Adapter()
	} else {
		reg[registry.AdapterTokenRefresh] = adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
			return adapter.Result{Outputs: adapter.Input{registry.KeyCredentialsValid: true}}
		})
	}

	finalizer := lifecycle.NewFinalizer(logger, prometheus.DefaultRegisterer)
	reg[registry.AdapterLifecycle] = finalizer.Adapter()

	return reg, cleanup, nil
}
