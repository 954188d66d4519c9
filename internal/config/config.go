// Package config defines castforge's runtime Config and loads it from a
// YAML file, CASTFORGE_* environment variables, and built-in defaults via
// spf13/viper, the way papapumpkin-quasar's internal/config package wires
// its own viper.Load().
package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/castforge/castforge/internal/apperrors"
	"github.com/castforge/castforge/internal/breaker"
	"github.com/castforge/castforge/internal/phase"
)

// RetryDefaults mirrors phase.RetryPolicy's tunables for the config layer.
type RetryDefaults struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BaseDelay      time.Duration `mapstructure:"base_delay"`
	MaxDelay       time.Duration `mapstructure:"max_delay"`
	JitterFraction float64       `mapstructure:"jitter_fraction"`
}

// ToPolicy converts RetryDefaults to a phase.RetryPolicy.
func (r RetryDefaults) ToPolicy() phase.RetryPolicy {
	return phase.RetryPolicy{
		MaxAttempts:    r.MaxAttempts,
		BaseDelay:      r.BaseDelay,
		MaxDelay:       r.MaxDelay,
		JitterFraction: r.JitterFraction,
	}
}

// Providers holds connection details for the reference adapter
// implementations in internal/refadapters. None of these are read by the
// orchestration core itself — only by cmd/castforge at construction time,
// keeping adapter wiring out of the scheduler/orchestrator boundary.
type Providers struct {
	RecordStoreDSN       string `mapstructure:"record_store_dsn"`
	RecordStoreMigration string `mapstructure:"record_store_migrations_dir"`

	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	BedrockModelARN string `mapstructure:"bedrock_model_arn"`

	SlackToken   string `mapstructure:"slack_token"`
	SlackChannel string `mapstructure:"slack_channel"`
	WebhookBURL  string `mapstructure:"webhook_b_url"`
	WebhookCURL  string `mapstructure:"webhook_c_url"`

	RedisAddr string `mapstructure:"redis_addr"`

	StorageBaseURL    string `mapstructure:"storage_base_url"`
	ImageGenEndpoint  string `mapstructure:"imagegen_endpoint"`
	VoiceEndpoint     string `mapstructure:"voice_endpoint"`
	VideoRenderURL    string `mapstructure:"video_render_url"`
	VideoEnhancedURL  string `mapstructure:"video_enhanced_url"`
	VideoEffectsURL   string `mapstructure:"video_effects_url"`

	OAuthTokenURL     string `mapstructure:"oauth_token_url"`
	OAuthClientID     string `mapstructure:"oauth_client_id"`
	OAuthClientSecret string `mapstructure:"oauth_client_secret"`
}

// Config holds every runtime-tunable value the orchestration core reads.
// Values are populated from castforge.yaml, CASTFORGE_* env vars, and
// built-in defaults, in that order of precedence (env overrides file,
// both override defaults).
type Config struct {
	Retry            RetryDefaults            `mapstructure:"retry"`
	BreakerThreshold uint32                   `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration            `mapstructure:"breaker_cooldown"`
	PhaseTimeouts    map[string]time.Duration `mapstructure:"phase_timeout"`
	CheckpointPath   string                   `mapstructure:"checkpoint_path"`
	LedgerSink       string                   `mapstructure:"ledger_sink"`
	ParallelismCap   int                      `mapstructure:"parallelism_cap"`
	Verbose          bool                     `mapstructure:"verbose"`
	Providers        Providers                `mapstructure:"providers"`
}

// ToBreakerConfig converts the top-level breaker tunables to breaker.Config.
func (c Config) ToBreakerConfig() breaker.Config {
	return breaker.Config{Threshold: c.BreakerThreshold, Cooldown: c.BreakerCooldown}
}

// PhaseTimeout looks up the configured timeout override for a phase ID, if
// any was set via the phase_timeout map.
func (c Config) PhaseTimeout(id phase.ID) (time.Duration, bool) {
	d, ok := c.PhaseTimeouts[string(id)]
	return d, ok
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", time.Second)
	v.SetDefault("retry.max_delay", 60*time.Second)
	v.SetDefault("retry.jitter_fraction", 0.2)
	v.SetDefault("breaker_threshold", 5)
	v.SetDefault("breaker_cooldown", 30*time.Second)
	v.SetDefault("checkpoint_path", "./checkpoints")
	v.SetDefault("ledger_sink", "./castforge-ledger.jsonl")
	v.SetDefault("parallelism_cap", 4)
	v.SetDefault("verbose", false)
}

// New builds a viper instance configured to read castforge.yaml from the
// current directory (or the path given to SetConfigFile), overridden by
// CASTFORGE_-prefixed environment variables.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigName("castforge")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("CASTFORGE")
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads configuration from v, applying built-in defaults for any
// value not set by config file, environment, or flags. A missing config
// file is not an error — defaults and environment still apply.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, apperrors.ConfigurationError("config_file", err.Error())
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, apperrors.FailedTo("unmarshal configuration", err)
	}
	return cfg, nil
}
