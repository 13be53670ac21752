package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                 string
	AppEnv                  string
	AppPort                 string
	DatabaseURL             string
	RedisURL                string
	NATSURL                 string
	EventSubjectBase        string
	JWTSecret               string
	ElevenLabsWebhookSecret string
	WebhookTolerance        time.Duration
	InterviewSessionTTL     time.Duration
	AIProvider              string
	OpenAIAPIKey            string
	OpenAIModel             string
	AnthropicAPIKey         string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("HIRELOOP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Hireloop API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("events.subject_base", "hireloop")
	v.SetDefault("webhook.tolerance", "30m")
	v.SetDefault("interview.session_ttl", "2h")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("openai.model", "gpt-4o-mini")

	tolerance, err := time.ParseDuration(v.GetString("webhook.tolerance"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid webhook tolerance: %w", err)
	}

	sessionTTL, err := time.ParseDuration(v.GetString("interview.session_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid interview session ttl: %w", err)
	}

	cfg := Config{
		AppName:                 v.GetString("app.name"),
		AppEnv:                  v.GetString("app.env"),
		AppPort:                 v.GetString("app.port"),
		DatabaseURL:             v.GetString("database.url"),
		RedisURL:                v.GetString("redis.url"),
		NATSURL:                 v.GetString("nats.url"),
		EventSubjectBase:        v.GetString("events.subject_base"),
		JWTSecret:               v.GetString("jwt.secret"),
		ElevenLabsWebhookSecret: v.GetString("elevenlabs.webhook_secret"),
		WebhookTolerance:        tolerance,
		InterviewSessionTTL:     sessionTTL,
		AIProvider:              strings.ToLower(v.GetString("ai.provider")),
		OpenAIAPIKey:            v.GetString("openai_api_key"),
		OpenAIModel:             v.GetString("openai.model"),
		AnthropicAPIKey:         v.GetString("anthropic_api_key"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.ElevenLabsWebhookSecret == "" {
		return Config{}, fmt.Errorf("elevenlabs webhook secret must be provided")
	}

	return cfg, nil
}
