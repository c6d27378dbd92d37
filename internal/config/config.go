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
	AppName         string
	AppEnv          string
	AppPort         string
	DatabaseURL     string
	RedisURL        string
	NATSURL         string
	JWTSecret       string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	OrgContext      string
	AdminWindow     time.Duration
	AdminCacheTTL   time.Duration
	EditSessionTTL  time.Duration
	FeedChannelBase string
	StreamKeepAlive time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
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
	v.SetEnvPrefix("PROMPTLAB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "PromptLab API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("admin.window", "24h")
	v.SetDefault("admin.cache_ttl", "1m")
	v.SetDefault("edit_session.ttl", "15m")
	v.SetDefault("feed.channel", "promptlab")
	v.SetDefault("stream.keepalive", "30s")
	v.SetDefault("rate_limit.max", 30)
	v.SetDefault("rate_limit.window", "1m")

	window, err := parseDuration(v, "admin.window", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := parseDuration(v, "admin.cache_ttl", time.Minute)
	if err != nil {
		return Config{}, err
	}
	sessionTTL, err := parseDuration(v, "edit_session.ttl", 15*time.Minute)
	if err != nil {
		return Config{}, err
	}
	keepAlive, err := parseDuration(v, "stream.keepalive", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	rateWindow, err := parseDuration(v, "rate_limit.window", time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		AppPort:         v.GetString("app.port"),
		DatabaseURL:     v.GetString("database.url"),
		RedisURL:        v.GetString("redis.url"),
		NATSURL:         v.GetString("nats.url"),
		JWTSecret:       v.GetString("jwt.secret"),
		OpenAIAPIKey:    v.GetString("openai_api_key"),
		OpenAIBaseURL:   v.GetString("openai.base_url"),
		OpenAIModel:     v.GetString("openai.model"),
		OrgContext:      v.GetString("org.context"),
		AdminWindow:     window,
		AdminCacheTTL:   cacheTTL,
		EditSessionTTL:  sessionTTL,
		FeedChannelBase: v.GetString("feed.channel"),
		StreamKeepAlive: keepAlive,
		RateLimitMax:    v.GetInt("rate_limit.max"),
		RateLimitWindow: rateWindow,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 30
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	value := v.GetString(key)
	if value == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return parsed, nil
}
