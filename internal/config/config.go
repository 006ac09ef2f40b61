package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix              = "STAFFVERIFY"
	defaultHTTPAddress     = "0.0.0.0:8080"
	defaultBaseURL         = "http://localhost:3000"
	defaultDatabasePath    = "staffverify.db"
	defaultLogLevel        = "info"
	defaultEnvironment     = "development"
	defaultUpstreamTimeout = 10 * time.Second
)

// AppConfig captures runtime configuration for the verification API.
type AppConfig struct {
	HTTPAddress         string
	BaseURL             string
	Environment         string
	DatabasePath        string
	SessionSigningKey   string
	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURI  string
	LoginWebhookURL     string
	AnnounceWebhookURL  string
	UpstreamTimeout     time.Duration
	LogLevel            string
}

// Production reports whether the service runs with production cookie hardening.
func (c AppConfig) Production() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.base_url", defaultBaseURL)
	configViper.SetDefault("app.environment", defaultEnvironment)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("upstream.timeout_seconds", int(defaultUpstreamTimeout.Seconds()))
	configViper.SetDefault("log.level", defaultLogLevel)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:         configViper.GetString("http.address"),
		BaseURL:             strings.TrimRight(configViper.GetString("http.base_url"), "/"),
		Environment:         configViper.GetString("app.environment"),
		DatabasePath:        configViper.GetString("database.path"),
		SessionSigningKey:   configViper.GetString("session.signing_secret"),
		DiscordClientID:     configViper.GetString("discord.client_id"),
		DiscordClientSecret: configViper.GetString("discord.client_secret"),
		DiscordRedirectURI:  configViper.GetString("discord.redirect_uri"),
		LoginWebhookURL:     configViper.GetString("discord.login_webhook_url"),
		AnnounceWebhookURL:  configViper.GetString("discord.announce_webhook_url"),
		UpstreamTimeout:     time.Duration(configViper.GetInt("upstream.timeout_seconds")) * time.Second,
		LogLevel:            configViper.GetString("log.level"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SessionSigningKey) == "" {
		return fmt.Errorf("session.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.DiscordClientID) == "" {
		return fmt.Errorf("discord.client_id is required")
	}
	if strings.TrimSpace(c.DiscordClientSecret) == "" {
		return fmt.Errorf("discord.client_secret is required")
	}
	if strings.TrimSpace(c.DiscordRedirectURI) == "" {
		return fmt.Errorf("discord.redirect_uri is required")
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("http.base_url is required")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream.timeout_seconds must be positive")
	}
	return nil
}
