package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the hub server.
// Tags use mapstructure for viper unmarshalling.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	// RedisAddr selects the redis-backed OAuth state store when set.
	// Empty means the in-memory store, which is fine for a single instance.
	RedisAddr string `mapstructure:"REDIS_ADDR"`

	LogLevel        string `mapstructure:"LOG_LEVEL"`
	LogPretty       bool   `mapstructure:"LOG_PRETTY"`
	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// TokenMasterSecret is the process-wide key material for the secret
	// codec. There is deliberately no default: a missing value makes every
	// encrypt/decrypt fail rather than running on a weak derived key.
	TokenMasterSecret string `mapstructure:"TOKEN_MASTER_SECRET"`

	// Twitch endpoints are configurable so tests and staging can point at
	// a stand-in server.
	TwitchIDBaseURL  string `mapstructure:"TWITCH_ID_BASE_URL"`
	TwitchAPIBaseURL string `mapstructure:"TWITCH_API_BASE_URL"`

	// StateTTLMin bounds how long an authorization-code flow may sit
	// between the redirect and the callback.
	StateTTLMin int `mapstructure:"STATE_TTL_MIN"`

	// ExposePlaintextSecrets keeps the legacy behavior of returning
	// decrypted client secrets from the credential list endpoint. Off by
	// default; list views mask secrets unless this is set.
	ExposePlaintextSecrets bool `mapstructure:"EXPOSE_PLAINTEXT_SECRETS"`
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/twitch-developer-hub/")
	v.AddConfigPath("$HOME/.twitch-developer-hub")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/twitch_hub_dev")
	v.SetDefault("MONGO_DB_NAME", "twitch_hub_dev")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OTEL_SERVICE_NAME", "twitch-developer-hub")
	v.SetDefault("TWITCH_ID_BASE_URL", "https://id.twitch.tv")
	v.SetDefault("TWITCH_API_BASE_URL", "https://api.twitch.tv")
	v.SetDefault("STATE_TTL_MIN", 10)
	v.SetDefault("EXPOSE_PLAINTEXT_SECRETS", false)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
