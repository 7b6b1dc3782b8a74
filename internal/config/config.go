// Package config loads application settings and initializes logging
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Uploads  UploadsConfig  `yaml:"uploads" mapstructure:"uploads"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Telegram TelegramConfig `yaml:"telegram" mapstructure:"telegram"`
	Digest   DigestConfig   `yaml:"digest" mapstructure:"digest"`
	OpenAI   OpenAIConfig   `yaml:"openai" mapstructure:"openai"`
	Map      MapConfig      `yaml:"map" mapstructure:"map"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects the database driver and location.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// UploadsConfig configures where waste images are written.
type UploadsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the HTTP dashboard.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	SubmitRate  float64  `yaml:"submit_rate" mapstructure:"submit_rate"`
	SubmitBurst int      `yaml:"submit_burst" mapstructure:"submit_burst"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// TelegramConfig holds bot credentials.
type TelegramConfig struct {
	Token        string `yaml:"token" mapstructure:"token"`
	DigestChatID int64  `yaml:"digest_chat_id" mapstructure:"digest_chat_id"`
}

// DigestConfig configures the scheduled count digest.
type DigestConfig struct {
	Schedule string `yaml:"schedule" mapstructure:"schedule"`
}

// OpenAIConfig enables free-text interpretation in the bot.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
}

// MapConfig holds the fallback point for unparsable drainage locations.
type MapConfig struct {
	DefaultLat float64 `yaml:"default_lat" mapstructure:"default_lat"`
	DefaultLng float64 `yaml:"default_lng" mapstructure:"default_lng"`
	Zoom       int     `yaml:"zoom" mapstructure:"zoom"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ECMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite3")
	v.SetDefault("store.dsn", "data/ecms.db")
	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.submit_rate", 5.0)
	v.SetDefault("server.submit_burst", 10)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.digest_chat_id", 0)
	v.SetDefault("digest.schedule", "0 8 * * *")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("map.default_lat", 6.5244)
	v.SetDefault("map.default_lng", 3.3792)
	v.SetDefault("map.zoom", 6)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
