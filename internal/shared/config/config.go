package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/reshetovitsme/channel-admin-bot/internal/modules/store/domain"
	"github.com/reshetovitsme/channel-admin-bot/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

type Config struct {
	BotToken            string        `koanf:"bot_token"`
	TelegramAPIURL      string        `koanf:"telegram_api_url"`
	AdminID             int64         `koanf:"admin_id"`
	StoragePath         string        `koanf:"storage_path"`
	HTTPPort            string        `koanf:"http_port"`
	PostIntervalMinutes int           `koanf:"post_interval_minutes"`
	StrictLoad          bool          `koanf:"strict_load"`
	WeeklyReport        bool          `koanf:"weekly_report"`
	AppEnv              domain.AppEnv `koanf:"app_env"`
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try to load config file from various formats
	configFiles := []string{
		"config.yaml",
		"config.yml",
		"config.json",
		"config.toml",
	}

	// Use lo.Find to find the first existing config file
	configFile, found := lo.Find(configFiles, func(file string) bool {
		_, err := os.Stat(file)
		return err == nil
	})

	if found {
		var parser koanf.Parser
		ext := filepath.Ext(configFile)

		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		case ".toml":
			parser = toml.Parser()
		default:
			return nil, oops.Errorf("unsupported config file extension: %s", ext)
		}

		if err := k.Load(file.Provider(configFile), parser); err != nil {
			return nil, oops.With("config_file", configFile).Wrap(err)
		}
	}

	// Load environment variables (they override config file values)
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, oops.With("context", "loading environment variables").Wrap(err)
	}

	// Set defaults
	if !k.Exists("telegram_api_url") {
		k.Set("telegram_api_url", "https://api.telegram.org")
	}
	if !k.Exists("storage_path") {
		k.Set("storage_path", "data/state.json")
	}
	if !k.Exists("http_port") {
		k.Set("http_port", "8080")
	}
	if !k.Exists("post_interval_minutes") {
		k.Set("post_interval_minutes", 15)
	}
	if !k.Exists("weekly_report") {
		k.Set("weekly_report", true)
	}
	if !k.Exists("app_env") {
		k.Set("app_env", "production")
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.With("context", "unmarshaling config").Wrap(err)
	}

	// Parse AppEnv from string if needed
	if appEnvStr := k.String("app_env"); appEnvStr != "" {
		if env, err := domain.ParseAppEnv(appEnvStr); err == nil {
			cfg.AppEnv = env
		} else {
			cfg.AppEnv = domain.AppEnvProduction
		}
	} else {
		cfg.AppEnv = domain.AppEnvProduction
	}

	// Validate required fields
	if cfg.BotToken == "" {
		return nil, errors.ErrMissingBotToken
	}
	if cfg.AdminID == 0 {
		return nil, errors.ErrMissingAdminID
	}
	if cfg.PostIntervalMinutes <= 0 {
		return nil, oops.Errorf("post_interval_minutes must be positive, got %d", cfg.PostIntervalMinutes)
	}

	return &cfg, nil
}

// PostInterval returns the auto-post scheduler period
func (c *Config) PostInterval() time.Duration {
	return time.Duration(c.PostIntervalMinutes) * time.Minute
}

// LogLevel maps the application environment to a slog level
func (c *Config) LogLevel() slog.Level {
	switch c.AppEnv {
	case domain.AppEnvLocal, domain.AppEnvDevelopment:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
