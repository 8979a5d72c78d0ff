// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package config loads the application configuration from a TOML file with
// CINEDEX__ environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/autobrr/cinedex/internal/domain"
)

const envPrefix = "CINEDEX__"

var configTemplate = `# config.toml

# Hostname / IP for the admin API
host = "127.0.0.1"

# Port for the admin API
port = 7575

# Log level: "ERROR", "DEBUG", "INFO", "WARN", "TRACE"
logLevel = "INFO"

# Log path. Leave empty to log to stdout only.
#logPath = "log/cinedex.log"

# Shared secret for the read-only dashboard endpoint
apiSecret = ""

# Telegram bot token
telegramBotToken = ""

# Chat id of the admin / source channel owner
adminChatId = 0

# Channel id whose file posts are indexed. Defaults to adminChatId.
sourceChannelId = 0

# History bridge base URL (MTProto sidecar used by /index)
historyBridgeUrl = ""

# Gemini API key used for filename extraction
geminiApiKey = ""

# Gemini model
geminiModel = "gemini-2.5-flash"

# Landing page that wraps download links
adPageUrl = ""

# Admin dashboard URL handed out by /admin
dashboardUrl = ""
`

type AppConfig struct {
	Config *domain.Config
	viper  *viper.Viper
}

// New loads configuration from configPath (a directory or a config.toml
// file). A default config file is written on first run.
func New(configPath string, version string) (*AppConfig, error) {
	c := &AppConfig{
		viper: viper.New(),
	}

	c.defaults(version)

	if err := c.load(configPath); err != nil {
		return nil, err
	}

	if err := c.viper.Unmarshal(c.Config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Config.Version = version

	c.loadFromEnv()
	c.applyDerivedDefaults()

	return c, nil
}

func (c *AppConfig) defaults(version string) {
	c.Config = &domain.Config{
		Version:       version,
		Host:          "127.0.0.1",
		Port:          7575,
		LogLevel:      "INFO",
		LogMaxSize:    50,
		LogMaxBackups: 3,
		GeminiModel:   "gemini-2.5-flash",
	}

	c.viper.SetDefault("host", c.Config.Host)
	c.viper.SetDefault("port", c.Config.Port)
	c.viper.SetDefault("logLevel", c.Config.LogLevel)
	c.viper.SetDefault("logPath", c.Config.LogPath)
	c.viper.SetDefault("logMaxSize", c.Config.LogMaxSize)
	c.viper.SetDefault("logMaxBackups", c.Config.LogMaxBackups)
	c.viper.SetDefault("dataDir", c.Config.DataDir)
	c.viper.SetDefault("databasePath", c.Config.DatabasePath)
	c.viper.SetDefault("apiSecret", c.Config.APISecret)
	c.viper.SetDefault("telegramBotToken", c.Config.TelegramBotToken)
	c.viper.SetDefault("adminChatId", c.Config.AdminChatID)
	c.viper.SetDefault("sourceChannelId", c.Config.SourceChannelID)
	c.viper.SetDefault("historyBridgeUrl", c.Config.HistoryBridgeURL)
	c.viper.SetDefault("geminiApiKey", c.Config.GeminiAPIKey)
	c.viper.SetDefault("geminiModel", c.Config.GeminiModel)
	c.viper.SetDefault("adPageUrl", c.Config.AdPageURL)
	c.viper.SetDefault("dashboardUrl", c.Config.DashboardURL)
}

func (c *AppConfig) load(configPath string) error {
	c.viper.SetConfigType("toml")

	if configPath == "" {
		c.viper.SetConfigName("config")
		c.viper.AddConfigPath(".")
		c.viper.AddConfigPath("$HOME/.config/cinedex")

		if err := c.viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("read config: %w", err)
			}
		}
		return nil
	}

	file := configPath
	if info, err := os.Stat(configPath); err == nil && info.IsDir() {
		file = filepath.Join(configPath, "config.toml")
	}

	if _, err := os.Stat(file); os.IsNotExist(err) {
		if err := writeDefaultConfig(file); err != nil {
			return err
		}
		log.Info().Str("path", file).Msg("wrote default config file")
	}

	c.viper.SetConfigFile(file)
	if err := c.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", file, err)
	}

	return nil
}

func writeDefaultConfig(file string) error {
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(file, []byte(configTemplate), 0o644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}

// loadFromEnv applies CINEDEX__ overrides after file parsing so container
// deployments can run without a config file.
func (c *AppConfig) loadFromEnv() {
	if v := os.Getenv(envPrefix + "HOST"); v != "" {
		c.Config.Host = v
	}
	if v := os.Getenv(envPrefix + "PORT"); v != "" {
		if port, err := parseInt(v); err == nil {
			c.Config.Port = port
		}
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		c.Config.LogLevel = v
	}
	if v := os.Getenv(envPrefix + "LOG_PATH"); v != "" {
		c.Config.LogPath = v
	}
	if v := os.Getenv(envPrefix + "DATA_DIR"); v != "" {
		c.Config.DataDir = v
	}
	if v := os.Getenv(envPrefix + "DATABASE_PATH"); v != "" {
		c.Config.DatabasePath = v
	}
	if v := os.Getenv(envPrefix + "API_SECRET"); v != "" {
		c.Config.APISecret = v
	}
	if v := os.Getenv(envPrefix + "TELEGRAM_BOT_TOKEN"); v != "" {
		c.Config.TelegramBotToken = v
	}
	if v := os.Getenv(envPrefix + "ADMIN_CHAT_ID"); v != "" {
		if id, err := parseInt64(v); err == nil {
			c.Config.AdminChatID = id
		}
	}
	if v := os.Getenv(envPrefix + "SOURCE_CHANNEL_ID"); v != "" {
		if id, err := parseInt64(v); err == nil {
			c.Config.SourceChannelID = id
		}
	}
	if v := os.Getenv(envPrefix + "HISTORY_BRIDGE_URL"); v != "" {
		c.Config.HistoryBridgeURL = v
	}
	if v := os.Getenv(envPrefix + "GEMINI_API_KEY"); v != "" {
		c.Config.GeminiAPIKey = v
	}
	if v := os.Getenv(envPrefix + "GEMINI_MODEL"); v != "" {
		c.Config.GeminiModel = v
	}
	if v := os.Getenv(envPrefix + "AD_PAGE_URL"); v != "" {
		c.Config.AdPageURL = v
	}
	if v := os.Getenv(envPrefix + "DASHBOARD_URL"); v != "" {
		c.Config.DashboardURL = v
	}
}

// applyDerivedDefaults fills paths that depend on other settings. The
// database lands next to the config file unless set explicitly.
func (c *AppConfig) applyDerivedDefaults() {
	if c.Config.DatabasePath != "" {
		return
	}

	dir := c.Config.DataDir
	if dir == "" {
		if used := c.viper.ConfigFileUsed(); used != "" {
			dir = filepath.Dir(used)
		} else {
			dir = "."
		}
	}
	c.Config.DatabasePath = filepath.Join(dir, "cinedex.db")
}

func parseInt(s string) (int, error) {
	var v int
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &v)
	return v, err
}

func parseInt64(s string) (int64, error) {
	var v int64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &v)
	return v, err
}
