// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"errors"
	"strings"
)

// Config represents the application configuration
type Config struct {
	Version       string
	Host          string `toml:"host" mapstructure:"host"`
	Port          int    `toml:"port" mapstructure:"port"`
	LogLevel      string `toml:"logLevel" mapstructure:"logLevel"`
	LogPath       string `toml:"logPath" mapstructure:"logPath"`
	LogMaxSize    int    `toml:"logMaxSize" mapstructure:"logMaxSize"`
	LogMaxBackups int    `toml:"logMaxBackups" mapstructure:"logMaxBackups"`
	DataDir       string `toml:"dataDir" mapstructure:"dataDir"`
	DatabasePath  string `toml:"databasePath" mapstructure:"databasePath"`

	// APISecret guards the read-only dashboard endpoint.
	APISecret string `toml:"apiSecret" mapstructure:"apiSecret"`

	// Telegram transport settings. The bot token drives user-facing
	// messaging, the admin chat owns the indexed source channel.
	TelegramBotToken string `toml:"telegramBotToken" mapstructure:"telegramBotToken"`
	AdminChatID      int64  `toml:"adminChatId" mapstructure:"adminChatId"`

	// SourceChannelID is the only channel whose posts feed the index.
	// Defaults to AdminChatID when unset.
	SourceChannelID int64 `toml:"sourceChannelId" mapstructure:"sourceChannelId"`

	// HistoryBridgeURL points at the MTProto sidecar that exposes channel
	// history over HTTP. The Bot API cannot read channel history itself.
	HistoryBridgeURL string `toml:"historyBridgeUrl" mapstructure:"historyBridgeUrl"`

	// Gemini extraction settings.
	GeminiAPIKey string `toml:"geminiApiKey" mapstructure:"geminiApiKey"`
	GeminiModel  string `toml:"geminiModel" mapstructure:"geminiModel"`

	// AdPageURL wraps download links through a landing page. When empty the
	// bot degrades to a "not configured" notice instead of sending links.
	AdPageURL    string `toml:"adPageUrl" mapstructure:"adPageUrl"`
	DashboardURL string `toml:"dashboardUrl" mapstructure:"dashboardUrl"`
}

// ValidateServe checks the settings the serve command cannot run without.
func (c *Config) ValidateServe() error {
	if strings.TrimSpace(c.TelegramBotToken) == "" {
		return errors.New("telegramBotToken is required")
	}
	if c.AdminChatID == 0 {
		return errors.New("adminChatId is required")
	}
	if strings.TrimSpace(c.APISecret) == "" {
		return errors.New("apiSecret is required")
	}
	return nil
}
