package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Config is the bridge configuration. A single instance is shared
// across the process; the mutex guards readers against updates.
type Config struct {
	mu sync.RWMutex

	Workspace string         `json:"workspace"`
	Gateway   GatewayConfig  `json:"gateway"`
	WhatsApp  WhatsAppConfig `json:"whatsapp"`
	Voice     VoiceConfig    `json:"voice"`
	Alerts    AlertsConfig   `json:"alerts"`
	Storage   StorageConfig  `json:"storage"`
	Logging   LoggingConfig  `json:"logging"`
}

// GatewayConfig configures the HTTP API listener. An empty token
// leaves the API unauthenticated.
type GatewayConfig struct {
	Host  string `json:"host"`
	Port  int    `json:"port"`
	Token string `json:"token"`
}

type WhatsAppConfig struct {
	StorePath      string `json:"store_path"`
	ShowTerminalQR bool   `json:"show_terminal_qr"`
}

// VoiceConfig configures voice note transcription through a local
// whisper.cpp binary.
type VoiceConfig struct {
	Enabled        bool   `json:"enabled"`
	Binary         string `json:"binary"`
	ModelPath      string `json:"model_path"`
	Language       string `json:"language"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type AlertsConfig struct {
	Telegram TelegramAlertConfig `json:"telegram"`
}

type TelegramAlertConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  int64  `json:"chat_id"`
}

type StorageConfig struct {
	Type        string `json:"type"`
	DatabaseURL string `json:"database_url"`
	FilePath    string `json:"file_path"`
	SSLEnabled  bool   `json:"ssl_enabled"`
}

type LoggingConfig struct {
	Level string `json:"level"`
	JSON  bool   `json:"json"`
}

func DefaultConfig() *Config {
	return &Config{
		Workspace: "~/.wabridge/workspace",
		Gateway: GatewayConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		WhatsApp: WhatsAppConfig{
			ShowTerminalQR: true,
		},
		Voice: VoiceConfig{
			Language:       "auto",
			TimeoutSeconds: 120,
		},
		Storage: StorageConfig{
			Type: "file",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads the encrypted config store, applies environment
// overrides and persists them when they changed anything.
func LoadConfig(path string) (*Config, error) {
	cfg, err := loadConfigFromStore(path)
	if err != nil {
		return nil, err
	}

	if applyEnvOverrides(cfg) {
		if err := saveConfigToStore(path, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// SaveConfig persists cfg to the encrypted store.
func SaveConfig(path string, cfg *Config) error {
	return saveConfigToStore(path, cfg)
}

// WorkspacePath expands the configured workspace directory.
func (c *Config) WorkspacePath() string {
	c.mu.RLock()
	ws := c.Workspace
	c.mu.RUnlock()

	if strings.TrimSpace(ws) == "" {
		ws = "~/.wabridge/workspace"
	}
	return expandHome(ws)
}

// SessionStorePath expands the whatsmeow credential store location.
// Empty means the store's own default.
func (c *Config) SessionStorePath() string {
	c.mu.RLock()
	path := c.WhatsApp.StorePath
	c.mu.RUnlock()

	if strings.TrimSpace(path) == "" {
		return ""
	}
	return expandHome(path)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
