package config

import "strings"

type secretAccessor struct {
	Path string
	Set  func(*Config, string)
}

var secretAccessors = []secretAccessor{
	{
		Path: "gateway.token",
		Set:  func(c *Config, v string) { c.Gateway.Token = v },
	},
	{
		Path: "alerts.telegram.token",
		Set:  func(c *Config, v string) { c.Alerts.Telegram.Token = v },
	},
	{
		Path: "storage.database_url",
		Set:  func(c *Config, v string) { c.Storage.DatabaseURL = v },
	},
}

// MaskSecret shortens a secret for display, keeping the tail so two
// tokens can still be told apart.
func MaskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 5 {
		return "*****" + value
	}
	return "*****" + value[len(value)-5:]
}

func ApplySecretUpdates(cfg *Config, updates map[string]string) {
	if cfg == nil || len(updates) == 0 {
		return
	}
	for _, accessor := range secretAccessors {
		if value, ok := updates[accessor.Path]; ok && strings.TrimSpace(value) != "" {
			accessor.Set(cfg, strings.TrimSpace(value))
		}
	}
}
