package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// applyEnvOverrides applies selected runtime environment variables into config.
// It returns true when any value changed so callers can persist updated config.
func applyEnvOverrides(cfg *Config) bool {
	if cfg == nil {
		return false
	}

	changed := false

	setString := func(dst *string, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		if *dst != value {
			*dst = value
			changed = true
		}
	}
	setInt := func(dst *int, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return
		}
		if *dst != parsed {
			*dst = parsed
			changed = true
		}
	}
	setInt64 := func(dst *int64, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return
		}
		if *dst != parsed {
			*dst = parsed
			changed = true
		}
	}
	setBool := func(dst *bool, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return
		}
		if *dst != parsed {
			*dst = parsed
			changed = true
		}
	}

	env := func(keys ...string) string {
		for _, key := range keys {
			if value := strings.TrimSpace(os.Getenv(key)); value != "" {
				return value
			}
		}
		return ""
	}

	setString(&cfg.Workspace, env("WABRIDGE_WORKSPACE"))

	setString(&cfg.Storage.Type, env("WABRIDGE_STORAGE_TYPE"))
	setString(&cfg.Storage.DatabaseURL, env("WABRIDGE_STORAGE_DATABASE_URL", "WABRIDGE_CONFIG_DATABASE_URL"))
	setString(&cfg.Storage.FilePath, env("WABRIDGE_STORAGE_FILE_PATH"))
	setBool(&cfg.Storage.SSLEnabled, env("WABRIDGE_STORAGE_SSL_ENABLED"))

	// If storage type is postgres but no database URL was resolved yet,
	// build one from individual POSTGRES_* env vars (matches resolveConfigStoreTarget logic).
	if strings.EqualFold(cfg.Storage.Type, "postgres") && strings.TrimSpace(cfg.Storage.DatabaseURL) == "" {
		pgUser := strings.TrimSpace(os.Getenv("POSTGRES_USER"))
		pgPass := strings.TrimSpace(os.Getenv("POSTGRES_PASSWORD"))
		pgDB := strings.TrimSpace(os.Getenv("POSTGRES_DB"))
		pgHost := strings.TrimSpace(os.Getenv("POSTGRES_HOST"))
		if pgHost == "" {
			pgHost = "postgres"
		}
		if pgUser != "" && pgPass != "" && pgDB != "" {
			built := fmt.Sprintf("postgres://%s:%s@%s:5432/%s?sslmode=disable", pgUser, pgPass, pgHost, pgDB)
			setString(&cfg.Storage.DatabaseURL, built)
		}
	}

	setString(&cfg.Gateway.Token, env("WABRIDGE_GATEWAY_TOKEN", "GATEWAY_TOKEN"))
	setString(&cfg.Gateway.Host, env("WABRIDGE_GATEWAY_HOST"))
	setInt(&cfg.Gateway.Port, env("WABRIDGE_GATEWAY_PORT"))

	setString(&cfg.WhatsApp.StorePath, env("WABRIDGE_WHATSAPP_STORE_PATH"))
	setBool(&cfg.WhatsApp.ShowTerminalQR, env("WABRIDGE_WHATSAPP_SHOW_TERMINAL_QR"))

	setBool(&cfg.Voice.Enabled, env("WABRIDGE_VOICE_ENABLED"))
	setString(&cfg.Voice.Binary, env("WABRIDGE_VOICE_BINARY"))
	setString(&cfg.Voice.ModelPath, env("WABRIDGE_VOICE_MODEL_PATH"))
	setString(&cfg.Voice.Language, env("WABRIDGE_VOICE_LANGUAGE"))
	setInt(&cfg.Voice.TimeoutSeconds, env("WABRIDGE_VOICE_TIMEOUT_SECONDS"))

	setBool(&cfg.Alerts.Telegram.Enabled, env("WABRIDGE_ALERTS_TELEGRAM_ENABLED"))
	setString(&cfg.Alerts.Telegram.Token, env("WABRIDGE_ALERTS_TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN"))
	setInt64(&cfg.Alerts.Telegram.ChatID, env("WABRIDGE_ALERTS_TELEGRAM_CHAT_ID"))

	setString(&cfg.Logging.Level, env("WABRIDGE_LOG_LEVEL"))
	setBool(&cfg.Logging.JSON, env("WABRIDGE_LOG_JSON"))

	return changed
}
