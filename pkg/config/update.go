package config

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"strings"
)

// EnsureGatewayToken generates an API token when none is set. The
// second return tells the caller whether the config must be persisted.
func (c *Config) EnsureGatewayToken() (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if strings.TrimSpace(c.Gateway.Token) != "" {
		return "", false, nil
	}

	token, err := generateToken(24)
	if err != nil {
		return "", false, err
	}

	c.Gateway.Token = token
	return token, true, nil
}

func (c *Config) RotateGatewayToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	token, err := generateToken(24)
	if err != nil {
		return "", err
	}

	c.Gateway.Token = token
	return token, nil
}

func generateToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ApplyUpdate copies the non-secret fields of update into c, then the
// provided secrets. Secrets absent from secretUpdates are preserved.
func (c *Config) ApplyUpdate(update *Config, secretUpdates map[string]string) {
	if c == nil || update == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.Workspace = update.Workspace

	c.Gateway.Host = update.Gateway.Host
	c.Gateway.Port = update.Gateway.Port

	c.WhatsApp.StorePath = update.WhatsApp.StorePath
	c.WhatsApp.ShowTerminalQR = update.WhatsApp.ShowTerminalQR

	c.Voice.Enabled = update.Voice.Enabled
	c.Voice.Binary = update.Voice.Binary
	c.Voice.ModelPath = update.Voice.ModelPath
	c.Voice.Language = update.Voice.Language
	c.Voice.TimeoutSeconds = update.Voice.TimeoutSeconds

	c.Alerts.Telegram.Enabled = update.Alerts.Telegram.Enabled
	c.Alerts.Telegram.ChatID = update.Alerts.Telegram.ChatID

	c.Storage.Type = update.Storage.Type
	c.Storage.FilePath = update.Storage.FilePath
	c.Storage.SSLEnabled = update.Storage.SSLEnabled

	c.Logging.Level = update.Logging.Level
	c.Logging.JSON = update.Logging.JSON

	ApplySecretUpdates(c, secretUpdates)
}

func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, err := json.Marshal(c)
	if err != nil {
		return DefaultConfig()
	}
	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		return DefaultConfig()
	}
	return &clone
}
