package storage

import (
	"fmt"

	"github.com/vkick/wabridge/pkg/storage/file"
	"github.com/vkick/wabridge/pkg/storage/postgres"
)

// NewStorage creates a Storage implementation based on the provided configuration.
// Supported types: "file", "postgres"
func NewStorage(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "file":
		return file.NewFileStorage(cfg.FilePath)
	case "postgres":
		return postgres.NewPostgresStorage(cfg.DatabaseURL, cfg.SSLEnabled, cfg.MaxIdleConns, cfg.MaxOpenConns, cfg.MaxLifetime)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s (supported: file, postgres)", cfg.Type)
	}
}
