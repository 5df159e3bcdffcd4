package storage

import (
	"fmt"

	"github.com/amongo/amongo/internal/config"
	"github.com/amongo/amongo/internal/database"
	gormstorage "github.com/amongo/amongo/internal/storage/gorm"
	"github.com/amongo/amongo/internal/storage/influx"
	"github.com/amongo/amongo/internal/storage/memory"
	"github.com/amongo/amongo/internal/storage/websocket"
	"github.com/rs/zerolog"
)

// Storage types accepted in storage.type.
const (
	TypeMemory    = "memory"
	TypeSQLite    = "sqlite"
	TypePostgres  = "postgres"
	TypeWebSocket = "websocket"
	TypeInflux    = "influx"
)

// NewBackend creates a storage backend based on configuration. The backend
// is not initialised.
func NewBackend(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case TypeMemory, "":
		return memory.New(cfg.Memory), nil
	case TypeSQLite:
		return gormstorage.New(gormstorage.Dependencies{
			Connect: func(m *database.Manager) error { return m.ConnectSQLite(cfg.SQLite.Path) },
			Logger:  log,
		}), nil
	case TypePostgres:
		return gormstorage.New(gormstorage.Dependencies{
			Connect: func(m *database.Manager) error { return m.ConnectPostgres(cfg.DB) },
			Logger:  log,
		}), nil
	case TypeWebSocket:
		return websocket.New(websocket.Config{URL: cfg.WebSocket.URL, Secret: cfg.WebSocket.Secret}), nil
	case TypeInflux:
		return influx.New(cfg.Influx, log), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
