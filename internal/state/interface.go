package state

import (
	"context"
	"fmt"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/database"
	"github.com/driftwatch/driftwatch/models"
)

// Store persists one MonitorState record per target plus an append-only
// event history. Load returns (nil, nil) for a missing or malformed record:
// corrupt state degrades to a fresh STARTUP, never a fatal error.
type Store interface {
	Load(ctx context.Context, targetID string) (*models.MonitorState, error)

	// Save commits the full record atomically: a crash mid-write leaves
	// either the prior record or the new one, never a torn mix.
	Save(ctx context.Context, targetID string, st models.MonitorState) error

	// AppendEvent records a tick outcome. Best-effort; callers log and
	// continue on error.
	AppendEvent(ctx context.Context, evt models.Event) error

	// RecentEvents returns up to limit events, newest first.
	RecentEvents(ctx context.Context, limit int) ([]models.Event, error)

	// Ping verifies the backend is reachable/writable.
	Ping(ctx context.Context) error

	Close() error

	// Driver returns the backend name: "file", "sqlite", or "mysql".
	Driver() string
}

// New returns the Store implementation matching cfg.Driver. SQL backends are
// migrated before use.
func New(cfg config.StateConfig) (Store, error) {
	switch cfg.Driver {
	case "file", "":
		return NewFileStore(cfg.Dir)
	case "sqlite", "sqlite3", "mysql":
		db, err := database.New(cfg)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(context.Background()); err != nil {
			db.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		return NewSQLStore(db), nil
	default:
		return nil, fmt.Errorf("unsupported state driver %q (supported: file, sqlite, mysql)", cfg.Driver)
	}
}
