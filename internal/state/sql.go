package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/driftwatch/driftwatch/internal/database"
	"github.com/driftwatch/driftwatch/models"
)

// SQLStore persists monitor state through the shared database helper, for
// sqlite and mysql backends. Upserts are single statements, which gives the
// same no-torn-record guarantee the file backend gets from rename.
type SQLStore struct {
	db database.DB
}

// NewSQLStore wraps an opened, migrated database.
func NewSQLStore(db database.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Driver() string { return s.db.Driver() }

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.Ping(ctx) }

func (s *SQLStore) Close() error { return s.db.Close() }

// stateRow is the monitor_state table shape. Timestamps are RFC3339 text.
type stateRow struct {
	TargetID          string `db:"target_id"`
	LastValue         string `db:"last_value"`
	LastLink          string `db:"last_link"`
	LastNote          string `db:"last_note"`
	LastCheckedAt     string `db:"last_checked_at"`
	LastHealthcheckAt string `db:"last_healthcheck_at"`
	Initialized       bool   `db:"initialized"`
}

func (s *SQLStore) Load(ctx context.Context, targetID string) (*models.MonitorState, error) {
	var row stateRow
	err := s.db.Get(ctx, &row,
		`SELECT target_id, last_value, last_link, last_note, last_checked_at, last_healthcheck_at, initialized
		   FROM monitor_state WHERE target_id = ?`, targetID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading state for %s: %w", targetID, err)
	}

	st := models.MonitorState{
		LastValue:   row.LastValue,
		LastLink:    row.LastLink,
		LastNote:    row.LastNote,
		Initialized: row.Initialized,
	}
	st.LastCheckedAt, err = parseStoredTime(row.LastCheckedAt)
	if err != nil {
		slog.Warn("Discarding state record with malformed timestamp",
			"target", targetID, "column", "last_checked_at", "error", err)
		return nil, nil
	}
	st.LastHealthcheckAt, err = parseStoredTime(row.LastHealthcheckAt)
	if err != nil {
		slog.Warn("Discarding state record with malformed timestamp",
			"target", targetID, "column", "last_healthcheck_at", "error", err)
		return nil, nil
	}
	return &st, nil
}

func (s *SQLStore) Save(ctx context.Context, targetID string, st models.MonitorState) error {
	row := stateRow{
		TargetID:          targetID,
		LastValue:         st.LastValue,
		LastLink:          st.LastLink,
		LastNote:          st.LastNote,
		LastCheckedAt:     formatStoredTime(st.LastCheckedAt),
		LastHealthcheckAt: formatStoredTime(st.LastHealthcheckAt),
		Initialized:       st.Initialized,
	}
	if err := s.db.Upsert(ctx, "monitor_state", row, []string{"target_id"}); err != nil {
		return fmt.Errorf("saving state for %s: %w", targetID, err)
	}
	return nil
}

func (s *SQLStore) AppendEvent(ctx context.Context, evt models.Event) error {
	if evt.CreatedAt == "" {
		evt.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if _, err := s.db.Insert(ctx, "monitor_events", evt); err != nil {
		return fmt.Errorf("recording event for %s: %w", evt.TargetID, err)
	}
	return nil
}

func (s *SQLStore) RecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []models.Event
	err := s.db.Select(ctx, &events,
		`SELECT id, target_id, kind, old_value, new_value, message, created_at
		   FROM monitor_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}

// parseStoredTime accepts empty ("never") as the zero time.
func parseStoredTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func formatStoredTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
