package state

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/driftwatch/driftwatch/models"
)

const eventsFile = "events.jsonl"

// FileStore keeps one <dir>/<target-id>.json document per target and an
// append-only events.jsonl history. This is the default backend: the state
// directory can live inside a repo and be committed by the CI workflow that
// triggers the runs.
type FileStore struct {
	dir string
}

// NewFileStore creates the state directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("state dir is required for the file driver")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) Driver() string { return "file" }

func (f *FileStore) Close() error { return nil }

// Ping verifies the directory exists and is writable.
func (f *FileStore) Ping(ctx context.Context) error {
	probe, err := os.CreateTemp(f.dir, ".ping-*")
	if err != nil {
		return fmt.Errorf("state directory not writable: %w", err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}

func (f *FileStore) statePath(targetID string) string {
	return filepath.Join(f.dir, safeFilename(targetID)+".json")
}

// Load reads the target's record. Missing files and unparseable JSON both
// return (nil, nil) so the next tick starts over with STARTUP.
func (f *FileStore) Load(ctx context.Context, targetID string) (*models.MonitorState, error) {
	data, err := os.ReadFile(f.statePath(targetID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading state for %s: %w", targetID, err)
	}
	var st models.MonitorState
	if err := json.Unmarshal(data, &st); err != nil {
		slog.Warn("Discarding malformed state record", "target", targetID, "error", err)
		return nil, nil
	}
	return &st, nil
}

// Save writes the record to a temp file in the same directory and renames it
// over the old one, so a crash mid-write cannot leave a torn record.
func (f *FileStore) Save(ctx context.Context, targetID string, st models.MonitorState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("serialising state for %s: %w", targetID, err)
	}

	final := f.statePath(targetID)
	tmp, err := os.CreateTemp(f.dir, safeFilename(targetID)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing state for %s: %w", targetID, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing state for %s: %w", targetID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("committing state for %s: %w", targetID, err)
	}
	return nil
}

// AppendEvent appends one JSON line to events.jsonl.
func (f *FileStore) AppendEvent(ctx context.Context, evt models.Event) error {
	if evt.CreatedAt == "" {
		evt.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	line, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("serialising event: %w", err)
	}

	fh, err := os.OpenFile(filepath.Join(f.dir, eventsFile),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening events file: %w", err)
	}
	defer fh.Close()

	if _, err := fh.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending event: %w", err)
	}
	return nil
}

// RecentEvents reads events.jsonl and returns the last limit entries, newest
// first. Unparseable lines are skipped.
func (f *FileStore) RecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	fh, err := os.Open(filepath.Join(f.dir, eventsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening events file: %w", err)
	}
	defer fh.Close()

	var all []models.Event
	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var evt models.Event
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			slog.Debug("Skipping malformed event line", "error", err)
			continue
		}
		all = append(all, evt)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading events file: %w", err)
	}

	// Newest first.
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// safeFilename maps a target id onto a filesystem-safe name.
func safeFilename(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.':
			return r
		default:
			return '-'
		}
	}, id)
}
