package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"flowdeck/internal/types"
)

func TestFileAppStateStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileAppStateStore(path)
	store.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }

	state, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !state.IsZero() {
		t.Fatalf("expected empty state")
	}

	state.TouchRun("run-7")
	state.SortDescending = true
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), `"version": 1`) || !strings.Contains(string(raw), `"saved_at": "2024-05-01T10:00:00Z"`) {
		t.Fatalf("unexpected document %s", raw)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.ActiveRunID != "run-7" || !loaded.SortDescending {
		t.Fatalf("unexpected reload state: %#v", loaded)
	}
}

func TestFileAppStateStoreReadsBareState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{"active_run_id":"run-3","sort_descending":true}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := NewFileAppStateStore(path).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ActiveRunID != "run-3" || !loaded.SortDescending {
		t.Fatalf("unexpected state: %#v", loaded)
	}
}

func TestFileAppStateStoreRejectsEmptyAndNewerDocuments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileAppStateStore(path).Load(context.Background()); !errors.Is(err, ErrEmptyPreferences) {
		t.Fatalf("expected empty preferences error, got %v", err)
	}
	if err := os.WriteFile(path, []byte(`{"version":9,"state":{}}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileAppStateStore(path).Load(context.Background()); !errors.Is(err, ErrUnsupportedPreferences) {
		t.Fatalf("expected unsupported version error, got %v", err)
	}
}

func TestFileAppStateStoreSaveRequiresState(t *testing.T) {
	store := NewFileAppStateStore(filepath.Join(t.TempDir(), "state.json"))
	if err := store.Save(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil state")
	}
}

func TestFileAppStateStoreHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewFileAppStateStore(filepath.Join(t.TempDir(), "state.json"))
	if err := store.Save(ctx, &types.AppState{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled save, got %v", err)
	}
}
