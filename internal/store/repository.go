package store

import (
	"context"
	"strings"

	"flowdeck/internal/types"
)

const (
	RepositoryBackendFile  = "file"
	RepositoryBackendBbolt = "bbolt"
)

// AppStateStore persists operator preferences across dashboard runs.
type AppStateStore interface {
	Load(ctx context.Context) (*types.AppState, error)
	Save(ctx context.Context, state *types.AppState) error
}

// Repository is the local preferences database.
type Repository interface {
	AppState() AppStateStore
	Backend() string
	Close() error
}

// Open picks the backend from the path: a .json file uses the plain file
// store, anything else a bbolt database.
func Open(path string) (Repository, error) {
	if strings.HasSuffix(strings.ToLower(strings.TrimSpace(path)), ".json") {
		return NewFileRepository(path), nil
	}
	return NewBboltRepository(path)
}

// UpdateAppState loads, mutates and saves the app state.
func UpdateAppState(ctx context.Context, s AppStateStore, mutate func(*types.AppState)) error {
	state, err := s.Load(ctx)
	if err != nil {
		return err
	}
	mutate(state)
	return s.Save(ctx, state)
}
