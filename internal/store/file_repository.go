package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"flowdeck/internal/types"
)

type fileRepository struct {
	appState *FileAppStateStore
}

func NewFileRepository(path string) Repository {
	return &fileRepository{appState: NewFileAppStateStore(path)}
}

func (r *fileRepository) AppState() AppStateStore {
	return r.appState
}

func (r *fileRepository) Backend() string {
	return RepositoryBackendFile
}

func (r *fileRepository) Close() error {
	return nil
}

// FileAppStateStore keeps preferences in a single JSON document, replaced
// atomically on every save.
type FileAppStateStore struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

func NewFileAppStateStore(path string) *FileAppStateStore {
	return &FileAppStateStore{path: path, now: time.Now}
}

func (s *FileAppStateStore) Load(ctx context.Context) (*types.AppState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &types.AppState{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodePreferences(data)
}

func (s *FileAppStateStore) Save(ctx context.Context, state *types.AppState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodePreferences(state, s.now())
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return replaceFile(s.path, data)
}

// replaceFile writes data beside path and renames it into place.
func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
