package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"flowdeck/internal/types"
)

const lockTimeout = 2 * time.Second

var ErrStoreLocked = errors.New("store: preferences database is in use by another flowdeck process")

var (
	bucketPreferences = []byte("preferences")
	keyAppState       = []byte("app_state")
)

type bboltRepository struct {
	db       *bolt.DB
	appState *bboltAppStateStore
}

// NewBboltRepository opens (creating if needed) the preferences database at
// path. A second process holding the file gets ErrStoreLocked.
func NewBboltRepository(path string) (Repository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("repository db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: lockTimeout})
	if errors.Is(err, bolt.ErrTimeout) {
		return nil, fmt.Errorf("%w: %s", ErrStoreLocked, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open preferences %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPreferences)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &bboltRepository{db: db, appState: &bboltAppStateStore{db: db, now: time.Now}}, nil
}

func (r *bboltRepository) AppState() AppStateStore {
	return r.appState
}

func (r *bboltRepository) Backend() string {
	return RepositoryBackendBbolt
}

func (r *bboltRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

type bboltAppStateStore struct {
	db  *bolt.DB
	now func() time.Time
}

func (s *bboltAppStateStore) Load(ctx context.Context) (*types.AppState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var raw []byte
	if err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucketPreferences); b != nil {
			// Values are only valid inside the transaction.
			raw = append([]byte(nil), b.Get(keyAppState)...)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return &types.AppState{}, nil
	}
	return decodePreferences(raw)
}

func (s *bboltAppStateStore) Save(ctx context.Context, state *types.AppState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodePreferences(state, s.now())
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPreferences)
		if b == nil {
			return errors.New("preferences bucket missing")
		}
		return b.Put(keyAppState, data)
	})
}
