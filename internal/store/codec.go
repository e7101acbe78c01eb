package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"flowdeck/internal/types"
)

const preferencesVersion = 1

var (
	ErrEmptyPreferences       = errors.New("store: preferences document is empty")
	ErrUnsupportedPreferences = errors.New("store: preferences written by a newer flowdeck")
)

// preferencesDocument wraps the app state with a schema version. Documents
// without a version hold a bare AppState.
type preferencesDocument struct {
	Version int             `json:"version"`
	SavedAt string          `json:"saved_at,omitempty"`
	State   json.RawMessage `json:"state,omitempty"`
}

func encodePreferences(state *types.AppState, now time.Time) ([]byte, error) {
	if state == nil {
		return nil, errors.New("state is required")
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(preferencesDocument{
		Version: preferencesVersion,
		SavedAt: now.UTC().Format(time.RFC3339),
		State:   raw,
	}, "", "  ")
}

func decodePreferences(data []byte) (*types.AppState, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPreferences
	}
	var doc preferencesDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	state := &types.AppState{}
	switch {
	case doc.Version > preferencesVersion:
		return nil, fmt.Errorf("%w (version %d)", ErrUnsupportedPreferences, doc.Version)
	case doc.Version == 0:
		if err := json.Unmarshal(data, state); err != nil {
			return nil, fmt.Errorf("decode preferences: %w", err)
		}
	case len(doc.State) > 0:
		if err := json.Unmarshal(doc.State, state); err != nil {
			return nil, fmt.Errorf("decode preferences: %w", err)
		}
	}
	return state, nil
}
