package types

import "strings"

const maxRecentRuns = 10

// AppState holds operator preferences that outlive a single dashboard run.
type AppState struct {
	ActiveRunID    string   `json:"active_run_id"`
	SortDescending bool     `json:"sort_descending"`
	RecentRunIDs   []string `json:"recent_run_ids,omitempty"`
}

// TouchRun makes runID the active run and moves it to the front of the
// recent list.
func (s *AppState) TouchRun(runID string) {
	runID = strings.TrimSpace(runID)
	if s == nil || runID == "" {
		return
	}
	s.ActiveRunID = runID
	recent := make([]string, 0, len(s.RecentRunIDs)+1)
	recent = append(recent, runID)
	for _, id := range s.RecentRunIDs {
		if id != runID && len(recent) < maxRecentRuns {
			recent = append(recent, id)
		}
	}
	s.RecentRunIDs = recent
}

func (s *AppState) IsZero() bool {
	return s == nil || (s.ActiveRunID == "" && !s.SortDescending && len(s.RecentRunIDs) == 0)
}
