package types

import (
	"fmt"
	"testing"
)

func TestAppStateTouchRunMovesToFront(t *testing.T) {
	state := &AppState{RecentRunIDs: []string{"run-1", "run-2", "run-3"}}
	state.TouchRun(" run-3 ")
	if state.ActiveRunID != "run-3" {
		t.Fatalf("expected active run-3, got %q", state.ActiveRunID)
	}
	want := []string{"run-3", "run-1", "run-2"}
	for i := range want {
		if state.RecentRunIDs[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, state.RecentRunIDs)
		}
	}
}

func TestAppStateTouchRunCapsRecents(t *testing.T) {
	state := &AppState{}
	for i := 0; i < 15; i++ {
		state.TouchRun(fmt.Sprintf("run-%d", i))
	}
	if len(state.RecentRunIDs) != maxRecentRuns {
		t.Fatalf("expected %d recents, got %d", maxRecentRuns, len(state.RecentRunIDs))
	}
	if state.RecentRunIDs[0] != "run-14" {
		t.Fatalf("expected newest first, got %v", state.RecentRunIDs)
	}
	state.TouchRun("")
	if state.ActiveRunID != "run-14" {
		t.Fatalf("expected blank touch to be ignored")
	}
}
