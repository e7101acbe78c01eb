package activity

import (
	"fmt"
	"sync"
	"testing"

	"flowdeck/internal/types"
)

func TestStoreMergeIsIdempotent(t *testing.T) {
	store := NewStore()
	record := types.ActivityRecord{ID: "e1", ActivityName: "fetch", StartedTime: "2024-05-01T10:00:02Z"}

	if got := store.Merge(record); got != MergeAdded {
		t.Fatalf("expected first merge to add, got %v", got)
	}
	replay := record
	replay.ActivityName = "changed"
	if got := store.Merge(replay); got != MergeDuplicate {
		t.Fatalf("expected duplicate, got %v", got)
	}
	if store.Len() != 1 || store.Revision() != 1 {
		t.Fatalf("expected one record at revision 1, got len=%d rev=%d", store.Len(), store.Revision())
	}
	kept, ok := store.Get("e1")
	if !ok || kept.ActivityName != "fetch" {
		t.Fatalf("expected first arrival to win, got %#v", kept)
	}
}

func TestStoreRejectsBlankID(t *testing.T) {
	store := NewStore()
	for _, id := range []string{"", "   "} {
		if got := store.Merge(types.ActivityRecord{ID: id, ActivityName: "x"}); got != MergeRejected {
			t.Fatalf("expected %q to be rejected, got %v", id, got)
		}
	}
	if store.Len() != 0 || store.Revision() != 0 {
		t.Fatalf("expected empty store")
	}
}

func TestStoreTrimsIDBeforeDedup(t *testing.T) {
	store := NewStore()
	store.Merge(types.ActivityRecord{ID: " e1 "})
	if got := store.Merge(types.ActivityRecord{ID: "e1"}); got != MergeDuplicate {
		t.Fatalf("expected trimmed id to dedupe, got %v", got)
	}
	if !store.Has("e1") {
		t.Fatalf("expected store to report e1")
	}
}

func TestStoreDedupUnderInterleaving(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				store.Merge(types.ActivityRecord{ID: fmt.Sprintf("e%d", i)})
			}
		}()
	}
	wg.Wait()
	if store.Len() != 50 {
		t.Fatalf("expected 50 distinct records, got %d", store.Len())
	}
	if store.Revision() != 50 {
		t.Fatalf("expected revision 50, got %d", store.Revision())
	}
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	store := NewStore()
	store.Merge(types.ActivityRecord{ID: "e1", ActivityName: "fetch"})
	records, revision := store.Snapshot()
	records[0].ActivityName = "mutated"
	if revision != 1 {
		t.Fatalf("expected revision 1, got %d", revision)
	}
	kept, _ := store.Get("e1")
	if kept.ActivityName != "fetch" {
		t.Fatalf("expected snapshot mutation not to leak, got %q", kept.ActivityName)
	}
}
