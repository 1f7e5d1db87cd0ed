package catalog

import (
	"os"
	"sync"
	"testing"
)

func TestStore_InitialLoadAndSnapshot(t *testing.T) {
	store, err := NewStore(fixturePaths(t))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	snap := store.Snapshot()
	if snap.Len() != 2 {
		t.Errorf("Len() = %d, want 2", snap.Len())
	}
}

func TestStore_ReloadKeepsOldSnapshotOnFailure(t *testing.T) {
	paths := fixturePaths(t)
	store, err := NewStore(paths)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	before := store.Snapshot()

	// Corrupt the catalog on disk, then attempt a reload.
	if err := os.WriteFile(paths.Catalog, []byte(`[{"slug":`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := store.Reload(); err == nil {
		t.Fatal("Reload() = nil error for corrupt catalog")
	}

	if store.Snapshot() != before {
		t.Error("failed reload must leave the active snapshot untouched")
	}
}

func TestStore_ReloadSwapsSnapshot(t *testing.T) {
	paths := fixturePaths(t)
	store, err := NewStore(paths)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	before := store.Snapshot()

	if err := store.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	after := store.Snapshot()
	if after == before {
		t.Error("Reload() did not swap in a fresh snapshot")
	}
	if after.Len() != before.Len() {
		t.Errorf("reloaded Len() = %d, want %d", after.Len(), before.Len())
	}
}

func TestStore_ConcurrentReads(t *testing.T) {
	store, err := NewStore(fixturePaths(t))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				snap := store.Snapshot()
				if snap.Len() != 2 {
					t.Error("snapshot observed in inconsistent state")
					return
				}
				if j%10 == 0 {
					store.Swap(snap)
				}
			}
		}()
	}
	wg.Wait()
}

func TestStore_SwapReturnsPrevious(t *testing.T) {
	snapA := &Snapshot{modules: []*ModuleRecord{{Slug: "a", Title: "A"}}}
	snapB := &Snapshot{modules: []*ModuleRecord{{Slug: "b", Title: "B"}}}

	store := NewStoreWithSnapshot(snapA)
	if prev := store.Swap(snapB); prev != snapA {
		t.Error("Swap() did not return the previous snapshot")
	}
	if store.Snapshot() != snapB {
		t.Error("Swap() did not install the new snapshot")
	}

	if err := store.Reload(); err == nil {
		t.Error("Reload() without paths should fail")
	}
}
