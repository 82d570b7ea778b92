package repositories

import (
	"database/sql"
	"testing"

	"autotidal/internal/shared"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func TestLookupEmpty(t *testing.T) {
	store := NewStateStore(testDB(t))

	state, err := store.Lookup("pl1")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if state != nil {
		t.Fatalf("Lookup() = %+v, want nil for unknown playlist", state)
	}
}

func TestBeginAndLookup(t *testing.T) {
	store := NewStateStore(testDB(t))

	if err := store.Begin("pl1", "run-1", "dest-uuid", "Favorites version 2"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	state, err := store.Lookup("pl1")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if state == nil {
		t.Fatal("Lookup() = nil, want recorded state")
	}
	if state.RunID != "run-1" || state.DestPlaylistID != "dest-uuid" || state.DestPlaylistName != "Favorites version 2" {
		t.Errorf("Lookup() = %+v", state)
	}
	if state.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}
}

func TestBeginReplacesPreviousRun(t *testing.T) {
	store := NewStateStore(testDB(t))

	if err := store.Begin("pl1", "run-1", "dest-1", "Favorites"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := store.MarkAdded("pl1", "Song|Artist"); err != nil {
		t.Fatalf("MarkAdded() error = %v", err)
	}

	// A fresh run for the same playlist starts with an empty added set.
	if err := store.Begin("pl1", "run-2", "dest-2", "Favorites version 2"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	state, err := store.Lookup("pl1")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if state.RunID != "run-2" || state.DestPlaylistID != "dest-2" {
		t.Errorf("Lookup() = %+v, want run-2 state", state)
	}

	keys, err := store.AddedKeys("pl1")
	if err != nil {
		t.Fatalf("AddedKeys() error = %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("AddedKeys() = %v, want empty after new Begin", keys)
	}
}

func TestMarkAddedAndAddedKeys(t *testing.T) {
	store := NewStateStore(testDB(t))

	if err := store.Begin("pl1", "run-1", "dest-1", "Favorites"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	keys := []string{"Song A|Artist A", "Song B|Artist B", "Song A|Artist A"}
	for _, key := range keys {
		if err := store.MarkAdded("pl1", key); err != nil {
			t.Fatalf("MarkAdded(%q) error = %v", key, err)
		}
	}

	added, err := store.AddedKeys("pl1")
	if err != nil {
		t.Fatalf("AddedKeys() error = %v", err)
	}
	if len(added) != 2 {
		t.Fatalf("AddedKeys() has %d keys, want 2 (duplicates collapse)", len(added))
	}
	if _, ok := added["Song A|Artist A"]; !ok {
		t.Error("AddedKeys() missing Song A|Artist A")
	}

	// Keys are scoped per playlist.
	other, err := store.AddedKeys("pl2")
	if err != nil {
		t.Fatalf("AddedKeys(pl2) error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("AddedKeys(pl2) = %v, want empty", other)
	}
}

func TestClear(t *testing.T) {
	store := NewStateStore(testDB(t))

	if err := store.Begin("pl1", "run-1", "dest-1", "Favorites"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := store.MarkAdded("pl1", "Song|Artist"); err != nil {
		t.Fatalf("MarkAdded() error = %v", err)
	}

	if err := store.Clear("pl1"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	state, err := store.Lookup("pl1")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if state != nil {
		t.Errorf("Lookup() = %+v after Clear, want nil", state)
	}

	keys, err := store.AddedKeys("pl1")
	if err != nil {
		t.Fatalf("AddedKeys() error = %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("AddedKeys() = %v after Clear, want empty", keys)
	}
}

func TestNilStoreIsNoop(t *testing.T) {
	var store *StateStore

	if err := store.Begin("pl1", "run-1", "dest-1", "Favorites"); err != nil {
		t.Errorf("nil Begin() error = %v", err)
	}
	if err := store.MarkAdded("pl1", "k"); err != nil {
		t.Errorf("nil MarkAdded() error = %v", err)
	}
	if err := store.Clear("pl1"); err != nil {
		t.Errorf("nil Clear() error = %v", err)
	}
	if state, err := store.Lookup("pl1"); err != nil || state != nil {
		t.Errorf("nil Lookup() = %v, %v", state, err)
	}
	if keys, err := store.AddedKeys("pl1"); err != nil || keys != nil {
		t.Errorf("nil AddedKeys() = %v, %v", keys, err)
	}
}
