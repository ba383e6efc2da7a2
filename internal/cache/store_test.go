package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestSnapshotPath(t *testing.T) {
	store := newTestStore(t)

	got := store.SnapshotPath(3, "secrets")
	want := filepath.Join(store.Dir(), "cache_3_secrets.json")
	if got != want {
		t.Errorf("SnapshotPath() = %q, want %q", got, want)
	}
}

func TestWriteRead(t *testing.T) {
	store := newTestStore(t)

	rows := []map[string]interface{}{
		{"name": "bob01", "profile": "10M", "disabled": "false"},
		{"name": "alice02", "profile": "20M", "disabled": "true"},
	}
	snap, err := store.Write(1, "secrets", rows)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := time.Parse(time.RFC3339, snap.Timestamp); err != nil {
		t.Errorf("Write() timestamp %q is not RFC3339: %v", snap.Timestamp, err)
	}

	back, found := store.Read(1, "secrets")
	if !found {
		t.Fatal("Read() found = false after Write()")
	}
	if len(back.Data) != 2 {
		t.Fatalf("Read() returned %d rows, want 2", len(back.Data))
	}
	if back.Data[0]["name"] != "bob01" {
		t.Errorf("row 0 name = %v, want bob01", back.Data[0]["name"])
	}
	if back.Timestamp != snap.Timestamp {
		t.Errorf("Read() timestamp = %q, want %q", back.Timestamp, snap.Timestamp)
	}
}

func TestWriteFullyReplaces(t *testing.T) {
	store := newTestStore(t)

	first := []map[string]interface{}{
		{"name": "bob01"}, {"name": "alice02"}, {"name": "carol03"},
	}
	if _, err := store.Write(1, "secrets", first); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	second := []map[string]interface{}{{"name": "dave04"}}
	if _, err := store.Write(1, "secrets", second); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	back, found := store.Read(1, "secrets")
	if !found {
		t.Fatal("Read() found = false")
	}
	if len(back.Data) != 1 {
		t.Fatalf("Read() returned %d rows after overwrite, want 1", len(back.Data))
	}
	if back.Data[0]["name"] != "dave04" {
		t.Errorf("surviving row = %v, want dave04", back.Data[0]["name"])
	}
}

func TestReadAbsent(t *testing.T) {
	store := newTestStore(t)

	if _, found := store.Read(99, "secrets"); found {
		t.Error("Read() found = true for a server that was never written")
	}
}

func TestReadCorruptTreatedAsAbsent(t *testing.T) {
	store := newTestStore(t)

	path := store.SnapshotPath(1, "secrets")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	if _, found := store.Read(1, "secrets"); found {
		t.Error("Read() found = true for a corrupt snapshot")
	}
}

func TestWriteEmptyRows(t *testing.T) {
	store := newTestStore(t)

	snap, err := store.Write(1, "pools", nil)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if snap.Data == nil {
		t.Error("Write(nil) should persist an empty data array, not null")
	}

	back, found := store.Read(1, "pools")
	if !found {
		t.Fatal("Read() found = false")
	}
	if len(back.Data) != 0 {
		t.Errorf("Read() returned %d rows, want 0", len(back.Data))
	}
}

func TestNetworkStatusMergeNeverPurges(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateNetworkStatus(map[string]NetworkStatus{
		StatusKey(1, "bob01"):   {IsOnline: true, LastCheck: "2026-01-01T00:00:00Z", Latency: "2ms"},
		StatusKey(1, "alice02"): {IsOnline: false, LastCheck: "2026-01-01T00:00:00Z"},
	})
	if err != nil {
		t.Fatalf("UpdateNetworkStatus() error = %v", err)
	}

	// Second sweep only saw bob01; alice02 must survive untouched.
	err = store.UpdateNetworkStatus(map[string]NetworkStatus{
		StatusKey(1, "bob01"): {IsOnline: false, LastCheck: "2026-01-01T00:05:00Z"},
	})
	if err != nil {
		t.Fatalf("UpdateNetworkStatus() error = %v", err)
	}

	statuses := store.ReadNetworkStatus()
	if len(statuses) != 2 {
		t.Fatalf("ReadNetworkStatus() returned %d entries, want 2", len(statuses))
	}
	if statuses["1_bob01"].IsOnline {
		t.Error("bob01 should be overwritten to offline")
	}
	if statuses["1_bob01"].LastCheck != "2026-01-01T00:05:00Z" {
		t.Errorf("bob01 lastCheck = %q, want updated", statuses["1_bob01"].LastCheck)
	}
	if statuses["1_alice02"].LastCheck != "2026-01-01T00:00:00Z" {
		t.Error("alice02 entry was modified by an unrelated sweep")
	}
}

func TestReadNetworkStatusAbsent(t *testing.T) {
	store := newTestStore(t)

	statuses := store.ReadNetworkStatus()
	if statuses == nil || len(statuses) != 0 {
		t.Errorf("ReadNetworkStatus() = %v, want empty map", statuses)
	}
}
