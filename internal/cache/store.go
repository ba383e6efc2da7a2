package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Snapshot is the on-disk shape of a cached router resource. The filename
// pattern and JSON layout are a compatibility contract with previously
// written cache files: data/cache_{serverId}_{resource}.json.
type Snapshot struct {
	Timestamp string                   `json:"timestamp"`
	Data      []map[string]interface{} `json:"data"`
}

// Store persists per-(server, resource) snapshots as JSON files under one
// data directory. Snapshots are derived state: a write fully replaces the
// previous file, and a read failure is reported as cache-absent because the
// snapshot can always be regenerated by a live fetch.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the data directory the store writes under.
func (s *Store) Dir() string {
	return s.dir
}

// SnapshotPath returns the cache file path for a server and resource.
func (s *Store) SnapshotPath(serverID int, resource string) string {
	return filepath.Join(s.dir, fmt.Sprintf("cache_%d_%s.json", serverID, resource))
}

// Write replaces the snapshot for (serverID, resource) with the given rows,
// stamped with the current time. No merging with the previous snapshot.
func (s *Store) Write(serverID int, resource string, rows []map[string]interface{}) (*Snapshot, error) {
	snap := &Snapshot{
		Timestamp: time.Now().Format(time.RFC3339),
		Data:      rows,
	}
	if snap.Data == nil {
		snap.Data = []map[string]interface{}{}
	}

	out, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(s.SnapshotPath(serverID, resource), out, 0644); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	return snap, nil
}

// Read loads the snapshot for (serverID, resource). A missing or unreadable
// file is not an error: it reports found=false and the caller treats the
// cache as absent.
func (s *Store) Read(serverID int, resource string) (*Snapshot, bool) {
	raw, err := os.ReadFile(s.SnapshotPath(serverID, resource))
	if err != nil {
		return nil, false
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false
	}
	return &snap, true
}
