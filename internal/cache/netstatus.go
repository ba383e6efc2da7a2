package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const networkStatusFile = "network_status.json"

// NetworkStatus is one monitor observation for a single secret, keyed in the
// status map as "{serverId}_{secretName}".
type NetworkStatus struct {
	IsOnline  bool   `json:"isOnline"`
	LastCheck string `json:"lastCheck"`
	Latency   string `json:"latency,omitempty"`
}

// StatusKey builds the map key for a server and secret name.
func StatusKey(serverID int, secretName string) string {
	return fmt.Sprintf("%d_%s", serverID, secretName)
}

func (s *Store) networkStatusPath() string {
	return filepath.Join(s.dir, networkStatusFile)
}

// ReadNetworkStatus loads the whole status map. A missing or corrupt file
// yields an empty map.
func (s *Store) ReadNetworkStatus() map[string]NetworkStatus {
	statuses := make(map[string]NetworkStatus)
	raw, err := os.ReadFile(s.networkStatusPath())
	if err != nil {
		return statuses
	}
	if err := json.Unmarshal(raw, &statuses); err != nil {
		return make(map[string]NetworkStatus)
	}
	return statuses
}

// UpdateNetworkStatus merges the given entries into the status map and
// persists the whole map in one write. Existing keys are overwritten, keys
// not present in entries are kept: stale entries are never purged.
func (s *Store) UpdateNetworkStatus(entries map[string]NetworkStatus) error {
	statuses := s.ReadNetworkStatus()
	for key, entry := range entries {
		statuses[key] = entry
	}

	out, err := json.Marshal(statuses)
	if err != nil {
		return fmt.Errorf("marshal network status: %w", err)
	}
	if err := os.WriteFile(s.networkStatusPath(), out, 0644); err != nil {
		return fmt.Errorf("write network status: %w", err)
	}
	return nil
}
