package handlers

import (
	"net/http"
	"strconv"

	"github.com/lumenisp/panel/internal/cache"
)

// GetNetworkStatus serves the monitor's latest observations. With server_id
// set, only that server's entries are returned.
func (h *Handler) GetNetworkStatus(w http.ResponseWriter, r *http.Request) {
	statuses := h.cache.ReadNetworkStatus()

	serverIDStr := r.URL.Query().Get("server_id")
	if serverIDStr != "" {
		serverID, err := strconv.Atoi(serverIDStr)
		if err != nil {
			h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid server_id"})
			return
		}
		prefix := strconv.Itoa(serverID) + "_"
		filtered := make(map[string]cache.NetworkStatus)
		for key, status := range statuses {
			if len(key) > len(prefix) && key[:len(prefix)] == prefix {
				filtered[key] = status
			}
		}
		statuses = filtered
	}

	h.sendJSON(w, http.StatusOK, Response{Success: true, Data: statuses})
}

// GetNetworkStatusStats summarizes online/offline counts across all
// monitored secrets.
func (h *Handler) GetNetworkStatusStats(w http.ResponseWriter, r *http.Request) {
	statuses := h.cache.ReadNetworkStatus()

	var online, offline int
	for _, status := range statuses {
		if status.IsOnline {
			online++
		} else {
			offline++
		}
	}

	h.sendJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]int{
			"monitored": len(statuses),
			"online":    online,
			"offline":   offline,
		},
	})
}
