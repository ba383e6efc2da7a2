package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lumenisp/panel/internal/cache"
)

func seedNetworkStatus(t *testing.T, h *Handler) {
	t.Helper()
	err := h.cache.UpdateNetworkStatus(map[string]cache.NetworkStatus{
		"1_alice":  {IsOnline: true, LastCheck: "2026-01-01T00:00:00Z", Latency: "1ms"},
		"1_bob":    {IsOnline: false, LastCheck: "2026-01-01T00:00:00Z"},
		"12_carol": {IsOnline: true, LastCheck: "2026-01-01T00:00:00Z", Latency: "4ms"},
	})
	if err != nil {
		t.Fatalf("UpdateNetworkStatus: %v", err)
	}
}

func TestGetNetworkStatusFilter(t *testing.T) {
	h := testHandler(t)
	seedNetworkStatus(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/network/status?server_id=1", nil)
	rec := httptest.NewRecorder()
	h.GetNetworkStatus(rec, req)

	var resp struct {
		Data map[string]cache.NetworkStatus `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("got %d entries, want 2: %v", len(resp.Data), resp.Data)
	}
	// server 12 must not leak in via the shared "1" prefix
	if _, ok := resp.Data["12_carol"]; ok {
		t.Error("server 12 entry returned for server 1 filter")
	}
	if !resp.Data["1_alice"].IsOnline || resp.Data["1_bob"].IsOnline {
		t.Errorf("unexpected online flags: %v", resp.Data)
	}
}

func TestGetNetworkStatusInvalidServerID(t *testing.T) {
	h := testHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/network/status?server_id=abc", nil)
	rec := httptest.NewRecorder()
	h.GetNetworkStatus(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetNetworkStatusStats(t *testing.T) {
	h := testHandler(t)
	seedNetworkStatus(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/network/status/stats", nil)
	rec := httptest.NewRecorder()
	h.GetNetworkStatusStats(rec, req)

	var resp struct {
		Data map[string]int `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data["monitored"] != 3 || resp.Data["online"] != 2 || resp.Data["offline"] != 1 {
		t.Errorf("stats = %v", resp.Data)
	}
}
