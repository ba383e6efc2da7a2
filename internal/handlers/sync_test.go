package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/lumenisp/panel/internal/cache"
	"github.com/lumenisp/panel/internal/routeros"
	"github.com/lumenisp/panel/pkg/logger"
)

func testHandler(t *testing.T) *Handler {
	t.Helper()
	cacheStore, err := cache.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return &Handler{logger: logger.New(), cache: cacheStore}
}

func TestSyncMikrotikValidation(t *testing.T) {
	h := testHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{not json"},
		{"missing server", `{"resource":"secrets"}`},
		{"missing ip", `{"server":{"id":1},"resource":"secrets"}`},
		{"missing resource", `{"server":{"id":1,"ip":"10.0.0.1"}}`},
		{"unknown resource", `{"server":{"id":1,"ip":"10.0.0.1"},"resource":"queues"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/mikrotik/sync", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.SyncMikrotik(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			var resp Response
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Success || resp.Error == "" {
				t.Errorf("response = %+v, want failure with error message", resp)
			}
		})
	}
}

func TestSyncErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{routeros.ErrInvalidResource, http.StatusBadRequest},
		{routeros.ErrAuthFailed, http.StatusInternalServerError},
		{routeros.ErrConnectTimeout, http.StatusInternalServerError},
		{routeros.ErrConnectRefused, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := syncErrorStatus(tt.err); got != tt.want {
			t.Errorf("syncErrorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestGetCachedResourceMiss(t *testing.T) {
	h := testHandler(t)

	r := mux.NewRouter()
	r.HandleFunc("/api/mikrotik/cache/{serverId}/{resource}", h.GetCachedResource)

	req := httptest.NewRequest(http.MethodGet, "/api/mikrotik/cache/7/secrets", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Timestamp *string                  `json:"timestamp"`
			Data      []map[string]interface{} `json:"data"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Error("cache miss should still succeed")
	}
	if resp.Data.Timestamp != nil {
		t.Errorf("timestamp = %v, want null", *resp.Data.Timestamp)
	}
	if resp.Data.Data == nil || len(resp.Data.Data) != 0 {
		t.Errorf("data = %v, want empty array", resp.Data.Data)
	}
}

func TestGetCachedResourceHit(t *testing.T) {
	h := testHandler(t)

	rows := []map[string]interface{}{{"name": "alice", "profile": "P1"}}
	if _, err := h.cache.Write(7, "secrets", rows); err != nil {
		t.Fatalf("cache write: %v", err)
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/mikrotik/cache/{serverId}/{resource}", h.GetCachedResource)

	req := httptest.NewRequest(http.MethodGet, "/api/mikrotik/cache/7/secrets", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Data cache.Snapshot `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Timestamp == "" {
		t.Error("timestamp missing on cache hit")
	}
	if len(resp.Data.Data) != 1 || resp.Data.Data[0]["name"] != "alice" {
		t.Errorf("data = %v", resp.Data.Data)
	}
}

func TestGetCachedResourceBadParams(t *testing.T) {
	h := testHandler(t)

	r := mux.NewRouter()
	r.HandleFunc("/api/mikrotik/cache/{serverId}/{resource}", h.GetCachedResource)

	for _, path := range []string{
		"/api/mikrotik/cache/abc/secrets",
		"/api/mikrotik/cache/7/queues",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
		}
	}
}
