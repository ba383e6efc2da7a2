package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/lumenisp/panel/internal/models"
	"github.com/lumenisp/panel/internal/routeros"
)

type SyncRequest struct {
	Server struct {
		ID       int    `json:"id"`
		Name     string `json:"name"`
		IP       string `json:"ip"`
		Port     int    `json:"port"`
		Username string `json:"username"`
		Password string `json:"password"`
	} `json:"server"`
	Resource string `json:"resource"`
}

// SyncMikrotik fetches one resource live from a router and reconciles it
// against the cache and the customer table. Connection and protocol errors
// surface with the router's own message; per-row upsert failures are
// reported in the counters but do not fail the request.
func (h *Handler) SyncMikrotik(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	if req.Server.ID == 0 || req.Server.IP == "" {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Server id and ip are required"})
		return
	}
	if req.Resource == "" {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Resource is required"})
		return
	}
	if !routeros.ValidResource(req.Resource) {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Unknown resource: " + req.Resource})
		return
	}

	srv := models.Server{
		ID:       req.Server.ID,
		Name:     req.Server.Name,
		IP:       req.Server.IP,
		Port:     req.Server.Port,
		Username: req.Server.Username,
		Password: req.Server.Password,
	}

	result, err := h.reconciler.Sync(r.Context(), srv, req.Resource)
	h.recordSyncLog(srv.ID, req.Resource, result, err)
	if err != nil {
		h.logger.Error("Sync failed", "server_id", srv.ID, "resource", req.Resource, "error", err.Error())
		h.sendJSON(w, syncErrorStatus(err), Response{Success: false, Error: err.Error()})
		return
	}

	if result.Failed > 0 {
		h.logger.Warn("Sync finished with row failures", "server_id", srv.ID,
			"created", result.Created, "updated", result.Updated, "failed", result.Failed)
	} else {
		h.logger.Info("Sync finished", "server_id", srv.ID, "resource", req.Resource,
			"rows", len(result.Data), "created", result.Created)
	}

	h.sendJSON(w, http.StatusOK, Response{Success: true, Data: result})
}

// syncErrorStatus maps sync failures to HTTP statuses. Only request
// validation is a 400; every router-side failure, connect and auth errors
// included, is a 500 carrying the underlying message.
func syncErrorStatus(err error) int {
	if errors.Is(err, routeros.ErrInvalidResource) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// GetCachedResource serves the last snapshot for a server and resource. A
// cache miss is an empty data set, not an error: the snapshot is derived
// state that any sync will regenerate.
func (h *Handler) GetCachedResource(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	serverID, err := strconv.Atoi(vars["serverId"])
	if err != nil {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid server id"})
		return
	}
	resource := vars["resource"]
	if !routeros.ValidResource(resource) {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Unknown resource: " + resource})
		return
	}

	snap, found := h.cache.Read(serverID, resource)
	if !found {
		h.sendJSON(w, http.StatusOK, Response{
			Success: true,
			Data:    map[string]interface{}{"timestamp": nil, "data": []interface{}{}},
		})
		return
	}

	h.sendJSON(w, http.StatusOK, Response{Success: true, Data: snap})
}
