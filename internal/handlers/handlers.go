package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/lumenisp/panel/internal/cache"
	"github.com/lumenisp/panel/internal/reconcile"
	"github.com/lumenisp/panel/internal/store"
	"github.com/lumenisp/panel/internal/wa"
	"github.com/lumenisp/panel/pkg/database"
	"github.com/lumenisp/panel/pkg/logger"
)

type Handler struct {
	db         *database.DB
	logger     *logger.Logger
	cache      *cache.Store
	reconciler *reconcile.Reconciler
	customers  *store.CustomerStore
	servers    *store.ServerStore
	wa         wa.Sender
}

func New(db *database.DB, l *logger.Logger, cacheStore *cache.Store, rec *reconcile.Reconciler,
	customers *store.CustomerStore, servers *store.ServerStore, sender wa.Sender) *Handler {
	return &Handler{
		db:         db,
		logger:     l,
		cache:      cacheStore,
		reconciler: rec,
		customers:  customers,
		servers:    servers,
		wa:         sender,
	}
}

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (h *Handler) sendJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var dbStatus string
	if err := h.db.Ping(); err != nil {
		dbStatus = "disconnected"
	} else {
		dbStatus = "connected"
	}

	h.sendJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Lumen ISP Panel API is running",
		Data: map[string]interface{}{
			"version":   "1.0.0",
			"timestamp": time.Now().Format(time.RFC3339),
			"database":  dbStatus,
		},
	})
}
