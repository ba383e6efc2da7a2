package handlers

import (
	"net/http"
	"strconv"

	"github.com/lumenisp/panel/internal/middleware"
	"github.com/lumenisp/panel/internal/reconcile"
)

type SyncLogResponse struct {
	ID        int    `json:"id"`
	ServerID  int    `json:"server_id"`
	Resource  string `json:"resource"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
	Failed    int    `json:"failed"`
	Rows      int    `json:"rows"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
}

func (h *Handler) GetSyncLogs(w http.ResponseWriter, r *http.Request) {
	serverID := r.URL.Query().Get("server_id")
	limitStr := r.URL.Query().Get("limit")
	limit := 100
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	query := `SELECT id, server_id, resource, created, updated, failed, rows, COALESCE(error, ''), created_at FROM sync_logs WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if serverID != "" {
		argCount++
		query += " AND server_id = $" + strconv.Itoa(argCount)
		args = append(args, serverID)
	}

	argCount++
	query += " ORDER BY created_at DESC LIMIT $" + strconv.Itoa(argCount)
	args = append(args, limit)

	rows, err := h.db.Query(query, args...)
	if err != nil {
		h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
		return
	}
	defer rows.Close()

	var logs []SyncLogResponse
	for rows.Next() {
		var log SyncLogResponse
		rows.Scan(&log.ID, &log.ServerID, &log.Resource, &log.Created, &log.Updated, &log.Failed, &log.Rows, &log.Error, &log.CreatedAt)
		logs = append(logs, log)
	}

	h.sendJSON(w, http.StatusOK, Response{Success: true, Data: logs})
}

func (h *Handler) GetSyncLogStats(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT server_id, COUNT(*), COALESCE(SUM(failed), 0)
		FROM sync_logs
		WHERE created_at > NOW() - INTERVAL '24 hours'
		GROUP BY server_id
	`)
	if err != nil {
		h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
		return
	}
	defer rows.Close()

	type serverStats struct {
		ServerID int `json:"server_id"`
		Runs     int `json:"runs"`
		Failed   int `json:"failed"`
	}
	var stats []serverStats
	for rows.Next() {
		var s serverStats
		rows.Scan(&s.ServerID, &s.Runs, &s.Failed)
		stats = append(stats, s)
	}

	h.sendJSON(w, http.StatusOK, Response{Success: true, Data: stats})
}

func (h *Handler) DeleteOldSyncLogs(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r)
	if claims.Role != "admin" {
		h.sendJSON(w, http.StatusForbidden, Response{Success: false, Error: "Admin access required"})
		return
	}

	result, err := h.db.Exec("DELETE FROM sync_logs WHERE created_at < NOW() - INTERVAL '30 days'")
	if err != nil {
		h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to delete logs"})
		return
	}

	rows, _ := result.RowsAffected()
	h.sendJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Old sync logs deleted",
		Data:    map[string]int64{"deleted": rows},
	})
}

// recordSyncLog persists one sync run. Failures are logged only;
// a sync never fails because its audit row could not be written.
func (h *Handler) recordSyncLog(serverID int, resource string, result *reconcile.Result, syncErr error) {
	errMsg := ""
	if syncErr != nil {
		errMsg = syncErr.Error()
	}
	created, updated, failed, count := 0, 0, 0, 0
	if result != nil {
		created, updated, failed, count = result.Created, result.Updated, result.Failed, len(result.Data)
	}

	_, err := h.db.Exec(`
		INSERT INTO sync_logs (server_id, resource, created, updated, failed, rows, error)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
	`, serverID, resource, created, updated, failed, count, errMsg)
	if err != nil {
		h.logger.Error("Sync log write failed", "server_id", serverID, "error", err.Error())
	}
}
