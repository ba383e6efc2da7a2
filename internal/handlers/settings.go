package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/lumenisp/panel/internal/middleware"
	"github.com/lumenisp/panel/internal/models"
)

type SettingResponse struct {
	ID          int    `json:"id"`
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description"`
	UpdatedAt   string `json:"updated_at"`
}

type UpdateSettingRequest struct {
	Value string `json:"value"`
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r)
	if claims.Role != "admin" {
		h.sendJSON(w, http.StatusForbidden, Response{Success: false, Error: "Admin access required"})
		return
	}

	rows, err := h.db.Query(`
		SELECT id, key, COALESCE(value, ''), COALESCE(description, ''), updated_at
		FROM settings ORDER BY key
	`)
	if err != nil {
		h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
		return
	}
	defer rows.Close()

	var settings []SettingResponse
	for rows.Next() {
		var s SettingResponse
		rows.Scan(&s.ID, &s.Key, &s.Value, &s.Description, &s.UpdatedAt)
		settings = append(settings, s)
	}

	h.sendJSON(w, http.StatusOK, Response{Success: true, Data: settings})
}

func (h *Handler) GetSetting(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Key parameter required"})
		return
	}

	var value string
	err := h.db.QueryRow("SELECT COALESCE(value, '') FROM settings WHERE key = $1", key).Scan(&value)
	if err != nil {
		h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Setting not found"})
		return
	}

	h.sendJSON(w, http.StatusOK, Response{Success: true, Data: map[string]string{"key": key, "value": value}})
}

func (h *Handler) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r)
	if claims.Role != "admin" {
		h.sendJSON(w, http.StatusForbidden, Response{Success: false, Error: "Admin access required"})
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Key parameter required"})
		return
	}

	var req UpdateSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	result, err := h.db.Exec(`
		UPDATE settings SET value = $1, updated_by = $2, updated_at = NOW() WHERE key = $3
	`, req.Value, claims.UserID, key)

	if err != nil {
		h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to update setting"})
		return
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Setting not found"})
		return
	}

	h.logger.Info("Setting updated", "key", key, "value", req.Value, "by", claims.UserID)
	h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Setting updated successfully"})
}

func (h *Handler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]interface{})

	var totalServers int
	h.db.QueryRow("SELECT COUNT(*) FROM servers").Scan(&totalServers)

	var totalCustomers, activeCustomers, isolatedCustomers, disabledCustomers int
	h.db.QueryRow("SELECT COUNT(*) FROM customers").Scan(&totalCustomers)
	h.db.QueryRow("SELECT COUNT(*) FROM customers WHERE status = $1", models.StatusActive).Scan(&activeCustomers)
	h.db.QueryRow("SELECT COUNT(*) FROM customers WHERE status = $1", models.StatusIsolated).Scan(&isolatedCustomers)
	h.db.QueryRow("SELECT COUNT(*) FROM customers WHERE status = $1", models.StatusDisabled).Scan(&disabledCustomers)

	var paidRevenue, unpaidRevenue float64
	h.db.QueryRow("SELECT COALESCE(SUM(amount), 0) FROM invoices WHERE status = $1", models.InvoicePaid).Scan(&paidRevenue)
	h.db.QueryRow("SELECT COALESCE(SUM(amount), 0) FROM invoices WHERE status = $1", models.InvoiceUnpaid).Scan(&unpaidRevenue)

	var openWorkOrders int
	h.db.QueryRow("SELECT COUNT(*) FROM work_orders WHERE status = $1", models.WorkOrderOpen).Scan(&openWorkOrders)

	online, offline := 0, 0
	for _, st := range h.cache.ReadNetworkStatus() {
		if st.IsOnline {
			online++
		} else {
			offline++
		}
	}

	stats["servers"] = map[string]int{
		"total": totalServers,
	}
	stats["customers"] = map[string]int{
		"total":    totalCustomers,
		"active":   activeCustomers,
		"isolated": isolatedCustomers,
		"disabled": disabledCustomers,
	}
	stats["revenue"] = map[string]float64{
		"paid":   paidRevenue,
		"unpaid": unpaidRevenue,
	}
	stats["work_orders"] = map[string]int{
		"open": openWorkOrders,
	}
	stats["network"] = map[string]int{
		"online":  online,
		"offline": offline,
	}

	h.sendJSON(w, http.StatusOK, Response{Success: true, Data: stats})
}
