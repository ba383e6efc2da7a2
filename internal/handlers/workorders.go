package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/lumenisp/panel/internal/middleware"
	"github.com/lumenisp/panel/internal/models"
)

type WorkOrderResponse struct {
	ID           string  `json:"id"`
	ServerID     int     `json:"server_id"`
	ServerName   string  `json:"server_name,omitempty"`
	CustomerName string  `json:"customer_name"`
	SecretName   string  `json:"secret_name"`
	Profile      string  `json:"profile"`
	PhoneNumber  *string `json:"phone_number"`
	Address      *string `json:"address"`
	Status       string  `json:"status"`
	CompletedAt  *string `json:"completed_at"`
	CreatedAt    string  `json:"created_at"`
}

type CreateWorkOrderRequest struct {
	ServerID     int    `json:"server_id"`
	CustomerName string `json:"customer_name"`
	SecretName   string `json:"secret_name"`
	Profile      string `json:"profile"`
	PhoneNumber  string `json:"phone_number"`
	Address      string `json:"address"`
}

func (h *Handler) GetWorkOrders(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	query := `
		SELECT wo.id, wo.server_id, COALESCE(s.name, ''), wo.customer_name, wo.secret_name,
		       wo.profile, wo.phone_number, wo.address, wo.status, wo.completed_at, wo.created_at
		FROM work_orders wo
		LEFT JOIN servers s ON wo.server_id = s.id
	`
	var args []interface{}
	if status != "" {
		query += " WHERE wo.status = $1"
		args = append(args, status)
	}
	query += " ORDER BY wo.created_at DESC"

	rows, err := h.db.Query(query, args...)
	if err != nil {
		h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
		return
	}
	defer rows.Close()

	var orders []WorkOrderResponse
	for rows.Next() {
		var o WorkOrderResponse
		rows.Scan(&o.ID, &o.ServerID, &o.ServerName, &o.CustomerName, &o.SecretName,
			&o.Profile, &o.PhoneNumber, &o.Address, &o.Status, &o.CompletedAt, &o.CreatedAt)
		orders = append(orders, o)
	}

	h.sendJSON(w, http.StatusOK, Response{Success: true, Data: orders})
}

func (h *Handler) CreateWorkOrder(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r)

	var req CreateWorkOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	if req.ServerID == 0 || req.CustomerName == "" || req.SecretName == "" {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "server_id, customer_name, and secret_name are required"})
		return
	}

	id := uuid.NewString()
	_, err := h.db.Exec(`
		INSERT INTO work_orders (id, server_id, customer_name, secret_name, profile, phone_number, address)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''))
	`, id, req.ServerID, req.CustomerName, req.SecretName, req.Profile, req.PhoneNumber, req.Address)

	if err != nil {
		h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to create work order"})
		return
	}

	h.logger.Info("Work order created", "order_id", id, "secret", req.SecretName, "by", claims.UserID)
	h.sendJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Work order created successfully",
		Data:    map[string]string{"id": id},
	})
}

// CompleteWorkOrder marks an installation done and links the provisioned
// secret to the customer table through the same upsert primitive the sync
// path uses.
func (h *Handler) CompleteWorkOrder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	var order models.WorkOrder
	err := h.db.QueryRow(`
		SELECT id, server_id, customer_name, secret_name, profile, phone_number, address, status
		FROM work_orders WHERE id = $1
	`, id).Scan(&order.ID, &order.ServerID, &order.CustomerName, &order.SecretName,
		&order.Profile, &order.PhoneNumber, &order.Address, &order.Status)

	if err == sql.ErrNoRows {
		h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Work order not found"})
		return
	}
	if err != nil {
		h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
		return
	}

	if order.Status != models.WorkOrderOpen {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Work order is not open"})
		return
	}

	customer, err := h.reconciler.LinkSecret(order)
	if err != nil {
		h.logger.Error("Work order link failed", "order_id", id, "error", err.Error())
		h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to link secret to customer"})
		return
	}

	_, err = h.db.Exec(`
		UPDATE work_orders SET status = $1, completed_at = NOW(), updated_at = NOW() WHERE id = $2
	`, models.WorkOrderCompleted, id)
	if err != nil {
		h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to complete work order"})
		return
	}

	claims := middleware.GetUserFromContext(r)
	h.logger.Info("Work order completed", "order_id", id, "customer_id", customer.ID, "by", claims.UserID)
	h.sendJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Work order completed",
		Data:    map[string]string{"customer_id": customer.ID},
	})
}

func (h *Handler) CancelWorkOrder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	result, err := h.db.Exec(`
		UPDATE work_orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3
	`, models.WorkOrderCancelled, id, models.WorkOrderOpen)
	if err != nil {
		h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to cancel work order"})
		return
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Open work order not found"})
		return
	}

	h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Work order cancelled"})
}
