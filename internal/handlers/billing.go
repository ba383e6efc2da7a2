package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/lumenisp/panel/internal/middleware"
	"github.com/lumenisp/panel/internal/models"
)

type InvoiceResponse struct {
	ID           int     `json:"id"`
	CustomerID   string  `json:"customer_id"`
	CustomerName string  `json:"customer_name,omitempty"`
	ServerID     int     `json:"server_id"`
	Period       string  `json:"period"`
	Amount       float64 `json:"amount"`
	Status       string  `json:"status"`
	DueDate      string  `json:"due_date"`
	PaidAt       *string `json:"paid_at"`
	CreatedAt    string  `json:"created_at"`
}

type CreateInvoiceRequest struct {
	CustomerID string  `json:"customer_id"`
	Period     string  `json:"period"`
	Amount     float64 `json:"amount"`
	DueDays    int     `json:"due_days"`
}

var validInvoiceStatus = map[string]bool{
	models.InvoiceUnpaid:    true,
	models.InvoicePaid:      true,
	models.InvoiceCancelled: true,
	models.InvoiceInvalid:   true,
}

func (h *Handler) GetInvoices(w http.ResponseWriter, r *http.Request) {
	query := `
		SELECT inv.id, inv.customer_id, c.name as customer_name, inv.server_id, inv.period,
		       inv.amount, inv.status, inv.due_date, inv.paid_at, inv.created_at
		FROM invoices inv
		JOIN customers c ON inv.customer_id = c.id
	`
	var args []interface{}
	if status := r.URL.Query().Get("status"); status != "" {
		query += " WHERE inv.status = $1"
		args = append(args, status)
	}
	query += " ORDER BY inv.created_at DESC"

	rows, err := h.db.Query(query, args...)
	if err != nil {
		h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
		return
	}
	defer rows.Close()

	var invoices []InvoiceResponse
	for rows.Next() {
		var inv InvoiceResponse
		rows.Scan(&inv.ID, &inv.CustomerID, &inv.CustomerName, &inv.ServerID, &inv.Period,
			&inv.Amount, &inv.Status, &inv.DueDate, &inv.PaidAt, &inv.CreatedAt)
		invoices = append(invoices, inv)
	}

	h.sendJSON(w, http.StatusOK, Response{Success: true, Data: invoices})
}

// CreateInvoice bills one customer for one period. When no amount is given
// it is looked up from the price of the customer's current profile.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r)

	var req CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	if req.CustomerID == "" || req.Period == "" {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "customer_id and period are required"})
		return
	}

	customer, err := h.customers.FindByID(req.CustomerID)
	if err != nil {
		h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Customer not found"})
		return
	}

	amount := req.Amount
	if amount <= 0 {
		err := h.db.QueryRow(
			`SELECT price FROM profile_prices WHERE server_id = $1 AND profile = $2`,
			customer.ServerID, customer.Profile,
		).Scan(&amount)
		if err != nil {
			h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "No price configured for profile " + customer.Profile})
			return
		}
	}

	dueDays := req.DueDays
	if dueDays == 0 {
		dueDays = 7
		var serverDue int
		if h.db.QueryRow(`SELECT payment_due_days FROM servers WHERE id = $1`, customer.ServerID).Scan(&serverDue) == nil && serverDue > 0 {
			dueDays = serverDue
		}
	}
	dueDate := time.Now().AddDate(0, 0, dueDays)

	var invoiceID int
	err = h.db.QueryRow(`
		INSERT INTO invoices (customer_id, server_id, period, amount, due_date)
		VALUES ($1, $2, $3, $4, $5) RETURNING id
	`, customer.ID, customer.ServerID, req.Period, amount, dueDate).Scan(&invoiceID)

	if err != nil {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Failed to create invoice. Period may already be billed."})
		return
	}

	h.recordInvoiceHistory(invoiceID, "", models.InvoiceUnpaid, "created", claims.UserID)
	h.logger.Info("Invoice created", "invoice_id", invoiceID, "customer_id", customer.ID, "amount", amount)
	h.sendJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Invoice created successfully",
		Data: map[string]interface{}{
			"id":       invoiceID,
			"amount":   amount,
			"due_date": dueDate.Format("2006-01-02"),
		},
	})
}

// SetInvoiceStatus moves an invoice to PAID, CANCELLED or INVALID. Every
// transition is appended to the history trail.
func (h *Handler) SetInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	var req struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}
	if !validInvoiceStatus[req.Status] {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid status"})
		return
	}

	var invoiceID int
	var oldStatus string
	if err := h.db.QueryRow(`SELECT id, status FROM invoices WHERE id = $1`, id).Scan(&invoiceID, &oldStatus); err != nil {
		h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Invoice not found"})
		return
	}
	if oldStatus == req.Status {
		h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Invoice already " + req.Status})
		return
	}

	query := `UPDATE invoices SET status = $1 WHERE id = $2`
	if req.Status == models.InvoicePaid {
		query = `UPDATE invoices SET status = $1, paid_at = NOW() WHERE id = $2`
	}
	if _, err := h.db.Exec(query, req.Status, invoiceID); err != nil {
		h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to update invoice"})
		return
	}

	claims := middleware.GetUserFromContext(r)
	h.recordInvoiceHistory(invoiceID, oldStatus, req.Status, req.Note, claims.UserID)
	h.logger.Info("Invoice status changed", "invoice_id", invoiceID, "from", oldStatus, "to", req.Status, "by", claims.UserID)
	h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Invoice updated"})
}

func (h *Handler) MarkInvoicePaid(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	var invoiceID int
	var oldStatus string
	if err := h.db.QueryRow(`SELECT id, status FROM invoices WHERE id = $1`, id).Scan(&invoiceID, &oldStatus); err != nil {
		h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Invoice not found"})
		return
	}
	if oldStatus != models.InvoiceUnpaid {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Only unpaid invoices can be paid"})
		return
	}

	if _, err := h.db.Exec(`UPDATE invoices SET status = $1, paid_at = NOW() WHERE id = $2`, models.InvoicePaid, invoiceID); err != nil {
		h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to update invoice"})
		return
	}

	claims := middleware.GetUserFromContext(r)
	h.recordInvoiceHistory(invoiceID, oldStatus, models.InvoicePaid, "payment received", claims.UserID)
	h.logger.Info("Invoice marked as paid", "invoice_id", invoiceID, "by", claims.UserID)
	h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Invoice marked as paid"})
}

// CheckOverdueInvoices isolates every customer holding an unpaid invoice
// past its due date. The route is admin-gated by RequireRole.
func (h *Handler) CheckOverdueInvoices(w http.ResponseWriter, r *http.Request) {
	result, err := h.db.Exec(`
		UPDATE customers SET status = $1, updated_at = NOW()
		WHERE status = $2 AND id IN (
			SELECT DISTINCT customer_id FROM invoices
			WHERE status = $3 AND due_date < CURRENT_DATE
		)
	`, models.StatusIsolated, models.StatusActive, models.InvoiceUnpaid)
	if err != nil {
		h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to check invoices"})
		return
	}

	isolated, _ := result.RowsAffected()
	h.logger.Info("Overdue invoices checked", "customers_isolated", isolated)
	h.sendJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Overdue invoices processed",
		Data:    map[string]int64{"customers_isolated": isolated},
	})
}

func (h *Handler) GetInvoiceHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	rows, err := h.db.Query(`
		SELECT id, invoice_id, old_status, new_status, note, changed_by, created_at
		FROM invoice_history WHERE invoice_id = $1 ORDER BY created_at
	`, id)
	if err != nil {
		h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
		return
	}
	defer rows.Close()

	var history []models.InvoiceHistory
	for rows.Next() {
		var entry models.InvoiceHistory
		rows.Scan(&entry.ID, &entry.InvoiceID, &entry.OldStatus, &entry.NewStatus,
			&entry.Note, &entry.ChangedBy, &entry.CreatedAt)
		history = append(history, entry)
	}

	h.sendJSON(w, http.StatusOK, Response{Success: true, Data: history})
}

// recordInvoiceHistory appends one transition to the audit trail. Failures
// are logged but never fail the transition itself.
func (h *Handler) recordInvoiceHistory(invoiceID int, oldStatus, newStatus, note string, userID int) {
	_, err := h.db.Exec(`
		INSERT INTO invoice_history (invoice_id, old_status, new_status, note, changed_by)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5)
	`, invoiceID, oldStatus, newStatus, note, sql.NullInt64{Int64: int64(userID), Valid: userID != 0})
	if err != nil {
		h.logger.Error("Invoice history write failed", "invoice_id", invoiceID, "error", err.Error())
	}
}
