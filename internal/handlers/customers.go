package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/lumenisp/panel/internal/models"
)

type UpdateCustomerRequest struct {
	Name             string  `json:"name,omitempty"`
	PhoneNumber      *string `json:"phone_number,omitempty"`
	Status           string  `json:"status,omitempty"`
	Address          *string `json:"address,omitempty"`
	Coordinates      *string `json:"coordinates,omitempty"`
	ODPID            *string `json:"odp_id,omitempty"`
	SubAreaID        *string `json:"sub_area_id,omitempty"`
	CustomBillingDay *int    `json:"custom_billing_day,omitempty"`
}

var validCustomerStatus = map[string]bool{
	models.StatusActive:   true,
	models.StatusIsolated: true,
	models.StatusDisabled: true,
}

func (h *Handler) GetCustomers(w http.ResponseWriter, r *http.Request) {
	serverIDStr := r.URL.Query().Get("server_id")
	if serverIDStr == "" {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "server_id parameter required"})
		return
	}
	serverID, err := strconv.Atoi(serverIDStr)
	if err != nil {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid server_id"})
		return
	}

	customers, err := h.customers.FindAllByServer(serverID)
	if err != nil {
		h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
		return
	}

	h.sendJSON(w, http.StatusOK, Response{Success: true, Data: customers})
}

func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	customer, err := h.customers.FindByID(vars["id"])
	if err != nil {
		h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Customer not found"})
		return
	}

	h.sendJSON(w, http.StatusOK, Response{Success: true, Data: customer})
}

func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var customer models.Customer
	if err := json.NewDecoder(r.Body).Decode(&customer); err != nil {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	if customer.MikrotikName == "" || customer.ServerID == 0 {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "mikrotik_name and server_id are required"})
		return
	}
	if customer.Status != "" && !validCustomerStatus[customer.Status] {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid status"})
		return
	}
	if customer.Name == "" {
		customer.Name = customer.MikrotikName
	}

	if err := h.customers.Create(&customer); err != nil {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Failed to create customer. Secret name may already exist on this server."})
		return
	}

	h.logger.Info("Customer created", "customer_id", customer.ID, "secret", customer.MikrotikName, "server_id", customer.ServerID)
	h.sendJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Customer created successfully",
		Data:    map[string]string{"id": customer.ID},
	})
}

// UpdateCustomer edits the locally owned fields. Profile is deliberately not
// editable here: the router is authoritative for it and the next sync would
// overwrite any manual change.
func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	customer, err := h.customers.FindByID(vars["id"])
	if err != nil {
		h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Customer not found"})
		return
	}

	var req UpdateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	if req.Status != "" {
		if !validCustomerStatus[req.Status] {
			h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid status"})
			return
		}
		customer.Status = req.Status
	}
	if req.Name != "" {
		customer.Name = req.Name
	}
	if req.PhoneNumber != nil {
		customer.PhoneNumber = sql.NullString{String: *req.PhoneNumber, Valid: *req.PhoneNumber != ""}
	}
	if req.Address != nil {
		customer.Address = sql.NullString{String: *req.Address, Valid: *req.Address != ""}
	}
	if req.Coordinates != nil {
		customer.Coordinates = sql.NullString{String: *req.Coordinates, Valid: *req.Coordinates != ""}
	}
	if req.ODPID != nil {
		customer.ODPID = sql.NullString{String: *req.ODPID, Valid: *req.ODPID != ""}
	}
	if req.SubAreaID != nil {
		customer.SubAreaID = sql.NullString{String: *req.SubAreaID, Valid: *req.SubAreaID != ""}
	}
	if req.CustomBillingDay != nil {
		customer.CustomBillingDay = sql.NullInt64{Int64: int64(*req.CustomBillingDay), Valid: *req.CustomBillingDay > 0}
	}

	if err := h.customers.Update(customer); err != nil {
		h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to update customer"})
		return
	}

	h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Customer updated successfully"})
}
