package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/lumenisp/panel/internal/middleware"
	"github.com/lumenisp/panel/internal/models"
	"github.com/lumenisp/panel/internal/store"
)

type CreateServerRequest struct {
	Name           string `json:"name"`
	IP             string `json:"ip"`
	Port           int    `json:"port"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	BillingDay     int    `json:"billing_day"`
	PaymentDueDays int    `json:"payment_due_days"`
}

func (h *Handler) GetServers(w http.ResponseWriter, r *http.Request) {
	servers, err := h.servers.FindAll()
	if err != nil {
		h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
		return
	}

	h.sendJSON(w, http.StatusOK, Response{Success: true, Data: servers})
}

func (h *Handler) GetServer(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid server id"})
		return
	}

	srv, err := h.servers.FindByID(id)
	if err != nil {
		h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Server not found"})
		return
	}

	h.sendJSON(w, http.StatusOK, Response{Success: true, Data: srv})
}

func (h *Handler) CreateServer(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r)

	var req CreateServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	if req.Name == "" || req.IP == "" || req.Username == "" {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Name, ip, and username are required"})
		return
	}

	id, err := h.servers.Create(&models.Server{
		Name:           req.Name,
		IP:             req.IP,
		Port:           req.Port,
		Username:       req.Username,
		Password:       req.Password,
		BillingDay:     req.BillingDay,
		PaymentDueDays: req.PaymentDueDays,
	})
	if err != nil {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Failed to create server"})
		return
	}

	h.logger.Info("Server created", "server_id", id, "name", req.Name, "by", claims.UserID)
	h.sendJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Server created successfully",
		Data:    map[string]int{"id": id},
	})
}

func (h *Handler) UpdateServer(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid server id"})
		return
	}

	srv, err := h.servers.FindByID(id)
	if err != nil {
		h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Server not found"})
		return
	}

	var req CreateServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	if req.Name != "" {
		srv.Name = req.Name
	}
	if req.IP != "" {
		srv.IP = req.IP
	}
	if req.Port > 0 {
		srv.Port = req.Port
	}
	if req.Username != "" {
		srv.Username = req.Username
	}
	srv.Password = req.Password
	if req.BillingDay > 0 {
		srv.BillingDay = req.BillingDay
	}
	if req.PaymentDueDays > 0 {
		srv.PaymentDueDays = req.PaymentDueDays
	}

	if err := h.servers.Update(srv); err != nil {
		h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to update server"})
		return
	}

	h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Server updated successfully"})
}

// DeleteServer removes the router record only. Customers are not
// cascade-deleted; orphans are tolerated and logged.
func (h *Handler) DeleteServer(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid server id"})
		return
	}

	claims := middleware.GetUserFromContext(r)
	if claims.Role != "admin" {
		h.sendJSON(w, http.StatusForbidden, Response{Success: false, Error: "Admin access required"})
		return
	}

	if _, err := h.servers.FindByID(id); err == store.ErrServerNotFound {
		h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Server not found"})
		return
	}

	orphans := h.servers.OrphanedCustomerCount(id)
	if err := h.servers.Delete(id); err != nil {
		h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to delete server"})
		return
	}

	if orphans > 0 {
		h.logger.Warn("Server deleted with customers still attached", "server_id", id, "customers", orphans)
	}
	h.logger.Info("Server deleted", "server_id", id, "by", claims.UserID)
	h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Server deleted successfully"})
}
