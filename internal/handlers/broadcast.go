package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

type BroadcastRequest struct {
	ServerID int    `json:"server_id"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// Broadcast sends a WhatsApp message to every customer on a server that has
// a phone number, optionally filtered by status. Individual send failures
// are counted and reported, never aborting the run.
func (h *Handler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req BroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	if req.ServerID == 0 || strings.TrimSpace(req.Message) == "" {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "server_id and message are required"})
		return
	}
	if req.Status != "" && !validCustomerStatus[req.Status] {
		h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid status filter"})
		return
	}

	customers, err := h.customers.FindAllByServer(req.ServerID)
	if err != nil {
		h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
		return
	}

	sent, failed, skipped := 0, 0, 0
	for _, c := range customers {
		if req.Status != "" && c.Status != req.Status {
			continue
		}
		if !c.PhoneNumber.Valid || c.PhoneNumber.String == "" {
			skipped++
			continue
		}
		if err := h.wa.Send(r.Context(), c.PhoneNumber.String, req.Message); err != nil {
			h.logger.Warn("Broadcast send failed", "customer_id", c.ID, "error", err.Error())
			failed++
			continue
		}
		sent++
	}

	h.logger.Info("Broadcast finished", "server_id", req.ServerID, "sent", sent, "failed", failed, "skipped", skipped)
	h.sendJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Broadcast processed",
		Data: map[string]int{
			"sent":    sent,
			"failed":  failed,
			"skipped": skipped,
		},
	})
}
