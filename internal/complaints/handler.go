package complaints

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	httpmiddleware "github.com/wolfman30/cybersathi/internal/http/middleware"
	"github.com/wolfman30/cybersathi/pkg/logging"
)

// Handler handles HTTP requests for complaints
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new complaints handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if repo == nil {
		panic("complaints: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

// Lookup handles GET /api/complaints/lookup?q= with a ticket or phone number.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		http.Error(w, "missing q", http.StatusBadRequest)
		return
	}
	c, err := h.repo.FindByPhoneOrTicket(r.Context(), q)
	if errors.Is(err, ErrComplaintNotFound) {
		http.Error(w, "complaint not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("complaint lookup failed", "error", err)
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, c.Public())
}

// ListComplaintsResponse is the response for listing complaints
type ListComplaintsResponse struct {
	Complaints []*Complaint `json:"complaints"`
	Count      int          `json:"count"`
	Offset     int          `json:"offset"`
	Limit      int          `json:"limit"`
}

// List handles GET /admin/complaints
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Limit: 50}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 200 {
			filter.Limit = limit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}
	if status := r.URL.Query().Get("status"); status != "" {
		normalized, err := NormalizeStatus(status)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.Status = normalized
	}

	list, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list complaints", "error", err)
		http.Error(w, "failed to list complaints", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ListComplaintsResponse{
		Complaints: list,
		Count:      len(list),
		Offset:     filter.Offset,
		Limit:      filter.Limit,
	})
}

// Get handles GET /admin/complaints/{ticket}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ticket := chi.URLParam(r, "ticket")
	c, err := h.repo.GetByTicket(r.Context(), ticket)
	if errors.Is(err, ErrComplaintNotFound) {
		http.Error(w, "complaint not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load complaint", "error", err, "ticket", ticket)
		http.Error(w, "failed to load complaint", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// UpdateStatusRequest is the body of a status update.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PUT /admin/complaints/{ticket}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ticket := chi.URLParam(r, "ticket")
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	c, err := h.repo.UpdateStatus(r.Context(), ticket, req.Status)
	switch {
	case errors.Is(err, ErrInvalidStatus):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, ErrComplaintNotFound):
		http.Error(w, "complaint not found", http.StatusNotFound)
		return
	case err != nil:
		h.logger.Error("failed to update complaint status", "error", err, "ticket", ticket)
		http.Error(w, "failed to update status", http.StatusInternalServerError)
		return
	}
	officer := "unknown"
	if claims, ok := httpmiddleware.OfficerFromContext(r.Context()); ok {
		officer = claims.Subject
	}
	h.logger.Info("complaint status updated", "ticket", c.TicketNumber, "status", c.Status, "officer", officer)
	writeJSON(w, http.StatusOK, c)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
