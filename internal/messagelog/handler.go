package messagelog

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/wolfman30/cybersathi/pkg/logging"
)

// Handler serves the admin message log.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates the admin handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// Recent handles GET /admin/messages?sender=&limit=
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.store.Recent(r.Context(), r.URL.Query().Get("sender"), limit)
	if err != nil {
		h.logger.Error("failed to list messages", "error", err)
		http.Error(w, "failed to list messages", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"messages": entries, "count": len(entries)})
}
