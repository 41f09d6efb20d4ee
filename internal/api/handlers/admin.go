package handlers

import (
	"log"
	"net/http"

	"github.com/vibelive/backend/internal/api/response"
	"github.com/vibelive/backend/internal/janitor"
)

// AdminHandler handles operator-only endpoints
type AdminHandler struct {
	janitor *janitor.Janitor
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(j *janitor.Janitor) *AdminHandler {
	return &AdminHandler{janitor: j}
}

// SweepResponse reports the result of a manual sweep
type SweepResponse struct {
	Deleted int64 `json:"deleted"`
}

// Sweep handles POST /api/v1/admin/trial/sweep. Counter resets stay lazy;
// this only reclaims storage from identities that have gone quiet.
func (h *AdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.janitor.SweepNow(r.Context())
	if err != nil {
		log.Printf("[admin] sweep failed: %v", err)
		response.InternalError(w, "sweep failed")
		return
	}
	response.Success(w, SweepResponse{Deleted: deleted})
}
