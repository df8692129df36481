package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/family-catalog/internal/auth"
	"github.com/sakif/family-catalog/internal/model"
	"github.com/sakif/family-catalog/internal/service"
)

// AdminActions is implemented by *service.AdminService.
type AdminActions interface {
	Approve(ctx context.Context, key string) error
	Reject(ctx context.Context, key string) error
	ListPending(ctx context.Context) ([]model.PendingRequest, error)
	ListRepairs(ctx context.Context) ([]model.ProfileRepair, error)
}

type AdminHandler struct {
	admin  AdminActions
	logger *slog.Logger
}

func NewAdminHandler(admin AdminActions, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

// requireAdmin writes the error response itself and reports whether the
// caller may continue.
func (h *AdminHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	sess := auth.SessionFromContext(r.Context())
	if err := service.RequireAdmin(sess); err != nil {
		writeError(w, err)
		return false
	}
	return true
}

// HandleListPending handles GET /api/admin/pending.
func (h *AdminHandler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	reqs, err := h.admin.ListPending(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

// HandleApprove handles POST /api/admin/pending/{key}/approve.
func (h *AdminHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	key := chi.URLParam(r, "key")
	if err := h.admin.Approve(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}
	h.logger.Info("admin approved request",
		slog.String("key", key),
		slog.String("admin", auth.SessionFromContext(r.Context()).AccountID()),
	)
	writeJSON(w, http.StatusOK, map[string]string{"status": "approved", "key": key})
}

// HandleReject handles POST /api/admin/pending/{key}/reject.
func (h *AdminHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	key := chi.URLParam(r, "key")
	if err := h.admin.Reject(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected", "key": key})
}

// HandleListRepairs handles GET /api/admin/repairs.
func (h *AdminHandler) HandleListRepairs(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	repairs, err := h.admin.ListRepairs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, repairs)
}
