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

// Producers is implemented by *service.ProducerService.
type Producers interface {
	Create(ctx context.Context, sess *model.AuthorizedSession, in service.ProducerInput) (*model.Producer, error)
	Detail(ctx context.Context, id string) (*service.ProducerDetail, error)
	FindByName(ctx context.Context, name string) (*model.Producer, error)
	List(ctx context.Context, filter string) ([]model.Producer, error)
	Update(ctx context.Context, sess *model.AuthorizedSession, id string, in service.ProducerInput) (*model.Producer, error)
	Delete(ctx context.Context, sess *model.AuthorizedSession, id string) error
}

type ProducerHandler struct {
	producers Producers
	logger    *slog.Logger
}

func NewProducerHandler(producers Producers, logger *slog.Logger) *ProducerHandler {
	return &ProducerHandler{producers: producers, logger: logger}
}

// HandleList handles GET /api/producers. ?name= filters by substring;
// ?exact= resolves a single producer by its full name.
func (h *ProducerHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if exact := q.Get("exact"); exact != "" {
		p, err := h.producers.FindByName(r.Context(), exact)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, []model.Producer{*p})
		return
	}
	ps, err := h.producers.List(r.Context(), q.Get("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// HandleGet responds with the producer and its related records.
func (h *ProducerHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := h.producers.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *ProducerHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.ProducerInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.producers.Create(r.Context(), auth.SessionFromContext(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProducerHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.ProducerInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.producers.Update(r.Context(), auth.SessionFromContext(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProducerHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.producers.Delete(r.Context(), auth.SessionFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
