package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/family-catalog/internal/apperror"
	"github.com/sakif/family-catalog/internal/auth"
	"github.com/sakif/family-catalog/internal/model"
	"github.com/sakif/family-catalog/internal/service"
)

// maxUpload caps a multipart media upload.
const maxUpload = 32 << 20

// Catalog is implemented by *service.CatalogService.
type Catalog interface {
	Create(ctx context.Context, sess *model.AuthorizedSession, in service.ObjectInput) (*model.CatalogObject, error)
	Get(ctx context.Context, id string) (*model.CatalogObject, error)
	Update(ctx context.Context, sess *model.AuthorizedSession, id string, in service.ObjectInput) (*model.CatalogObject, error)
	Delete(ctx context.Context, sess *model.AuthorizedSession, id string) error
	Search(ctx context.Context, f model.ObjectFilter) ([]model.CatalogObject, error)
	ListVisible(ctx context.Context, sess *model.AuthorizedSession) ([]model.CatalogObject, error)
	ExportCSV(ctx context.Context, sess *model.AuthorizedSession, w io.Writer) error
	AttachMedia(ctx context.Context, sess *model.AuthorizedSession, id string, kind model.MediaKind, filename string, r io.Reader) (*model.CatalogObject, error)
}

type ObjectHandler struct {
	catalog Catalog
	logger  *slog.Logger
}

func NewObjectHandler(catalog Catalog, logger *slog.Logger) *ObjectHandler {
	return &ObjectHandler{catalog: catalog, logger: logger}
}

// HandleSearch handles GET /api/objects.
func (h *ObjectHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	objs, err := h.catalog.Search(r.Context(), model.ObjectFilter{
		ObjectTitle:  q.Get("object_title"),
		ObjectType:   q.Get("object_type"),
		ObjectID:     q.Get("object_id"),
		Title:        q.Get("title"),
		ProducerName: q.Get("producer_name"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, objs)
}

// HandleMine handles GET /api/objects/mine.
func (h *ObjectHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	objs, err := h.catalog.ListVisible(r.Context(), auth.SessionFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, objs)
}

func (h *ObjectHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	obj, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

func (h *ObjectHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.ObjectInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	obj, err := h.catalog.Create(r.Context(), auth.SessionFromContext(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, obj)
}

func (h *ObjectHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.ObjectInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	obj, err := h.catalog.Update(r.Context(), auth.SessionFromContext(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

func (h *ObjectHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), auth.SessionFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMedia handles POST /api/objects/{id}/media?kind=image|audio with
// the file in the multipart field "file".
func (h *ObjectHandler) HandleMedia(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, apperror.ValidationFailed("file", "file exceeds the 32MB upload limit"))
			return
		}
		writeError(w, apperror.ValidationFailed("file", "multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	kind := model.MediaKind(r.URL.Query().Get("kind"))
	obj, err := h.catalog.AttachMedia(r.Context(), auth.SessionFromContext(r.Context()),
		chi.URLParam(r, "id"), kind, header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

// HandleExport handles GET /api/objects/export.csv. The CSV is built in
// memory first so a failure can still be reported as JSON.
func (h *ObjectHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.catalog.ExportCSV(r.Context(), auth.SessionFromContext(r.Context()), &buf); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="catalog-export.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("export: writing response failed", slog.String("error", err.Error()))
	}
}
