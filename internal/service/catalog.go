package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/rs/xid"

	"github.com/sakif/family-catalog/internal/apperror"
	"github.com/sakif/family-catalog/internal/blob"
	"github.com/sakif/family-catalog/internal/model"
	"github.com/sakif/family-catalog/internal/repository"
)

const (
	MaxObjectIDLength    = 100
	MaxTitleLength       = 200
	MaxFieldLength       = 500
	MaxDescriptionLength = 10000
)

// Columns after the descriptive fields in ExportCSV.
var csvTrailer = []string{
	"object_images", "object_audio", "createdByUid", "createdByEmail",
	"creationDate", "modifiedDate",
}

// ObjectInput holds the user-editable fields of a catalog object.
type ObjectInput = model.ObjectFields

func validateInput(in *ObjectInput) error {
	cols := in.Columns()
	rules := make([]*validation.FieldRules, 0, len(cols))
	for _, col := range cols {
		switch {
		case col.Name == "object_id":
			rules = append(rules, validation.Field(col.Value, validation.Required, validation.Length(1, MaxObjectIDLength)))
		case col.Name == "object_title", col.Name == "object_type", col.Name == "title":
			rules = append(rules, validation.Field(col.Value, validation.Length(0, MaxTitleLength)))
		case col.Long:
			rules = append(rules, validation.Field(col.Value, validation.Length(0, MaxDescriptionLength)))
		default:
			rules = append(rules, validation.Field(col.Value, validation.Length(0, MaxFieldLength)))
		}
	}
	if err := validation.ValidateStruct(in, rules...); err != nil {
		return validationError(err)
	}
	return nil
}

func trimInput(in *ObjectInput) {
	for _, col := range in.Columns() {
		*col.Value = strings.TrimSpace(*col.Value)
	}
}

type CatalogService struct {
	objects repository.ObjectRepository
	blobs   blob.Store
	logger  *slog.Logger
	now     func() time.Time
}

func NewCatalogService(objects repository.ObjectRepository, blobs blob.Store, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		objects: objects,
		blobs:   blobs,
		logger:  logger,
		now:     time.Now,
	}
}

// Create stores a new object owned by sess.
func (s *CatalogService) Create(ctx context.Context, sess *model.AuthorizedSession, in ObjectInput) (*model.CatalogObject, error) {
	if sess == nil {
		return nil, apperror.Unauthorized("sign in to add records")
	}
	trimInput(&in)
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	obj := &model.CatalogObject{
		ID:             xid.New().String(),
		ObjectFields:   in,
		Images:         []string{},
		Audio:          []string{},
		CreatedByUID:   sess.AccountID(),
		CreatedByEmail: sess.Identity.Email,
		CreationDate:   now,
		ModifiedDate:   now,
	}
	if err := s.objects.Create(ctx, obj); err != nil {
		return nil, storeFailure("object", fmt.Errorf("service/catalog: creating object: %w", err))
	}

	s.logger.Info("object created", slog.String("id", obj.ID), slog.String("object_id", obj.ObjectID))
	return obj, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (*model.CatalogObject, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.ValidationFailed("id", "object ID is required")
	}
	obj, err := s.objects.GetByID(ctx, id)
	if err != nil {
		return nil, storeFailure("object", err)
	}
	return obj, nil
}

// Update replaces the editable fields. ObjectID is fixed once the object
// exists: an empty ObjectID keeps the stored one and a different one is
// rejected. Creator fields and media lists are left alone.
func (s *CatalogService) Update(ctx context.Context, sess *model.AuthorizedSession, id string, in ObjectInput) (*model.CatalogObject, error) {
	obj, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Can(sess, obj.CreatedByUID); err != nil {
		return nil, err
	}
	trimInput(&in)
	switch in.ObjectID {
	case "":
		in.ObjectID = obj.ObjectID
	case obj.ObjectID:
	default:
		return nil, apperror.ValidationFailed("object_id", "object_id cannot be changed")
	}
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	obj.ObjectFields = in
	obj.ModifiedDate = s.now().UTC()

	if err := s.objects.Update(ctx, obj); err != nil {
		return nil, storeFailure("object", fmt.Errorf("service/catalog: updating object %s: %w", id, err))
	}
	return obj, nil
}

// Delete removes the object's media first and the record last, so a failed
// media delete leaves a record that can be deleted again.
func (s *CatalogService) Delete(ctx context.Context, sess *model.AuthorizedSession, id string) error {
	obj, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := Can(sess, obj.CreatedByUID); err != nil {
		return err
	}

	for _, url := range append(append([]string{}, obj.Images...), obj.Audio...) {
		if err := s.blobs.Delete(ctx, url); err != nil {
			if errors.Is(err, apperror.ErrValidation) {
				s.logger.Warn("skipping foreign media url", slog.String("id", id), slog.String("url", url))
				continue
			}
			return storeFailure("media", fmt.Errorf("service/catalog: deleting media of %s: %w", id, err))
		}
	}

	if err := s.objects.Delete(ctx, id); err != nil {
		return storeFailure("object", fmt.Errorf("service/catalog: deleting object %s: %w", id, err))
	}

	s.logger.Info("object deleted", slog.String("id", id))
	return nil
}

// Search matches ObjectTitle, ObjectID, Title and ProducerName as
// case-insensitive substrings and ObjectType exactly. Results are ordered
// by ObjectID.
func (s *CatalogService) Search(ctx context.Context, f model.ObjectFilter) ([]model.CatalogObject, error) {
	all, err := s.objects.List(ctx)
	if err != nil {
		return nil, storeFailure("object", fmt.Errorf("service/catalog: listing objects: %w", err))
	}

	out := make([]model.CatalogObject, 0, len(all))
	for _, o := range all {
		if !containsFold(o.ObjectTitle, f.ObjectTitle) ||
			!containsFold(o.ObjectID, f.ObjectID) ||
			!containsFold(o.Title, f.Title) ||
			!containsFold(o.ProducerName, f.ProducerName) {
			continue
		}
		if f.ObjectType != "" && o.ObjectType != f.ObjectType {
			continue
		}
		out = append(out, o)
	}
	sortObjects(out)
	return out, nil
}

// ListVisible returns every object for an administrator and the caller's
// own objects for anyone else.
func (s *CatalogService) ListVisible(ctx context.Context, sess *model.AuthorizedSession) ([]model.CatalogObject, error) {
	if sess == nil {
		return nil, apperror.Unauthorized("sign in to see your records")
	}
	all, err := s.objects.List(ctx)
	if err != nil {
		return nil, storeFailure("object", fmt.Errorf("service/catalog: listing objects: %w", err))
	}
	if sess.IsAdmin() {
		sortObjects(all)
		return all, nil
	}

	own := make([]model.CatalogObject, 0)
	for _, o := range all {
		if o.CreatedByUID == sess.AccountID() {
			own = append(own, o)
		}
	}
	sortObjects(own)
	return own, nil
}

// ExportCSV writes every object as CSV. Only signed-in users with a
// verified email may export.
func (s *CatalogService) ExportCSV(ctx context.Context, sess *model.AuthorizedSession, w io.Writer) error {
	if sess == nil {
		return apperror.Unauthorized("you must be logged in to export records")
	}
	if !sess.EmailVerified {
		return apperror.Forbidden("you must verify your email before exporting records")
	}

	all, err := s.objects.List(ctx)
	if err != nil {
		return storeFailure("object", fmt.Errorf("service/catalog: listing objects: %w", err))
	}
	sortObjects(all)

	var blank model.ObjectFields
	header := make([]string, 0, len(blank.Columns())+len(csvTrailer))
	for _, col := range blank.Columns() {
		header = append(header, col.Name)
	}
	header = append(header, csvTrailer...)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("service/catalog: writing csv header: %w", err)
	}
	for _, o := range all {
		row := make([]string, 0, len(header))
		for _, col := range o.Columns() {
			row = append(row, *col.Value)
		}
		row = append(row,
			strings.Join(o.Images, "; "), strings.Join(o.Audio, "; "),
			o.CreatedByUID, o.CreatedByEmail,
			o.CreationDate.UTC().Format(time.RFC3339), o.ModifiedDate.UTC().Format(time.RFC3339),
		)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("service/catalog: writing csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("service/catalog: flushing csv: %w", err)
	}
	return nil
}

// AttachMedia uploads r and appends its URL to the object's image or audio
// list.
func (s *CatalogService) AttachMedia(ctx context.Context, sess *model.AuthorizedSession, id string, kind model.MediaKind, filename string, r io.Reader) (*model.CatalogObject, error) {
	if kind != model.MediaImage && kind != model.MediaAudio {
		return nil, apperror.ValidationFailed("kind", "kind must be image or audio")
	}
	obj, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Can(sess, obj.CreatedByUID); err != nil {
		return nil, err
	}

	name := path.Join("objects", obj.ID, string(kind), xid.New().String()+"-"+safeFilename(filename))
	url, err := s.blobs.Put(ctx, name, r)
	if err != nil {
		return nil, storeFailure("media", fmt.Errorf("service/catalog: uploading media for %s: %w", id, err))
	}

	if kind == model.MediaImage {
		obj.Images = append(obj.Images, url)
	} else {
		obj.Audio = append(obj.Audio, url)
	}
	obj.ModifiedDate = s.now().UTC()

	if err := s.objects.Update(ctx, obj); err != nil {
		if derr := s.blobs.Delete(ctx, url); derr != nil {
			s.logger.Warn("orphaned media after failed update", slog.String("url", url), slog.String("error", derr.Error()))
		}
		return nil, storeFailure("object", fmt.Errorf("service/catalog: recording media for %s: %w", id, err))
	}
	return obj, nil
}

// ByProducer returns the objects whose producer_name contains name,
// matched case-sensitively, ordered by ObjectID.
func (s *CatalogService) ByProducer(ctx context.Context, name string) ([]model.CatalogObject, error) {
	all, err := s.objects.List(ctx)
	if err != nil {
		return nil, storeFailure("object", fmt.Errorf("service/catalog: listing objects: %w", err))
	}
	out := make([]model.CatalogObject, 0)
	if name == "" {
		return out, nil
	}
	for _, o := range all {
		if strings.Contains(o.ProducerName, name) {
			out = append(out, o)
		}
	}
	sortObjects(out)
	return out, nil
}

func containsFold(s, sub string) bool {
	return sub == "" || strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func sortObjects(objs []model.CatalogObject) {
	sort.Slice(objs, func(i, j int) bool {
		if objs[i].ObjectID == objs[j].ObjectID {
			return objs[i].ID < objs[j].ID
		}
		return objs[i].ObjectID < objs[j].ObjectID
	})
}

// safeFilename keeps the base name and replaces anything outside a
// conservative alphabet.
func safeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}
