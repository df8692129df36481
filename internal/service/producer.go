package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/rs/xid"

	"github.com/sakif/family-catalog/internal/apperror"
	"github.com/sakif/family-catalog/internal/model"
	"github.com/sakif/family-catalog/internal/repository"
)

const MaxProducerNameLength = 200

// ProducerInput holds the user-editable fields of a producer.
type ProducerInput struct {
	Name         string `json:"name"`
	AlsoKnownAs  string `json:"alsoKnownAs"`
	Biography    string `json:"biography"`
	Bibliography string `json:"bibliography"`
	OtherDates   string `json:"otherDates"`
}

func (in ProducerInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, MaxProducerNameLength)),
		validation.Field(&in.AlsoKnownAs, validation.Length(0, MaxFieldLength)),
		validation.Field(&in.Biography, validation.Length(0, MaxDescriptionLength)),
		validation.Field(&in.Bibliography, validation.Length(0, MaxDescriptionLength)),
		validation.Field(&in.OtherDates, validation.Length(0, MaxFieldLength)),
	)
}

func (in *ProducerInput) trim() {
	in.Name = strings.TrimSpace(in.Name)
	in.AlsoKnownAs = strings.TrimSpace(in.AlsoKnownAs)
	in.Biography = strings.TrimSpace(in.Biography)
	in.Bibliography = strings.TrimSpace(in.Bibliography)
	in.OtherDates = strings.TrimSpace(in.OtherDates)
}

// ObjectsByProducer finds the records attributed to a producer name.
type ObjectsByProducer interface {
	ByProducer(ctx context.Context, name string) ([]model.CatalogObject, error)
}

// ProducerDetail is a producer together with the records whose
// producer_name mentions it.
type ProducerDetail struct {
	Producer *model.Producer       `json:"producer"`
	Objects  []model.CatalogObject `json:"objects"`
}

// ProducerService manages producer entries. Any signed-in user may add one;
// changing or removing it follows the same rule as records.
//
// Names are unique (exact match) so that a producer_name can be resolved
// to a single entry.
type ProducerService struct {
	producers repository.ProducerRepository
	objects   ObjectsByProducer
	logger    *slog.Logger
	now       func() time.Time
}

func NewProducerService(producers repository.ProducerRepository, objects ObjectsByProducer, logger *slog.Logger) *ProducerService {
	return &ProducerService{
		producers: producers,
		objects:   objects,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *ProducerService) Create(ctx context.Context, sess *model.AuthorizedSession, in ProducerInput) (*model.Producer, error) {
	if sess == nil {
		return nil, apperror.Unauthorized("sign in to add producers")
	}
	in.trim()
	if err := in.Validate(); err != nil {
		return nil, validationError(err)
	}
	if err := s.ensureNameFree(ctx, in.Name, ""); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &model.Producer{
		ID:             xid.New().String(),
		RelatedObjects: []string{},
		CreatedByUID:   sess.AccountID(),
		CreatedByEmail: sess.Identity.Email,
		CreationDate:   now,
		ModifiedDate:   now,
	}
	applyProducer(p, in)
	if err := s.producers.Create(ctx, p); err != nil {
		return nil, storeFailure("producer", fmt.Errorf("service/producer: creating producer: %w", err))
	}

	s.logger.Info("producer created", slog.String("id", p.ID))
	return p, nil
}

func (s *ProducerService) Get(ctx context.Context, id string) (*model.Producer, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.ValidationFailed("id", "producer ID is required")
	}
	p, err := s.producers.GetByID(ctx, id)
	if err != nil {
		return nil, storeFailure("producer", err)
	}
	return p, nil
}

// Detail returns the producer and the records attributed to it.
func (s *ProducerService) Detail(ctx context.Context, id string) (*ProducerDetail, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	objs, err := s.objects.ByProducer(ctx, p.Name)
	if err != nil {
		return nil, err
	}
	return &ProducerDetail{Producer: p, Objects: objs}, nil
}

// FindByName resolves an exact producer name.
func (s *ProducerService) FindByName(ctx context.Context, name string) (*model.Producer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "producer name is required")
	}
	all, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Name == name {
			return &all[i], nil
		}
	}
	return nil, apperror.NotFound("producer", name)
}

// List returns producers ordered by name. A non-empty filter keeps names
// containing it, ignoring case.
func (s *ProducerService) List(ctx context.Context, filter string) ([]model.Producer, error) {
	all, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Producer, 0, len(all))
	for _, p := range all {
		if containsFold(p.Name, filter) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Update replaces the editable fields. RelatedObjects and the creator are
// kept.
func (s *ProducerService) Update(ctx context.Context, sess *model.AuthorizedSession, id string, in ProducerInput) (*model.Producer, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Can(sess, p.CreatedByUID); err != nil {
		return nil, err
	}
	in.trim()
	if err := in.Validate(); err != nil {
		return nil, validationError(err)
	}
	if in.Name != p.Name {
		if err := s.ensureNameFree(ctx, in.Name, p.ID); err != nil {
			return nil, err
		}
	}

	applyProducer(p, in)
	p.ModifiedDate = s.now().UTC()
	if err := s.producers.Update(ctx, p); err != nil {
		return nil, storeFailure("producer", fmt.Errorf("service/producer: updating producer %s: %w", id, err))
	}
	return p, nil
}

func (s *ProducerService) Delete(ctx context.Context, sess *model.AuthorizedSession, id string) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := Can(sess, p.CreatedByUID); err != nil {
		return err
	}
	if err := s.producers.Delete(ctx, id); err != nil {
		return storeFailure("producer", fmt.Errorf("service/producer: deleting producer %s: %w", id, err))
	}
	s.logger.Info("producer deleted", slog.String("id", id))
	return nil
}

func (s *ProducerService) list(ctx context.Context) ([]model.Producer, error) {
	all, err := s.producers.List(ctx)
	if err != nil {
		return nil, storeFailure("producer", fmt.Errorf("service/producer: listing producers: %w", err))
	}
	return all, nil
}

func (s *ProducerService) ensureNameFree(ctx context.Context, name, selfID string) error {
	all, err := s.list(ctx)
	if err != nil {
		return err
	}
	for _, p := range all {
		if p.Name == name && p.ID != selfID {
			return apperror.Conflict("producer", name)
		}
	}
	return nil
}

func applyProducer(p *model.Producer, in ProducerInput) {
	p.Name = in.Name
	p.AlsoKnownAs = in.AlsoKnownAs
	p.Biography = in.Biography
	p.Bibliography = in.Bibliography
	p.OtherDates = in.OtherDates
}
