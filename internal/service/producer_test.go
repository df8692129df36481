package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/family-catalog/internal/apperror"
	"github.com/sakif/family-catalog/internal/model"
	"github.com/sakif/family-catalog/internal/repository"
)

type producerFixture struct {
	*catalogFixture
	producers *ProducerService
}

func newProducerFixture(t *testing.T) *producerFixture {
	t.Helper()
	cf := newCatalogFixture(t)
	svc := NewProducerService(repository.NewKVProducers(cf.store), cf.svc, discardLogger())
	now := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return &producerFixture{catalogFixture: cf, producers: svc}
}

func (f *producerFixture) add(t *testing.T, sess *model.AuthorizedSession, in ProducerInput) *model.Producer {
	t.Helper()
	p, err := f.producers.Create(context.Background(), sess, in)
	require.NoError(t, err)
	return p
}

func TestProducerCreate(t *testing.T) {
	f := newProducerFixture(t)

	p := f.add(t, alice, ProducerInput{Name: "  Josiah Wedgwood ", AlsoKnownAs: "Wedgwood"})
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Josiah Wedgwood", p.Name)
	assert.Equal(t, "alice", p.CreatedByUID)
	assert.Equal(t, []string{}, p.RelatedObjects)

	stored, err := f.producers.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Wedgwood", stored.AlsoKnownAs)
}

func TestProducerCreate_Rules(t *testing.T) {
	f := newProducerFixture(t)
	ctx := context.Background()

	_, err := f.producers.Create(ctx, nil, ProducerInput{Name: "Ada"})
	assert.True(t, errors.Is(err, apperror.ErrUnauthorized))

	_, err = f.producers.Create(ctx, alice, ProducerInput{Name: "   "})
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	_, err = f.producers.Create(ctx, alice, ProducerInput{Name: strings.Repeat("x", MaxProducerNameLength+1)})
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	f.add(t, alice, ProducerInput{Name: "Ada"})
	_, err = f.producers.Create(ctx, bob, ProducerInput{Name: "Ada"})
	assert.True(t, errors.Is(err, apperror.ErrConflict), "names are unique")
}

func TestProducerUpdate_CapabilityAndPreservedFields(t *testing.T) {
	f := newProducerFixture(t)
	ctx := context.Background()
	p := f.add(t, alice, ProducerInput{Name: "Ada"})

	// Entries written by older clients can carry stored related ids.
	p.RelatedObjects = []string{"OBJ-001"}
	require.NoError(t, repository.NewKVProducers(f.store).Update(ctx, p))

	_, err := f.producers.Update(ctx, bob, p.ID, ProducerInput{Name: "Bob's Ada"})
	assert.True(t, errors.Is(err, apperror.ErrForbidden))

	updated, err := f.producers.Update(ctx, alice, p.ID, ProducerInput{Name: "Ada Lovelace", Biography: "potter"})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Name)
	assert.Equal(t, []string{"OBJ-001"}, updated.RelatedObjects)
	assert.Equal(t, "alice", updated.CreatedByUID)

	_, err = f.producers.Update(ctx, boss, p.ID, ProducerInput{Name: "Ada Lovelace", OtherDates: "1815-1852"})
	require.NoError(t, err, "admins may edit anything; keeping the same name is not a conflict")

	f.add(t, bob, ProducerInput{Name: "Grace"})
	_, err = f.producers.Update(ctx, alice, p.ID, ProducerInput{Name: "Grace"})
	assert.True(t, errors.Is(err, apperror.ErrConflict))
}

func TestProducerDelete(t *testing.T) {
	f := newProducerFixture(t)
	ctx := context.Background()
	p := f.add(t, alice, ProducerInput{Name: "Ada"})

	assert.True(t, errors.Is(f.producers.Delete(ctx, bob, p.ID), apperror.ErrForbidden))
	require.NoError(t, f.producers.Delete(ctx, boss, p.ID))

	_, err := f.producers.Get(ctx, p.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assert.True(t, errors.Is(f.producers.Delete(ctx, alice, p.ID), apperror.ErrNotFound))
}

func TestProducerDelete_WriteFailsIsUnavailable(t *testing.T) {
	f := newProducerFixture(t)
	ctx := context.Background()
	p := f.add(t, alice, ProducerInput{Name: "Ada"})
	f.store.delFails["producers"] = 1

	err := f.producers.Delete(ctx, alice, p.ID)
	assert.True(t, errors.Is(err, apperror.ErrUnavailable))

	_, err = f.producers.Get(ctx, p.ID)
	assert.NoError(t, err)
}

func TestProducerListAndFind(t *testing.T) {
	f := newProducerFixture(t)
	ctx := context.Background()
	f.add(t, alice, ProducerInput{Name: "Wedgwood"})
	f.add(t, alice, ProducerInput{Name: "Ada"})
	f.add(t, bob, ProducerInput{Name: "Spode"})

	all, err := f.producers.List(ctx, "")
	require.NoError(t, err)
	names := make([]string, 0, len(all))
	for _, p := range all {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Ada", "Spode", "Wedgwood"}, names)

	some, err := f.producers.List(ctx, "WOOD")
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "Wedgwood", some[0].Name)

	found, err := f.producers.FindByName(ctx, "Spode")
	require.NoError(t, err)
	assert.Equal(t, "Spode", found.Name)

	_, err = f.producers.FindByName(ctx, "spode")
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "names match exactly")
}

func TestProducerDetail_RelatedObjects(t *testing.T) {
	f := newProducerFixture(t)
	ctx := context.Background()
	p := f.add(t, alice, ProducerInput{Name: "Wedgwood"})
	f.create(t, alice, ObjectInput{ObjectID: "OBJ-2", ProducerName: "Josiah Wedgwood"})
	f.create(t, bob, ObjectInput{ObjectID: "OBJ-1", ProducerName: "Wedgwood & Bentley"})
	f.create(t, bob, ObjectInput{ObjectID: "OBJ-3", ProducerName: "Spode"})

	detail, err := f.producers.Detail(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Wedgwood", detail.Producer.Name)
	ids := make([]string, 0, len(detail.Objects))
	for _, o := range detail.Objects {
		ids = append(ids, o.ObjectID)
	}
	assert.Equal(t, []string{"OBJ-1", "OBJ-2"}, ids)

	_, err = f.producers.Detail(ctx, "missing")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}
