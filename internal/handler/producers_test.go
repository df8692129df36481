package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/family-catalog/internal/blob"
	"github.com/sakif/family-catalog/internal/handler"
	"github.com/sakif/family-catalog/internal/model"
	"github.com/sakif/family-catalog/internal/repository"
	"github.com/sakif/family-catalog/internal/repository/memory"
	"github.com/sakif/family-catalog/internal/service"
)

type producerFixture struct {
	producers *handler.ProducerHandler
	objects   *handler.ObjectHandler
}

func newProducerFixture(t *testing.T) *producerFixture {
	t.Helper()
	store := memory.New()
	blobs, err := blob.NewFS(t.TempDir(), "/media/")
	require.NoError(t, err)
	catalog := service.NewCatalogService(repository.NewKVObjects(store), blobs, discard)
	producers := service.NewProducerService(repository.NewKVProducers(store), catalog, discard)
	return &producerFixture{
		producers: handler.NewProducerHandler(producers, discard),
		objects:   handler.NewObjectHandler(catalog, discard),
	}
}

func (f *producerFixture) add(t *testing.T, sess *model.AuthorizedSession, body string) model.Producer {
	t.Helper()
	rr := httptest.NewRecorder()
	f.producers.HandleCreate(rr, withSession(httptest.NewRequest(http.MethodPost, "/api/producers", strings.NewReader(body)), sess))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var p model.Producer
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&p))
	return p
}

func TestProducerHandler_CreateAndDetail(t *testing.T) {
	f := newProducerFixture(t)
	owner := regularSession("u1", "u1@x.com")
	p := f.add(t, owner, `{"name":"Wedgwood","biography":"potter"}`)
	assert.Equal(t, "u1", p.CreatedByUID)

	rr := httptest.NewRecorder()
	f.objects.HandleCreate(rr, withSession(httptest.NewRequest(http.MethodPost, "/api/objects",
		strings.NewReader(`{"object_id":"OBJ-1","producer_name":"Josiah Wedgwood"}`)), owner))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = httptest.NewRecorder()
	f.producers.HandleGet(rr, withParams(httptest.NewRequest(http.MethodGet, "/", nil), "id", p.ID))
	require.Equal(t, http.StatusOK, rr.Code)
	var detail service.ProducerDetail
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&detail))
	assert.Equal(t, "Wedgwood", detail.Producer.Name)
	require.Len(t, detail.Objects, 1)
	assert.Equal(t, "OBJ-1", detail.Objects[0].ObjectID)

	rr = httptest.NewRecorder()
	f.producers.HandleGet(rr, withParams(httptest.NewRequest(http.MethodGet, "/", nil), "id", "missing"))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestProducerHandler_CreateRules(t *testing.T) {
	f := newProducerFixture(t)

	rr := httptest.NewRecorder()
	f.producers.HandleCreate(rr, httptest.NewRequest(http.MethodPost, "/api/producers", strings.NewReader(`{"name":"Ada"}`)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	f.producers.HandleCreate(rr, withSession(httptest.NewRequest(http.MethodPost, "/api/producers",
		strings.NewReader(`{"name":""}`)), regularSession("u1", "u1@x.com")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	f.add(t, regularSession("u1", "u1@x.com"), `{"name":"Ada"}`)
	rr = httptest.NewRecorder()
	f.producers.HandleCreate(rr, withSession(httptest.NewRequest(http.MethodPost, "/api/producers",
		strings.NewReader(`{"name":"Ada"}`)), regularSession("u2", "u2@x.com")))
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestProducerHandler_UpdateDeleteOwnership(t *testing.T) {
	f := newProducerFixture(t)
	owner := regularSession("u1", "u1@x.com")
	other := regularSession("u2", "u2@x.com")
	p := f.add(t, owner, `{"name":"Ada"}`)

	update := func(sess *model.AuthorizedSession) int {
		rr := httptest.NewRecorder()
		req := withParams(withSession(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"name":"Ada","otherDates":"1815"}`)), sess), "id", p.ID)
		f.producers.HandleUpdate(rr, req)
		return rr.Code
	}
	remove := func(sess *model.AuthorizedSession) int {
		rr := httptest.NewRecorder()
		f.producers.HandleDelete(rr, withParams(withSession(httptest.NewRequest(http.MethodDelete, "/", nil), sess), "id", p.ID))
		return rr.Code
	}

	assert.Equal(t, http.StatusForbidden, update(other))
	assert.Equal(t, http.StatusOK, update(owner))
	assert.Equal(t, http.StatusForbidden, remove(other))
	assert.Equal(t, http.StatusNoContent, remove(adminSession()))
	assert.Equal(t, http.StatusNotFound, remove(owner))
}

func TestProducerHandler_List(t *testing.T) {
	f := newProducerFixture(t)
	owner := regularSession("u1", "u1@x.com")
	f.add(t, owner, `{"name":"Wedgwood"}`)
	f.add(t, owner, `{"name":"Ada"}`)

	list := func(query string) []model.Producer {
		rr := httptest.NewRecorder()
		f.producers.HandleList(rr, httptest.NewRequest(http.MethodGet, "/api/producers"+query, nil))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var ps []model.Producer
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&ps))
		return ps
	}

	all := list("")
	require.Len(t, all, 2)
	assert.Equal(t, "Ada", all[0].Name)

	some := list("?name=wood")
	require.Len(t, some, 1)
	assert.Equal(t, "Wedgwood", some[0].Name)

	exact := list("?exact=Ada")
	require.Len(t, exact, 1)
	assert.Equal(t, "Ada", exact[0].Name)

	rr := httptest.NewRecorder()
	f.producers.HandleList(rr, httptest.NewRequest(http.MethodGet, "/api/producers?exact=Nobody", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
