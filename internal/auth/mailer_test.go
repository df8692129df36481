package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResendMailer_Sends(t *testing.T) {
	var got resendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	m, err := NewResendMailer("re_test", "catalog@x.com")
	require.NoError(t, err)
	m.baseURL = srv.URL

	link := "http://localhost:8080/auth/verify?token=a.b.c&x=1"
	require.NoError(t, m.SendVerification(context.Background(), "bob@x.com", link))

	assert.Equal(t, []string{"bob@x.com"}, got.To)
	assert.Equal(t, "catalog@x.com", got.From)
	assert.Contains(t, got.HTML, "token=a.b.c&amp;x=1")
}

func TestResendMailer_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "domain not verified", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	m, _ := NewResendMailer("re_test", "catalog@x.com")
	m.baseURL = srv.URL

	err := m.SendVerification(context.Background(), "bob@x.com", "http://x")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "domain not verified"))
}

func TestNewResendMailer_NeedsKey(t *testing.T) {
	_, err := NewResendMailer("", "catalog@x.com")
	assert.Error(t, err)
}
