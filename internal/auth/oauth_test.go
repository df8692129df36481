package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeGitHub serves the token endpoint and the two API calls Exchange makes.
func fakeGitHub(t *testing.T, emails []githubEmail) *GitHubProvider {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "gho_test", "token_type": "bearer"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gho_test", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(GitHubUser{ID: 42, Login: "octo"})
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(emails)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := NewGitHubProvider("client", "secret", "http://localhost/auth/github/callback")
	p.config.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/authorize", TokenURL: srv.URL + "/token"}
	p.apiBase = srv.URL
	return p
}

func TestExchange_UsesVerifiedPrimary(t *testing.T) {
	p := fakeGitHub(t, []githubEmail{
		{Email: "old@x.com", Primary: false, Verified: true},
		{Email: "Octo@X.com", Primary: true, Verified: true},
	})

	user, err := p.Exchange(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "Octo@X.com", user.Email)
}

func TestExchange_UnverifiedPrimary(t *testing.T) {
	p := fakeGitHub(t, []githubEmail{{Email: "octo@x.com", Primary: true, Verified: false}})

	_, err := p.Exchange(context.Background(), "code")
	assert.True(t, errors.Is(err, ErrNoVerifiedEmail))
}

func TestAuthURL_CarriesState(t *testing.T) {
	p := NewGitHubProvider("client", "secret", "http://localhost/cb")

	u := p.AuthURL("cv37rs3pp9olc6atsptg")
	assert.Contains(t, u, "state=cv37rs3pp9olc6atsptg")
	assert.Contains(t, u, "client_id=client")
}
