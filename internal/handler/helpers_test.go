package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/family-catalog/internal/auth"
	"github.com/sakif/family-catalog/internal/model"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func regularSession(id, email string) *model.AuthorizedSession {
	return &model.AuthorizedSession{
		Identity:      model.Identity{AccountID: id, Email: email, EmailVerified: true, Provider: auth.ProviderPassword},
		EmailVerified: true,
		UserType:      model.UserTypeRegular,
	}
}

func adminSession() *model.AuthorizedSession {
	sess := regularSession("admin-1", "admin@x.com")
	sess.UserType = model.UserTypeAdmin
	return sess
}

// withSession attaches sess the way RequireAuth would.
func withSession(r *http.Request, sess *model.AuthorizedSession) *http.Request {
	return r.WithContext(auth.WithSession(r.Context(), sess))
}

// withParams sets chi URL parameters on r as the router would.
func withParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
