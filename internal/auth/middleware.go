package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/sakif/family-catalog/internal/apperror"
	"github.com/sakif/family-catalog/internal/model"
)

// CookieName is the HttpOnly cookie that carries the session token.
const CookieName = "token"

type contextKey string

const sessionKey contextKey = "session"

// SessionValidator turns a raw token into the session it stands for.
// *LocalProvider implements it.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*model.AuthorizedSession, error)
}

// RequireAuth rejects requests without a valid, unrevoked session cookie.
func RequireAuth(v SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessionFromRequest(r, v)
			if err != nil {
				if errors.Is(err, apperror.ErrLookupFailed) {
					deny(w, http.StatusServiceUnavailable, `{"error":"lookup_failed","message":"session check is temporarily unavailable, please try again"}`)
					return
				}
				deny(w, http.StatusUnauthorized, `{"error":"unauthorized","message":"valid authentication required"}`)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// OptionalAuth attaches the session when there is a valid one and lets
// anonymous requests through otherwise.
func OptionalAuth(v SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sess, err := sessionFromRequest(r, v); err == nil {
				r = r.WithContext(WithSession(r.Context(), sess))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess *model.AuthorizedSession) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// SessionFromContext returns the session RequireAuth or OptionalAuth put
// into the context, or nil for an anonymous request.
func SessionFromContext(ctx context.Context) *model.AuthorizedSession {
	sess, _ := ctx.Value(sessionKey).(*model.AuthorizedSession)
	return sess
}

func sessionFromRequest(r *http.Request, v SessionValidator) (*model.AuthorizedSession, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, err
	}
	return v.Validate(r.Context(), cookie.Value)
}

func deny(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body + "\n"))
}
