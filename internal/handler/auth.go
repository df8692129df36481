package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/family-catalog/internal/apperror"
	"github.com/sakif/family-catalog/internal/auth"
	"github.com/sakif/family-catalog/internal/identkey"
	"github.com/sakif/family-catalog/internal/model"
	"github.com/sakif/family-catalog/internal/session"
)

const oauthStateCookie = "oauth_state"

// Registrar is implemented by *service.RegistrationService.
type Registrar interface {
	Register(ctx context.Context, email, password string) (model.RegistrationOutcome, error)
}

// Authenticator is implemented by *auth.LocalProvider.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (model.Identity, error)
	SignInExternal(ctx context.Context, email, provider string) (model.Identity, error)
	SignOut(ctx context.Context, identity model.Identity) error
	VerifyEmail(ctx context.Context, token string) (model.Identity, error)
	IssueSession(sess *model.AuthorizedSession) (string, error)
}

// GitHubExchanger is implemented by *auth.GitHubProvider.
type GitHubExchanger interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

type AuthHandler struct {
	registrar Registrar
	provider  Authenticator
	github    GitHubExchanger
	sessions  *session.State
	secure    bool
	logger    *slog.Logger
}

// NewAuthHandler wires the auth routes. github may be nil when GitHub
// sign-in is not configured. secure marks cookies Secure.
func NewAuthHandler(
	registrar Registrar,
	provider Authenticator,
	github GitHubExchanger,
	sessions *session.State,
	secure bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		registrar: registrar,
		provider:  provider,
		github:    github,
		sessions:  sessions,
		secure:    secure,
		logger:    logger,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	Status  model.RegistrationOutcome `json:"status"`
	Message string                    `json:"message"`
}

// HandleRegister handles POST /auth/register.
// 202 means the request was queued; 201 means the account exists.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	outcome, err := h.registrar.Register(r.Context(), identkey.Normalize(req.Email), req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	switch outcome {
	case model.OutcomePendingApproval:
		writeJSON(w, http.StatusAccepted, registerResponse{
			Status:  outcome,
			Message: "Your registration request has been submitted for approval.",
		})
	default:
		writeJSON(w, http.StatusCreated, registerResponse{
			Status:  outcome,
			Message: "Registration successful. Please check your email to verify your account.",
		})
	}
}

// HandleLogin handles POST /auth/login. The session guard runs inside
// SignIn; a rejected identity never gets a cookie.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	identity, err := h.provider.SignIn(r.Context(), identkey.Normalize(req.Email), req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	sess, err := h.startSession(w, identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// HandleLogout handles POST /auth/logout.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := auth.SessionFromContext(r.Context()); sess != nil {
		if err := h.provider.SignOut(r.Context(), sess.Identity); err != nil {
			h.logger.Error("logout: revoking sessions failed",
				slog.String("account_id", sess.AccountID()),
				slog.String("error", err.Error()),
			)
			writeError(w, err)
			return
		}
		h.sessions.Publish(session.Event{Kind: session.EventSignedOut, Identity: sess.Identity})
	}

	h.clearCookie(w, auth.CookieName)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleVerify handles GET /auth/verify?token=. When the request carries a
// session for the same account, its cookie is reissued with the verified
// flag set.
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, apperror.ValidationFailed("token", "token is required"))
		return
	}

	identity, err := h.provider.VerifyEmail(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	if sess := auth.SessionFromContext(r.Context()); sess != nil && sess.AccountID() == identity.AccountID {
		refreshed := *sess
		refreshed.EmailVerified = true
		refreshed.Identity.EmailVerified = true
		if err := h.setSessionCookie(w, &refreshed); err != nil {
			h.logger.Warn("verify: reissuing session failed", slog.String("error", err.Error()))
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

// HandleMe handles GET /api/me.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if sess == nil {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// HandleGitHubLogin handles GET /auth/github/login.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback handles GET /auth/github/callback. The GitHub
// identity goes through the same guard as a password sign-in. Outcomes are
// reported to the browser as /?auth=<kind>.
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("github callback: state mismatch")
		writeError(w, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}
	h.clearCookie(w, oauthStateCookie)

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		if errors.Is(err, auth.ErrNoVerifiedEmail) {
			http.Redirect(w, r, "/?auth=unverified_email", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/?auth=failed", http.StatusSeeOther)
		return
	}

	identity, err := h.provider.SignInExternal(r.Context(), ghUser.Email, auth.ProviderGitHub)
	if err != nil {
		_, kind, _ := errorKind(err)
		h.logger.Info("github callback: sign-in refused", slog.String("kind", kind))
		http.Redirect(w, r, "/?auth="+kind, http.StatusSeeOther)
		return
	}

	if _, err := h.startSession(w, identity); err != nil {
		http.Redirect(w, r, "/?auth=failed", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// startSession picks up the session the guard published for identity and
// stores it in the cookie.
func (h *AuthHandler) startSession(w http.ResponseWriter, identity model.Identity) (*model.AuthorizedSession, error) {
	sess, ok := h.sessions.Current(identity.AccountID)
	if !ok {
		return nil, apperror.Unauthorized("session ended before it could be issued, please sign in again")
	}
	if err := h.setSessionCookie(w, sess); err != nil {
		return nil, err
	}
	h.logger.Info("session issued",
		slog.String("account_id", sess.AccountID()),
		slog.String("user_type", string(sess.UserType)),
	)
	return sess, nil
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sess *model.AuthorizedSession) error {
	token, err := h.provider.IssueSession(sess)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
