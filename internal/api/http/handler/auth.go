package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dtroode/authkeeper/internal/api/http/response"
	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/model"
	"github.com/dtroode/authkeeper/internal/useragent"
)

// AuthService defines the authentication use cases served over HTTP.
type AuthService interface {
	Register(ctx context.Context, in model.RegisterInput, meta model.SessionMeta) (model.Session, error)
	Login(ctx context.Context, email, password string, meta model.SessionMeta) (model.Session, error)
	Refresh(ctx context.Context, refreshToken string, meta model.SessionMeta) (model.Session, error)
	Logout(ctx context.Context, refreshToken string) error
	OAuthAuthURL(provider model.Provider, state string) (string, error)
	OAuthLogin(ctx context.Context, provider model.Provider, code string, meta model.SessionMeta) (model.Session, error)
}

type registerRequest struct {
	Email           string `json:"email" validate:"required,email,min=5,max=255"`
	Password        string `json:"password" validate:"required,min=8,max=72,password"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	FirstName       string `json:"firstName" validate:"required,alpha,max=50"`
	LastName        string `json:"lastName" validate:"required,alpha,max=50"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

type sessionResponse struct {
	AccessToken          string    `json:"accessToken"`
	AccessTokenExpiresAt time.Time `json:"accessTokenExpiresAt"`
}

// Auth handles the /api/v1/auth endpoints.
type Auth struct {
	responder
	authService AuthService
	validator   *Validator
	// statePath scopes the OAuth state cookie to the auth routes.
	statePath string
}

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, validator *Validator, cookies Cookies, statePath string, logger *logger.Logger) *Auth {
	return &Auth{
		responder:   responder{cookies: cookies, logger: logger},
		authService: authService,
		validator:   validator,
		statePath:   statePath,
	}
}

func sessionMeta(r *http.Request) model.SessionMeta {
	return useragent.Extract(r.UserAgent(), r.RemoteAddr)
}

func (h *Auth) respondSession(w http.ResponseWriter, status int, s model.Session) {
	h.cookies.SetRefresh(w, s.RefreshToken, s.RefreshTokenExpiresAt)
	response.JSON(w, status, sessionResponse{
		AccessToken:          s.AccessToken,
		AccessTokenExpiresAt: s.AccessTokenExpiresAt,
	})
}

// Register creates a local account and starts a session.
func (h *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.validator.Decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	session, err := h.authService.Register(r.Context(), model.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, sessionMeta(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.respondSession(w, http.StatusCreated, session)
}

// Login starts a session for valid credentials.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.validator.Decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	session, err := h.authService.Login(r.Context(), req.Email, req.Password, sessionMeta(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.respondSession(w, http.StatusOK, session)
}

// RefreshToken rotates the refresh cookie. Rejected tokens are cleared from the client.
func (h *Auth) RefreshToken(w http.ResponseWriter, r *http.Request) {
	session, err := h.authService.Refresh(r.Context(), h.cookies.Refresh(r), sessionMeta(r))
	if err != nil {
		if model.KindOf(err) == model.KindAuth {
			h.cookies.ClearRefresh(w)
		}
		h.fail(w, r, err)
		return
	}

	h.respondSession(w, http.StatusOK, session)
}

// Logout revokes the presented refresh token and clears the cookie.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), h.cookies.Refresh(r)); err != nil {
		h.fail(w, r, err)
		return
	}

	h.cookies.ClearRefresh(w)
	w.WriteHeader(http.StatusNoContent)
}

// OAuthStart redirects to the provider consent page.
func (h *Auth) OAuthStart(w http.ResponseWriter, r *http.Request) {
	provider, err := model.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		h.fail(w, r, model.NewValidationError(err))
		return
	}

	state := uuid.NewString()
	target, err := h.authService.OAuthAuthURL(provider, state)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.cookies.setState(w, h.statePath, state)
	http.Redirect(w, r, target, http.StatusFound)
}

// OAuthCallback completes the provider flow and starts a session.
func (h *Auth) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider, err := model.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		h.fail(w, r, model.NewValidationError(err))
		return
	}

	query := r.URL.Query()
	stateCookie, err := r.Cookie(oauthStateCookie)
	h.cookies.clearState(w, h.statePath)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != query.Get("state") {
		h.fail(w, r, model.NewValidationErrorf("invalid oauth state"))
		return
	}

	if reason := query.Get("error"); reason != "" {
		h.fail(w, r, model.NewAuthError(fmt.Errorf("%s authorization denied: %s", provider, reason)))
		return
	}

	code := query.Get("code")
	if code == "" {
		h.fail(w, r, model.NewValidationErrorf("authorization code is missing"))
		return
	}

	session, err := h.authService.OAuthLogin(r.Context(), provider, code, sessionMeta(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.respondSession(w, http.StatusCreated, session)
}
