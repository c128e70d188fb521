package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpctx "github.com/dtroode/authkeeper/internal/api/http/context"
	"github.com/dtroode/authkeeper/internal/api/http/handler"
	"github.com/dtroode/authkeeper/internal/mocks"
	"github.com/dtroode/authkeeper/internal/model"
	"github.com/dtroode/authkeeper/internal/testutil"
)

var testCookies = handler.Cookies{Name: "refreshToken", Path: "/"}

type fixture struct {
	auth     *mocks.AuthService
	sessions *mocks.SessionService
	handler  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithOptions(t, Options{})
}

func newFixtureWithOptions(t *testing.T, opts Options) *fixture {
	t.Helper()

	f := &fixture{
		auth:     mocks.NewAuthService(t),
		sessions: mocks.NewSessionService(t),
	}
	opts.Health = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	f.handler = New(f.auth, f.sessions, f.sessions, httpctx.NewManager(), testCookies,
		opts, testutil.MakeNoopLogger()).Register()
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	return req
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Fields  []struct {
			Field string `json:"field"`
			Rule  string `json:"rule"`
		} `json:"fields"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func testSession() model.Session {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return model.Session{
		UserID:                1,
		AccessToken:           "access.jwt",
		AccessTokenExpiresAt:  now.Add(15 * time.Minute),
		RefreshToken:          "opaque-secret",
		RefreshTokenExpiresAt: now.Add(7 * 24 * time.Hour),
	}
}

const validRegister = `{"email":"ada@example.com","password":"Secret#123","confirmPassword":"Secret#123","firstName":"Ada","lastName":"Lovelace"}`

func TestRegister(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		f := newFixture(t)
		f.auth.On("Register", mock.Anything, model.RegisterInput{
			Email: "ada@example.com", Password: "Secret#123", FirstName: "Ada", LastName: "Lovelace",
		}, mock.MatchedBy(func(m model.SessionMeta) bool {
			return m.DeviceType != nil && *m.DeviceType == model.DeviceDesktop
		})).Return(testSession(), nil)

		rec := f.do(jsonRequest(http.MethodPost, "/api/v1/auth/register", validRegister))

		require.Equal(t, http.StatusCreated, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "access.jwt", body["accessToken"])
		assert.Equal(t, "2025-01-01T00:15:00Z", body["accessTokenExpiresAt"])
		assert.NotContains(t, rec.Body.String(), "opaque-secret")

		c := findCookie(rec, "refreshToken")
		require.NotNil(t, c)
		assert.Equal(t, "opaque-secret", c.Value)
		assert.True(t, c.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.Equal(t, "/", c.Path)
		assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name      string
			body      string
			wantField string
		}{
			{name: "password mismatch", body: `{"email":"ada@example.com","password":"Secret#123","confirmPassword":"Secret#124","firstName":"Ada","lastName":"Lovelace"}`, wantField: "confirmPassword"},
			{name: "weak password", body: `{"email":"ada@example.com","password":"secret123","confirmPassword":"secret123","firstName":"Ada","lastName":"Lovelace"}`, wantField: "password"},
			{name: "bad email", body: `{"email":"nope","password":"Secret#123","confirmPassword":"Secret#123","firstName":"Ada","lastName":"Lovelace"}`, wantField: "email"},
			{name: "non-letter name", body: `{"email":"ada@example.com","password":"Secret#123","confirmPassword":"Secret#123","firstName":"Ada1","lastName":"Lovelace"}`, wantField: "firstName"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t)
				rec := f.do(jsonRequest(http.MethodPost, "/api/v1/auth/register", tt.body))

				require.Equal(t, http.StatusBadRequest, rec.Code)
				body := decodeError(t, rec)
				assert.Equal(t, "validation", body.Error.Code)
				require.NotEmpty(t, body.Error.Fields)
				assert.Equal(t, tt.wantField, body.Error.Fields[0].Field)
			})
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(jsonRequest(http.MethodPost, "/api/v1/auth/register", `{"email":"a@b.cd","admin":true}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("conflict", func(t *testing.T) {
		f := newFixture(t)
		f.auth.On("Register", mock.Anything, mock.Anything, mock.Anything).
			Return(model.Session{}, model.NewConflictError(model.ErrEmailTaken))

		rec := f.do(jsonRequest(http.MethodPost, "/api/v1/auth/register", validRegister))

		require.Equal(t, http.StatusConflict, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "email_taken", body.Error.Code)
		assert.Nil(t, findCookie(rec, "refreshToken"))
	})

	t.Run("internal error is hidden", func(t *testing.T) {
		f := newFixture(t)
		f.auth.On("Register", mock.Anything, mock.Anything, mock.Anything).
			Return(model.Session{}, errors.New("pq: connection refused"))

		rec := f.do(jsonRequest(http.MethodPost, "/api/v1/auth/register", validRegister))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "internal server error", body.Error.Message)
		assert.NotContains(t, rec.Body.String(), "pq:")
	})
}

func TestLogin(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		f := newFixture(t)
		f.auth.On("Login", mock.Anything, "ada@example.com", "Secret#123", mock.Anything).Return(testSession(), nil)

		rec := f.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", `{"email":"ada@example.com","password":"Secret#123"}`))

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, findCookie(rec, "refreshToken"))
	})

	t.Run("invalid credentials", func(t *testing.T) {
		f := newFixture(t)
		f.auth.On("Login", mock.Anything, "ada@example.com", "wrong", mock.Anything).
			Return(model.Session{}, model.NewAuthError(model.ErrInvalidCredentials))

		rec := f.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", `{"email":"ada@example.com","password":"wrong"}`))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "invalid_credentials", body.Error.Code)
		assert.Equal(t, model.ErrInvalidCredentials.Error(), body.Error.Message)
	})

	t.Run("throttled", func(t *testing.T) {
		f := newFixture(t)
		f.auth.On("Login", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(model.Session{}, model.NewAuthError(model.ErrTooManyAttempts))

		rec := f.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", `{"email":"ada@example.com","password":"wrong"}`))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "too_many_attempts", decodeError(t, rec).Error.Code)
	})
}

func TestLogin_ClientAddress(t *testing.T) {
	ipIs := func(want string) any {
		return mock.MatchedBy(func(meta model.SessionMeta) bool {
			return meta.IPAddress != nil && *meta.IPAddress == want
		})
	}
	forged := func(ip string) *http.Request {
		req := jsonRequest(http.MethodPost, "/api/v1/auth/login", `{"email":"ada@example.com","password":"wrong"}`)
		req.RemoteAddr = "203.0.113.10:5555"
		req.Header.Set("X-Forwarded-For", ip)
		req.Header.Set("X-Real-IP", ip)
		return req
	}

	t.Run("forwarding headers ignored by default", func(t *testing.T) {
		f := newFixture(t)
		f.auth.On("Login", mock.Anything, "ada@example.com", "wrong", ipIs("203.0.113.10")).
			Return(model.Session{}, model.NewAuthError(model.ErrInvalidCredentials)).Times(3)

		for _, ip := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
			rec := f.do(forged(ip))
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		}
	})

	t.Run("forwarding headers honoured behind trusted proxy", func(t *testing.T) {
		f := newFixtureWithOptions(t, Options{TrustProxy: true})
		f.auth.On("Login", mock.Anything, "ada@example.com", "wrong", ipIs("1.1.1.1")).
			Return(model.Session{}, model.NewAuthError(model.ErrInvalidCredentials)).Once()

		rec := f.do(forged("1.1.1.1"))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRefreshToken(t *testing.T) {
	refreshRequest := func(token string) *http.Request {
		req := jsonRequest(http.MethodPost, "/api/v1/auth/refresh-token", "")
		if token != "" {
			req.AddCookie(&http.Cookie{Name: "refreshToken", Value: token})
		}
		return req
	}

	t.Run("rotates cookie", func(t *testing.T) {
		f := newFixture(t)
		rotated := testSession()
		rotated.RefreshToken = "next-secret"
		f.auth.On("Refresh", mock.Anything, "opaque-secret", mock.Anything).Return(rotated, nil)

		rec := f.do(refreshRequest("opaque-secret"))

		require.Equal(t, http.StatusOK, rec.Code)
		c := findCookie(rec, "refreshToken")
		require.NotNil(t, c)
		assert.Equal(t, "next-secret", c.Value)
	})

	t.Run("missing cookie", func(t *testing.T) {
		f := newFixture(t)
		f.auth.On("Refresh", mock.Anything, "", mock.Anything).
			Return(model.Session{}, model.NewAuthError(model.ErrRefreshTokenMissing))

		rec := f.do(refreshRequest(""))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "refresh_token_missing", decodeError(t, rec).Error.Code)
	})

	for _, tt := range []struct {
		name string
		err  error
		code string
	}{
		{name: "reuse clears cookie", err: model.NewSecurityError(model.ErrRefreshTokenReused), code: "refresh_token_reused"},
		{name: "expired clears cookie", err: model.NewAuthError(model.ErrRefreshTokenExpired), code: "refresh_token_expired"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.auth.On("Refresh", mock.Anything, "stolen", mock.Anything).Return(model.Session{}, tt.err)

			rec := f.do(refreshRequest("stolen"))

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Error.Code)
			c := findCookie(rec, "refreshToken")
			require.NotNil(t, c)
			assert.Empty(t, c.Value)
			assert.Less(t, c.MaxAge, 0)
		})
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	f.auth.On("Logout", mock.Anything, "opaque-secret").Return(nil)
	f.auth.On("Logout", mock.Anything, "").Return(nil)

	req := jsonRequest(http.MethodPost, "/api/v1/auth/logout", "")
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "opaque-secret"})
	rec := f.do(req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	c := findCookie(rec, "refreshToken")
	require.NotNil(t, c)
	assert.Less(t, c.MaxAge, 0)

	rec = f.do(jsonRequest(http.MethodPost, "/api/v1/auth/logout", ""))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestOAuth(t *testing.T) {
	t.Run("start redirects with state", func(t *testing.T) {
		f := newFixture(t)
		var state string
		f.auth.On("OAuthAuthURL", model.ProviderGitHub, mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { state = args.String(1) }).
			Return("https://github.com/login/oauth/authorize?state=x", nil)

		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/github", nil))

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://github.com/login/oauth/authorize?state=x", rec.Header().Get("Location"))
		c := findCookie(rec, "oauthState")
		require.NotNil(t, c)
		assert.Equal(t, state, c.Value)
		assert.Equal(t, AuthPrefix, c.Path)
		assert.True(t, c.HttpOnly)
	})

	t.Run("unknown provider", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/myspace", nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "unknown_provider", decodeError(t, rec).Error.Code)
	})

	callback := func(state, cookieState string, extra url.Values) *http.Request {
		q := url.Values{"state": {state}, "code": {"auth-code"}}
		for k, v := range extra {
			q[k] = v
		}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?"+q.Encode(), nil)
		if cookieState != "" {
			req.AddCookie(&http.Cookie{Name: "oauthState", Value: cookieState})
		}
		return req
	}

	t.Run("callback success", func(t *testing.T) {
		f := newFixture(t)
		f.auth.On("OAuthLogin", mock.Anything, model.ProviderGoogle, "auth-code", mock.Anything).Return(testSession(), nil)

		rec := f.do(callback("s1", "s1", nil))

		require.Equal(t, http.StatusCreated, rec.Code)
		require.NotNil(t, findCookie(rec, "refreshToken"))
		state := findCookie(rec, "oauthState")
		require.NotNil(t, state)
		assert.Less(t, state.MaxAge, 0)
	})

	t.Run("callback state mismatch", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(callback("s1", "other", nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = f.do(callback("s1", "", nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("callback denied by user", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(callback("s1", "s1", url.Values{"error": {"access_denied"}}))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("callback without email", func(t *testing.T) {
		f := newFixture(t)
		f.auth.On("OAuthLogin", mock.Anything, model.ProviderGoogle, "auth-code", mock.Anything).
			Return(model.Session{}, model.NewAuthError(model.ErrOAuthEmailMissing))

		rec := f.do(callback("s1", "s1", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "oauth_email_missing", decodeError(t, rec).Error.Code)
	})
}

func TestSessions(t *testing.T) {
	bearer := func(req *http.Request, token string) *http.Request {
		req.Header.Set("Authorization", "Bearer "+token)
		return req
	}

	t.Run("requires token", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/sessions", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("rejects invalid token", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.On("VerifyAccessToken", mock.Anything, "bad").
			Return(model.AccessClaims{}, model.NewAuthError(model.ErrInvalidAccessToken))

		rec := f.do(bearer(httptest.NewRequest(http.MethodGet, "/api/v1/auth/sessions", nil), "bad"))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("lists", func(t *testing.T) {
		f := newFixture(t)
		platform := "Linux"
		f.sessions.On("VerifyAccessToken", mock.Anything, "good").Return(model.AccessClaims{UserID: 5, Email: "a@b.c"}, nil)
		f.sessions.On("ListSessions", mock.Anything, int64(5)).Return([]model.SessionInfo{
			{ID: 11, Meta: model.SessionMeta{Platform: &platform}},
		}, nil)

		rec := f.do(bearer(httptest.NewRequest(http.MethodGet, "/api/v1/auth/sessions", nil), "good"))

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Sessions []model.SessionInfo `json:"sessions"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Sessions, 1)
		assert.Equal(t, int64(11), body.Sessions[0].ID)
		require.NotNil(t, body.Sessions[0].Meta.Platform)
		assert.Equal(t, "Linux", *body.Sessions[0].Meta.Platform)
	})

	t.Run("revoke all", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.On("VerifyAccessToken", mock.Anything, "good").Return(model.AccessClaims{UserID: 5}, nil)
		f.sessions.On("RevokeAll", mock.Anything, int64(5)).Return(int64(3), nil)

		rec := f.do(bearer(httptest.NewRequest(http.MethodPost, "/api/v1/auth/sessions/revoke-all", nil), "good"))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"revoked":3}`, rec.Body.String())
		c := findCookie(rec, "refreshToken")
		require.NotNil(t, c)
		assert.Less(t, c.MaxAge, 0)
	})

	t.Run("delete account", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.On("VerifyAccessToken", mock.Anything, "good").Return(model.AccessClaims{UserID: 5}, nil)
		f.sessions.On("DeleteAccount", mock.Anything, int64(5)).Return(int64(2), nil)

		rec := f.do(bearer(httptest.NewRequest(http.MethodDelete, "/api/v1/auth/me", nil), "good"))

		require.Equal(t, http.StatusNoContent, rec.Code)
		c := findCookie(rec, "refreshToken")
		require.NotNil(t, c)
		assert.Less(t, c.MaxAge, 0)
	})

	t.Run("delete account already gone", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.On("VerifyAccessToken", mock.Anything, "good").Return(model.AccessClaims{UserID: 5}, nil)
		f.sessions.On("DeleteAccount", mock.Anything, int64(5)).
			Return(int64(0), model.NewAuthError(model.ErrUserNotFound))

		rec := f.do(bearer(httptest.NewRequest(http.MethodDelete, "/api/v1/auth/me", nil), "good"))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "user_not_found", decodeError(t, rec).Error.Code)
	})

	t.Run("delete account requires token", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(httptest.NewRequest(http.MethodDelete, "/api/v1/auth/me", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
