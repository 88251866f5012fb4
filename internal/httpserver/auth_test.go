package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/jam/internal/db"
	authmw "github.com/Skotchmaster/jam/internal/middleware/auth"
	"github.com/Skotchmaster/jam/internal/repo"
	"github.com/Skotchmaster/jam/internal/service"
	"github.com/Skotchmaster/jam/internal/tokens"
)

type httpEnv struct {
	e      *echo.Echo
	signer *tokens.Signer
}

func newHTTPEnv(t *testing.T, prefix string) *httpEnv {
	t.Helper()
	ctx := context.Background()

	gdb, err := db.Open(ctx, "sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })

	signer, err := tokens.NewSigner(tokens.Config{
		AccessSecret:  []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    30 * 24 * time.Hour,
	})
	require.NoError(t, err)

	rp := repo.New(gdb)
	gate := service.NewGate(signer, rp, service.DefaultGateConfig())

	e := echo.New()
	Register(e, &Deps{
		DB:          gdb,
		AuthHandler: &AuthHTTP{Svc: &service.AuthService{Users: rp, Tokens: rp, Signer: signer, Gate: gate}},
		GateAuth:    authmw.NewGateAuth(gate),
		APIPrefix:   prefix,
	})
	return &httpEnv{e: e, signer: signer}
}

func (env *httpEnv) do(t *testing.T, method, path, token, body string) (int, []byte) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec.Code, rec.Body.Bytes()
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(b, &v), string(b))
	return v
}

func (env *httpEnv) login(t *testing.T) (access, refresh string) {
	t.Helper()
	code, _ := env.do(t, http.MethodPost, "/auth/register", "", `{"username":"abc","password":"123"}`)
	require.Equal(t, http.StatusCreated, code)

	code, body := env.do(t, http.MethodPost, "/auth/token", "", `{"username":"abc","password":"123"}`)
	require.Equal(t, http.StatusOK, code, string(body))
	pair := decode[map[string]string](t, body)
	return pair["access_token"], pair["refresh_token"]
}

type tokenView struct {
	TokenID   uint   `json:"token_id"`
	JTI       string `json:"jti"`
	TokenType string `json:"token_type"`
	Revoked   bool   `json:"revoked"`
	Expires   string `json:"expires"`
}

func (env *httpEnv) list(t *testing.T, access string) []tokenView {
	t.Helper()
	code, body := env.do(t, http.MethodGet, "/auth/token", access, "")
	require.Equal(t, http.StatusOK, code, string(body))
	return decode[[]tokenView](t, body)
}

func (env *httpEnv) jti(t *testing.T, raw string) string {
	t.Helper()
	claims, err := env.signer.Verify(raw)
	require.NoError(t, err)
	return claims.JTI()
}

func TestRegister(t *testing.T) {
	env := newHTTPEnv(t, "")

	code, body := env.do(t, http.MethodPost, "/auth/register", "", `{"username":"xyz","password":"pw"}`)
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, map[string]string{"status": "success", "message": "Successfully registered."}, decode[map[string]string](t, body))

	code, body = env.do(t, http.MethodPost, "/auth/register", "", `{"username":"xyz","password":"pw"}`)
	assert.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "User already exists. Please Log in.", decode[map[string]string](t, body)["message"])
}

func TestCredentialsValidation(t *testing.T) {
	env := newHTTPEnv(t, "")

	tests := []struct {
		name string
		req  func() *http.Request
		msg  string
	}{
		{
			name: "not json",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader("username=abc"))
				r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
				return r
			},
			msg: "Missing JSON in request",
		},
		{
			name: "missing username",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"password":"123"}`))
				r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
				return r
			},
			msg: "Missing username parameter",
		},
		{
			name: "missing password",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"username":"abc"}`))
				r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
				return r
			},
			msg: "Missing password parameter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			env.e.ServeHTTP(rec, tt.req())
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.msg, decode[map[string]string](t, rec.Body.Bytes())["msg"])
		})
	}
}

func TestToken_IssueThenList(t *testing.T) {
	env := newHTTPEnv(t, "")
	access, refresh := env.login(t)

	list := env.list(t, access)
	require.Len(t, list, 2)

	jtis := []string{list[0].JTI, list[1].JTI}
	assert.Contains(t, jtis, env.jti(t, access))
	assert.Contains(t, jtis, env.jti(t, refresh))
	for _, v := range list {
		assert.False(t, v.Revoked)
		exp, err := time.Parse(time.RFC3339, v.Expires)
		require.NoError(t, err)
		assert.True(t, exp.After(time.Now()))
	}
}

func TestToken_BadCredentials(t *testing.T) {
	env := newHTTPEnv(t, "")
	env.login(t)

	code, body := env.do(t, http.MethodPost, "/auth/token", "", `{"username":"abc","password":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid username or password.", decode[map[string]string](t, body)["msg"])

	code, body = env.do(t, http.MethodPost, "/auth/token", "", `{"username":"ghost","password":"123"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid username or password.", decode[map[string]string](t, body)["msg"])
}

func TestRefresh(t *testing.T) {
	env := newHTTPEnv(t, "")
	access, refresh := env.login(t)

	code, body := env.do(t, http.MethodPost, "/auth/refresh", refresh, "")
	require.Equal(t, http.StatusOK, code, string(body))
	newAccess := decode[map[string]string](t, body)["access_token"]
	require.NotEmpty(t, newAccess)

	list := env.list(t, access)
	var jtis []string
	for _, v := range list {
		jtis = append(jtis, v.JTI)
	}
	assert.Contains(t, jtis, env.jti(t, newAccess))

	code, body = env.do(t, http.MethodPost, "/auth/refresh", access, "")
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "Only refresh tokens are allowed", decode[map[string]string](t, body)["msg"])

	code, _ = env.do(t, http.MethodPost, "/auth/refresh", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestUpdateToken_RevokeByID(t *testing.T) {
	env := newHTTPEnv(t, "")
	access, _ := env.login(t)

	list := env.list(t, access)
	require.Len(t, list, 2)
	target := list[1].TokenID

	code, body := env.do(t, http.MethodPut, "/auth/token/"+itoa(target), access, `{"revoke":true}`)
	require.Equal(t, http.StatusOK, code, string(body))
	assert.Equal(t, "Token revoked", decode[map[string]string](t, body)["msg"])

	list = env.list(t, access)
	assert.False(t, list[0].Revoked)
	assert.True(t, list[1].Revoked)

	code, body = env.do(t, http.MethodPut, "/auth/token/"+itoa(target), access, `{"revoke":false}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Token unrevoked", decode[map[string]string](t, body)["msg"])
	assert.False(t, env.list(t, access)[1].Revoked)
}

func TestUpdateToken_BadRequests(t *testing.T) {
	env := newHTTPEnv(t, "")
	access, _ := env.login(t)

	tests := []struct {
		name string
		path string
		body string
		code int
		msg  string
	}{
		{name: "missing revoke", path: "/auth/token/1", body: `{}`, code: http.StatusBadRequest, msg: "Missing 'revoke' in body"},
		{name: "empty body", path: "/auth/token/1", code: http.StatusBadRequest, msg: "Missing 'revoke' in body"},
		{name: "non bool", path: "/auth/token/1", body: `{"revoke":"yes"}`, code: http.StatusBadRequest, msg: "'revoke' must be a boolean"},
		{name: "non numeric id", path: "/auth/token/abc", body: `{"revoke":true}`, code: http.StatusBadRequest},
		{name: "unknown id", path: "/auth/token/999", body: `{"revoke":true}`, code: http.StatusNotFound, msg: "The specified token was not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := env.do(t, http.MethodPut, tt.path, access, tt.body)
			assert.Equal(t, tt.code, code, string(body))
			if tt.msg != "" {
				assert.Equal(t, tt.msg, decode[map[string]string](t, body)["msg"])
			}
		})
	}
}

func TestUpdateToken_OtherUsersTokenIsNotFound(t *testing.T) {
	env := newHTTPEnv(t, "")
	access, _ := env.login(t)
	abcTokens := env.list(t, access)

	code, _ := env.do(t, http.MethodPost, "/auth/register", "", `{"username":"other","password":"pw"}`)
	require.Equal(t, http.StatusCreated, code)
	code, body := env.do(t, http.MethodPost, "/auth/token", "", `{"username":"other","password":"pw"}`)
	require.Equal(t, http.StatusOK, code)
	otherAccess := decode[map[string]string](t, body)["access_token"]

	code, _ = env.do(t, http.MethodPut, "/auth/token/"+itoa(abcTokens[0].TokenID), otherAccess, `{"revoke":true}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.list(t, access)[0].Revoked)
}

func TestLogoutAccess(t *testing.T) {
	env := newHTTPEnv(t, "")
	access, refresh := env.login(t)

	code, body := env.do(t, http.MethodPost, "/auth/logout/access", access, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Access token revoked.", decode[map[string]string](t, body)["msg"])

	code, body = env.do(t, http.MethodPost, "/auth/logout/access", access, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Token has been revoked", decode[map[string]string](t, body)["msg"])

	// the refresh token is untouched
	code, _ = env.do(t, http.MethodPost, "/auth/refresh", refresh, "")
	assert.Equal(t, http.StatusOK, code)
}

func TestLogoutRefresh(t *testing.T) {
	env := newHTTPEnv(t, "")
	access, refresh := env.login(t)

	code, body := env.do(t, http.MethodPost, "/auth/logout/refresh", refresh, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Refresh token revoked.", decode[map[string]string](t, body)["msg"])

	code, body = env.do(t, http.MethodPost, "/auth/logout/refresh", refresh, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Token has been revoked", decode[map[string]string](t, body)["msg"])

	code, _ = env.do(t, http.MethodPost, "/auth/refresh", refresh, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = env.do(t, http.MethodGet, "/auth/token", access, "")
	assert.Equal(t, http.StatusOK, code)
}

func TestAPIPrefixAndHealth(t *testing.T) {
	env := newHTTPEnv(t, "/api")

	code, _ := env.do(t, http.MethodPost, "/api/auth/register", "", `{"username":"abc","password":"123"}`)
	assert.Equal(t, http.StatusCreated, code)

	code, _ = env.do(t, http.MethodPost, "/auth/register", "", `{"username":"abc","password":"123"}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = env.do(t, http.MethodGet, "/health/live", "", "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = env.do(t, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, code)

	code, body := env.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "go_goroutines")
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
