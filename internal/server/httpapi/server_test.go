package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/dmitrijs2005/gatekeeper/internal/server/sessions"
	"github.com/dmitrijs2005/gatekeeper/internal/server/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	handler http.Handler
	users   *services.UserService
	bob     models.User
}

func newHarness(t *testing.T, authType string) *harness {
	t.Helper()
	table := store.New[models.User](models.KindUser, nil)
	users := services.NewUserService(table, logging.Nop())
	bob, err := users.Register(context.Background(), services.Registration{
		Email: "bob@hbtn.io", Password: "H0lberton!", FirstName: "Bob", LastName: "Dylan",
	})
	require.NoError(t, err)

	a, err := auth.New(auth.Settings{
		Type:          authType,
		SessionName:   "_my_session_id",
		TokenSecret:   "secret",
		TokenValidity: time.Hour,
	}, auth.Deps{Users: table, Sessions: sessions.NewRegistry()})
	require.NoError(t, err)

	srv := New(Deps{Auth: a, Users: users, Metrics: metrics.New("test"), Logger: logging.Nop()})
	return &harness{handler: srv.Handler(), users: users, bob: bob}
}

func (h *harness) do(t *testing.T, method, target string, body string, prep func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if prep != nil {
		prep(req)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func withBasic(email, password string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(email+":"+password)))
	}
}

func withForm(r *http.Request) {
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestPublicEndpoints(t *testing.T) {
	h := newHarness(t, auth.TypeBasic)

	rec := h.do(t, http.MethodGet, "/api/v1/status", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", decode[map[string]string](t, rec)["status"])

	rec = h.do(t, http.MethodGet, "/api/v1/status/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/unauthorized", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", decode[map[string]string](t, rec)["error"])

	rec = h.do(t, http.MethodGet, "/api/v1/forbidden", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_auth_decisions_total")
}

func TestBasicGate(t *testing.T) {
	h := newHarness(t, auth.TypeBasic)

	rec := h.do(t, http.MethodGet, "/api/v1/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/users", "", withBasic("bob@hbtn.io", "wrong"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/users", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Basic !!!")
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/users", "", withBasic("bob@hbtn.io", "H0lberton!"))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]map[string]any](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "bob@hbtn.io", list[0]["email"])
	assert.NotContains(t, list[0], "password_hash")
	assert.NotContains(t, list[0], "password_salt")

	rec = h.do(t, http.MethodGet, "/api/v1/stats", "", withBasic("bob@hbtn.io", "H0lberton!"))
	assert.Equal(t, 1, decode[map[string]int](t, rec)["users"])
}

func TestUsersCRUD(t *testing.T) {
	h := newHarness(t, auth.TypeBasic)
	creds := withBasic("bob@hbtn.io", "H0lberton!")

	rec := h.do(t, http.MethodGet, "/api/v1/users/me", "", creds)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, h.bob.ID, decode[map[string]any](t, rec)["id"])

	rec = h.do(t, http.MethodPost, "/api/v1/users", `{"email":"alice@hbtn.io","password":"pwd","first_name":"Alice"}`, creds)
	require.Equal(t, http.StatusCreated, rec.Code)
	alice := decode[map[string]any](t, rec)
	aliceID := alice["id"].(string)
	assert.Equal(t, "Alice", alice["first_name"])

	badRequests := []struct {
		body string
		msg  string
	}{
		{`not json`, "Wrong format"},
		{`{"password":"x"}`, "email missing"},
		{`{"email":"x@y.z"}`, "password missing"},
		{`{"email":"alice@hbtn.io","password":"x"}`, "Can't create User"},
	}
	for _, tt := range badRequests {
		rec = h.do(t, http.MethodPost, "/api/v1/users", tt.body, creds)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tt.body)
		assert.Contains(t, decode[map[string]string](t, rec)["error"], tt.msg, tt.body)
	}

	rec = h.do(t, http.MethodGet, "/api/v1/users/"+aliceID, "", creds)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPut, "/api/v1/users/"+aliceID, `{"last_name":"Liddell"}`, creds)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[map[string]any](t, rec)
	assert.Equal(t, "Alice", updated["first_name"])
	assert.Equal(t, "Liddell", updated["last_name"])

	rec = h.do(t, http.MethodPut, "/api/v1/users/"+aliceID, `[`, creds)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodDelete, "/api/v1/users/"+aliceID, "", creds)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(t, http.MethodDelete, "/api/v1/users/"+aliceID, "", creds)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = h.do(t, http.MethodGet, "/api/v1/users/"+aliceID, "", creds)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionLoginLogout(t *testing.T) {
	h := newHarness(t, auth.TypeSession)

	form := url.Values{"email": {"bob@hbtn.io"}, "password": {"H0lberton!"}}.Encode()
	rec := h.do(t, http.MethodPost, "/api/v1/auth_session/login", form, withForm)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, h.bob.ID, decode[map[string]any](t, rec)["id"])

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "_my_session_id", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	withCookie := func(r *http.Request) { r.AddCookie(cookies[0]) }

	rec = h.do(t, http.MethodGet, "/api/v1/users/me", "", withCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob@hbtn.io", decode[map[string]any](t, rec)["email"])

	rec = h.do(t, http.MethodDelete, "/api/v1/auth_session/logout", "", withCookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodDelete, "/api/v1/auth_session/logout", "", withCookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/users/me", "", withCookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSessionLoginErrors(t *testing.T) {
	h := newHarness(t, auth.TypeSession)

	tests := []struct {
		form url.Values
		code int
		msg  string
	}{
		{url.Values{"password": {"x"}}, http.StatusBadRequest, "email missing"},
		{url.Values{"email": {"bob@hbtn.io"}}, http.StatusBadRequest, "password missing"},
		{url.Values{"email": {"nobody@hbtn.io"}, "password": {"x"}}, http.StatusUnauthorized, "invalid credentials"},
		{url.Values{"email": {"bob@hbtn.io"}, "password": {"x"}}, http.StatusUnauthorized, "invalid credentials"},
	}
	for _, tt := range tests {
		rec := h.do(t, http.MethodPost, "/api/v1/auth_session/login", tt.form.Encode(), withForm)
		assert.Equal(t, tt.code, rec.Code)
		assert.Equal(t, tt.msg, decode[map[string]string](t, rec)["error"])
	}
}

func TestSessionLogin_NotSessionStrategy(t *testing.T) {
	h := newHarness(t, auth.TypeBasic)
	form := url.Values{"email": {"bob@hbtn.io"}, "password": {"H0lberton!"}}.Encode()
	rec := h.do(t, http.MethodPost, "/api/v1/auth_session/login", form, withForm)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTokenLogin(t *testing.T) {
	h := newHarness(t, auth.TypeToken)

	form := url.Values{"email": {"bob@hbtn.io"}, "password": {"H0lberton!"}}.Encode()
	rec := h.do(t, http.MethodPost, "/api/v1/auth_token/login", form, withForm)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[map[string]any](t, rec)
	assert.Equal(t, "Bearer", out["token_type"])
	assert.Equal(t, float64(3600), out["expires_in"])
	token := out["access_token"].(string)

	rec = h.do(t, http.MethodGet, "/api/v1/users/me", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, h.bob.ID, decode[map[string]any](t, rec)["id"])

	rec = h.do(t, http.MethodGet, "/api/v1/users/me", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer forged")
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestResetPassword(t *testing.T) {
	h := newHarness(t, auth.TypeBasic)

	rec := h.do(t, http.MethodPost, "/api/v1/reset_password", url.Values{"email": {"nobody@hbtn.io"}}.Encode(), withForm)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/v1/reset_password", url.Values{"email": {"bob@hbtn.io"}}.Encode(), withForm)
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode[map[string]string](t, rec)["reset_token"]
	require.NotEmpty(t, token)

	bad := url.Values{"email": {"bob@hbtn.io"}, "reset_token": {"forged"}, "new_password": {"n3w"}}.Encode()
	rec = h.do(t, http.MethodPut, "/api/v1/reset_password", bad, withForm)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	good := url.Values{"email": {"bob@hbtn.io"}, "reset_token": {token}, "new_password": {"n3w"}}.Encode()
	rec = h.do(t, http.MethodPut, "/api/v1/reset_password", good, withForm)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Password updated", decode[map[string]string](t, rec)["message"])

	rec = h.do(t, http.MethodGet, "/api/v1/users/me", "", withBasic("bob@hbtn.io", "n3w"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNoAuthRefusesProtected(t *testing.T) {
	h := newHarness(t, auth.TypeNoAuth)

	rec := h.do(t, http.MethodGet, "/api/v1/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = h.do(t, http.MethodGet, "/api/v1/users", "", withBasic("bob@hbtn.io", "H0lberton!"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = h.do(t, http.MethodGet, "/api/v1/status", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t, auth.TypeBasic)
	rec := h.do(t, http.MethodGet, "/api/v1/nothing", "", withBasic("bob@hbtn.io", "H0lberton!"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", decode[map[string]string](t, rec)["error"])
}
