package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"otp-auth-service/internal/event"
	"otp-auth-service/internal/identity"
	"otp-auth-service/internal/repository/memory"
	"otp-auth-service/internal/secret"
	"otp-auth-service/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSecrets struct {
	values map[secret.Purpose]string
}

func (f *fakeSecrets) Get(_ context.Context, purpose secret.Purpose) (string, error) {
	v, ok := f.values[purpose]
	if !ok {
		return "", fmt.Errorf("%w: no value for %q", secret.ErrSecretUnavailable, purpose)
	}
	return v, nil
}

type captureSender struct {
	lastCode string
	failWith error
}

func (c *captureSender) Deliver(_ context.Context, _ identity.Identity, code string) error {
	if c.failWith != nil {
		return c.failWith
	}
	c.lastCode = code
	return nil
}

type fixture struct {
	server *httptest.Server
	sender *captureSender
}

func newFixture(t *testing.T, maxPerDay int) *fixture {
	t.Helper()
	secrets := &fakeSecrets{values: map[secret.Purpose]string{
		secret.PurposeOTP: "otp-signing-secret",
		secret.PurposeJWT: "jwt-signing-secret",
	}}
	challenges := memory.NewChallengeStore()
	profiles := memory.NewProfileStore()
	sender := &captureSender{}
	logger := zap.NewNop()

	sessions := service.NewSessionTokenService(secrets)
	issuer := service.NewIssuer(challenges, profiles, secrets, sender, event.Noop{}, logger)
	verifier := service.NewVerifier(challenges, profiles, secrets, sessions, event.Noop{}, maxPerDay, logger)

	router := NewRouter(NewAuthHandler(issuer, verifier, sessions), nil, "https://app.example.com", logger)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &fixture{server: srv, sender: sender}
}

func (f *fixture) postJSON(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]string {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestRequestThenVerifyFlow(t *testing.T) {
	f := newFixture(t, 0)

	resp := f.postJSON(t, "/api/v1/auth/otp/request", map[string]string{"email": "user@example.com"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody(t, resp)["status"])
	require.Len(t, f.sender.lastCode, 6)

	resp = f.postJSON(t, "/api/v1/auth/otp/verify", map[string]string{
		"email": "user@example.com",
		"code":  f.sender.lastCode,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie, "verify must set the session cookie")
	assert.True(t, sessionCookie.HttpOnly)
	assert.True(t, sessionCookie.Secure)
	assert.Equal(t, http.SameSiteNoneMode, sessionCookie.SameSite)
	assert.Equal(t, "/", sessionCookie.Path)
	assert.Equal(t, 3600, sessionCookie.MaxAge)

	body := decodeBody(t, resp)
	assert.Equal(t, sessionCookie.Value, body["token"])

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/api/v1/auth/session", nil)
	require.NoError(t, err)
	req.AddCookie(sessionCookie)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.Equal(t, "user@example.com", decodeBody(t, resp2)["sub"])
}

func TestRequestValidation(t *testing.T) {
	f := newFixture(t, 0)

	resp := f.postJSON(t, "/api/v1/auth/otp/request", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = f.postJSON(t, "/api/v1/auth/otp/request", map[string]string{
		"email": "user@example.com",
		"phone": "+15551234567",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	malformed, err := http.Post(f.server.URL+"/api/v1/auth/otp/request", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, malformed.StatusCode)
	malformed.Body.Close()
}

func TestRequestCooldownReturns429(t *testing.T) {
	f := newFixture(t, 0)

	resp := f.postJSON(t, "/api/v1/auth/otp/request", map[string]string{"email": "user@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = f.postJSON(t, "/api/v1/auth/otp/request", map[string]string{"email": "user@example.com"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	resp.Body.Close()
}

func TestVerifyWrongCodeReturns401(t *testing.T) {
	f := newFixture(t, 0)

	resp := f.postJSON(t, "/api/v1/auth/otp/request", map[string]string{"email": "user@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = f.postJSON(t, "/api/v1/auth/otp/verify", map[string]string{
		"email": "user@example.com",
		"code":  "000000",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid or expired code", decodeBody(t, resp)["error"])
}

func TestVerifyUnknownIdentityReturns401(t *testing.T) {
	f := newFixture(t, 0)

	resp := f.postJSON(t, "/api/v1/auth/otp/verify", map[string]string{
		"email": "nobody@example.com",
		"code":  "123456",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestVerifyQuotaExceededReturns429(t *testing.T) {
	f := newFixture(t, 1)

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		email := fmt.Sprintf("user%d@example.com", i)
		resp := f.postJSON(t, "/api/v1/auth/otp/request", map[string]string{"email": email})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = f.postJSON(t, "/api/v1/auth/otp/verify", map[string]string{
			"email": email,
			"code":  f.sender.lastCode,
		})
		assert.Equal(t, want, resp.StatusCode)
		resp.Body.Close()
	}
}

func TestSessionWithoutCookieReturns401(t *testing.T) {
	f := newFixture(t, 0)

	resp, err := http.Get(f.server.URL + "/api/v1/auth/session")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestSessionWithGarbageTokenReturns401(t *testing.T) {
	f := newFixture(t, 0)

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/api/v1/auth/session", nil)
	require.NoError(t, err)
	req.Header.Set("Cookie", "auth_token=not-a-real-token")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestLogoutClearsCookie(t *testing.T) {
	f := newFixture(t, 0)

	resp := f.postJSON(t, "/api/v1/auth/logout", map[string]string{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var cleared *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName {
			cleared = c
		}
	}
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestCORSReflectsConfiguredOrigin(t *testing.T) {
	f := newFixture(t, 0)

	req, err := http.NewRequest(http.MethodOptions, f.server.URL+"/api/v1/auth/otp/request", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t, 0)

	resp, err := http.Get(f.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestParseCookieHeader(t *testing.T) {
	cookies := parseCookieHeader("a=1; auth_token=abc.def.ghi; b=2")
	assert.Equal(t, "abc.def.ghi", cookies["auth_token"])
	assert.Equal(t, "1", cookies["a"])
	assert.Equal(t, "2", cookies["b"])

	encoded := parseCookieHeader("auth_token=" + url.QueryEscape("a b"))
	assert.Equal(t, "a b", encoded["auth_token"])

	assert.Empty(t, parseCookieHeader(""))
	assert.Empty(t, parseCookieHeader("; ; ="))

	dupes := parseCookieHeader("x=1; x=2")
	assert.Equal(t, "2", dupes["x"])
}
