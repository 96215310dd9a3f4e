package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatalf("cookie %s not set", CookieName)
	return nil
}

func TestSetSessionCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "tok", true)

	c := findCookie(t, rec.Result())
	assert.Equal(t, "tok", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 604800, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
}

func TestClearSessionCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearSessionCookie(rec, false)

	c := findCookie(t, rec.Result())
	assert.Empty(t, c.Value)
	assert.Equal(t, -1, c.MaxAge)
	assert.False(t, c.Secure)
}

func TestClaimsFromRequest(t *testing.T) {
	now := testEpoch
	c := fixedCodec(&now)
	token, err := c.Issue(sampleClaims())
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	_, ok := c.ClaimsFromRequest(r)
	assert.False(t, ok)

	r.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	claims, ok := c.ClaimsFromRequest(r)
	require.True(t, ok)
	assert.Equal(t, int64(42), claims.UserID)
}

func TestClaimsContext(t *testing.T) {
	_, ok := ClaimsFrom(context.Background())
	assert.False(t, ok)

	ctx := WithClaims(context.Background(), &Claims{UserID: 7})
	claims, ok := ClaimsFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(7), claims.UserID)
}

func TestRequireSession(t *testing.T) {
	now := time.Now()
	c := fixedCodec(&now)
	token, err := c.Issue(sampleClaims())
	require.NoError(t, err)

	var seen *Claims
	h := RequireSession(c, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Nil(t, seen)

	r := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: token + "x"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusTeapot, rec.Code)

	r = httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, int64(42), seen.UserID)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:51234"
	assert.Equal(t, "192.0.2.1", ClientIP(r))

	r.Header.Set("X-Forwarded-For", " 198.51.100.7 , 10.0.0.1")
	assert.Equal(t, "198.51.100.7", ClientIP(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "unix"
	assert.Equal(t, "unix", ClientIP(r))
}
