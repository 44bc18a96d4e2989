package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"anoa.com/mathter/internal/config"
	"anoa.com/mathter/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		AllowedOrigins:          "http://localhost:3000",
		JWTSecret:               "test-secret",
		JWTTTL:                  time.Hour,
		RecommendationThreshold: 0.5,
		ReminderSchedule:        "0 * * * *",
		RecommendationSchedule:  "0 6 * * *",
	}
	srv, err := NewServer(cfg, testutil.OpenDB(t), nil, nil)
	require.NoError(t, err)
	return srv.Handler()
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAccountLifecycle(t *testing.T) {
	h := newTestServer(t)

	w := call(t, h, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice", "email": "alice@mathter.test", "password": "secret-pass", "role": "student",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = call(t, h, http.MethodPost, "/api/auth/login", "", gin.H{"login": "alice", "password": "secret-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.AccessToken)

	w = call(t, h, http.MethodGet, "/api/accounts/me", login.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// students may not create courses
	w = call(t, h, http.MethodPost, "/api/courses", login.AccessToken, gin.H{"title": "Algebra"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call(t, h, http.MethodDelete, "/api/accounts/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(t, h, http.MethodGet, "/api/accounts/me", login.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(t, h, http.MethodPost, "/api/auth/login", "", gin.H{"login": "alice", "password": "secret-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	h := newTestServer(t)

	w := call(t, h, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "al", "email": "not-an-email", "password": "x", "role": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, h, http.MethodGet, "/api/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckOrigin(t *testing.T) {
	check := checkOrigin([]string{"http://localhost:3000"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(req))
	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, check(req))
	req.Header.Set("Origin", "http://evil.test")
	assert.False(t, check(req))
}
