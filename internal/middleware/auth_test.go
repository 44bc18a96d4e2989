package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"anoa.com/mathter/internal/entity"
	"anoa.com/mathter/internal/modules/account/dto"
	"anoa.com/mathter/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubAuth struct {
	accounts map[string]*entity.User
}

func (s *stubAuth) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	return nil, apperror.ErrUnauthorized
}

func (s *stubAuth) Authenticate(ctx context.Context, token string) (*entity.User, error) {
	if account, ok := s.accounts[token]; ok {
		return account, nil
	}
	return nil, apperror.ErrUnauthorized
}

func newRouter(m *AuthMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", m.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.GetUint("account_id")})
	})
	r.GET("/teach", m.RequireAuth(), m.RequireRole(entity.RoleTeacher, entity.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	m := NewAuthMiddleware(&stubAuth{accounts: map[string]*entity.User{
		"student-token": {ID: 1, Role: entity.RoleStudent, IsActive: true},
		"teacher-token": {ID: 2, Role: entity.RoleTeacher, IsActive: true},
	}})
	r := newRouter(m)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{name: "missing token", path: "/me", want: http.StatusUnauthorized},
		{name: "unknown token", path: "/me", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "bearer token", path: "/me", header: "Bearer student-token", want: http.StatusOK},
		{name: "query token", path: "/me?token=student-token", want: http.StatusOK},
		{name: "role denied", path: "/teach", header: "Bearer student-token", want: http.StatusForbidden},
		{name: "role allowed", path: "/teach", header: "Bearer teacher-token", want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}
