package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bellapacxx/guba-backend/models"
	"github.com/bellapacxx/guba-backend/services"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

type stubAuth map[string]*services.Claims

func (s stubAuth) Authenticate(_ context.Context, raw string) (*services.Claims, error) {
	if raw == "lookup-fails" {
		return nil, errors.New("users: connection refused")
	}
	if c, ok := s[raw]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: bad token", services.ErrUnauthorized)
}

func newTestRouter(auth Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", JwtAuthMiddleware(auth), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})
	r.GET("/admin", JwtAuthMiddleware(auth), RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	tok, ok = BearerToken("bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = BearerToken("abc")
	assert.False(t, ok)
	_, ok = BearerToken("Basic abc")
	assert.False(t, ok)
}

func TestJwtAuthMiddleware(t *testing.T) {
	auth := stubAuth{
		"user-token":  {Role: models.RoleUser, RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}},
		"admin-token": {Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Subject: "a1"}},
	}
	r := newTestRouter(auth)

	tests := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{"missing header", "/me", "", http.StatusUnauthorized, ""},
		{"malformed header", "/me", "Token user-token", http.StatusUnauthorized, ""},
		{"unknown token", "/me", "Bearer nope", http.StatusUnauthorized, ""},
		{"valid token", "/me", "Bearer user-token", http.StatusOK, "u1"},
		{"user on admin route", "/admin", "Bearer user-token", http.StatusForbidden, ""},
		{"admin on admin route", "/admin", "Bearer admin-token", http.StatusNoContent, ""},
		{"account lookup fails", "/me", "Bearer lookup-fails", http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestErrorBodyCarriesMessage(t *testing.T) {
	r := newTestRouter(stubAuth{})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Missing authorization header", body["error"])
	assert.Equal(t, "Missing authorization header", body["message"])
}
