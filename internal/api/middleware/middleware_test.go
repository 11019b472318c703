package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"resumeMatcher/internal/auth"
	"resumeMatcher/internal/database"
)

type stubValidator map[string]*auth.TokenClaims

func (s stubValidator) ValidateToken(token string) (*auth.TokenClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CorrelationIDMiddleware())
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"email": c.GetString(ContextUserEmail),
		})
	})
	r.GET("/probe", handlers...)
	return r
}

func probe(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	validator := stubValidator{
		"good": {UserID: 1, Role: database.RoleRecruiter, RegisteredClaims: jwt.RegisteredClaims{Subject: "r@c.com"}},
	}
	r := newEngine(AuthMiddleware(validator))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", want: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer bad", want: http.StatusUnauthorized},
		{name: "valid", header: "Bearer good", want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := probe(r, tc.header); w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	r := newEngine(OptionalAuthMiddleware(stubValidator{}))

	if w := probe(r, ""); w.Code != http.StatusOK {
		t.Fatalf("anonymous status = %d", w.Code)
	}
	if w := probe(r, "Bearer bad"); w.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token status = %d", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	validator := stubValidator{
		"seeker":    {UserID: 1, Role: database.RoleJobSeeker, RegisteredClaims: jwt.RegisteredClaims{Subject: "s@c.com"}},
		"recruiter": {UserID: 2, Role: database.RoleRecruiter, RegisteredClaims: jwt.RegisteredClaims{Subject: "r@c.com"}},
	}
	r := newEngine(AuthMiddleware(validator), RequireRole(database.RoleRecruiter))

	if w := probe(r, "Bearer seeker"); w.Code != http.StatusForbidden {
		t.Fatalf("seeker status = %d", w.Code)
	}
	if w := probe(r, "Bearer recruiter"); w.Code != http.StatusOK {
		t.Fatalf("recruiter status = %d", w.Code)
	}
}

func TestInternalSecretMiddleware(t *testing.T) {
	r := newEngine(InternalSecretMiddleware("s3cret"))

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing secret status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("X-Internal-Secret", "s3cret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("valid secret status = %d", w.Code)
	}

	open := newEngine(InternalSecretMiddleware(""))
	if w := probe(open, ""); w.Code != http.StatusOK {
		t.Fatalf("unconfigured secret status = %d", w.Code)
	}
}

func TestCorrelationIDEchoed(t *testing.T) {
	r := newEngine()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Correlation-ID"); got != "abc-123" {
		t.Fatalf("correlation id = %q", got)
	}

	w = probe(r, "")
	if got := w.Header().Get("X-Correlation-ID"); len(got) != 36 {
		t.Fatalf("expected generated uuid, got %q", got)
	}
}
