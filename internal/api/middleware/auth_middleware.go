package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resumeMatcher/internal/auth"
	"resumeMatcher/internal/database"
)

// 上下文键，由 AuthMiddleware 写入。
const (
	ContextUserID    = "userID"
	ContextUserEmail = "userEmail"
	ContextUserRole  = "userRole"
)

// TokenValidator 校验 bearer 令牌。
type TokenValidator interface {
	ValidateToken(token string) (*auth.TokenClaims, error)
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// AuthMiddleware 校验访问令牌，并将 userID、邮箱与角色注入上下文。
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFromHeader(c, validator)
		if !ok {
			abortUnauthorized(c)
			return
		}
		setIdentity(c, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware 携带有效令牌时注入身份，没有令牌时照常放行；
// 令牌无效仍返回 401。
func OptionalAuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.TrimSpace(c.GetHeader("Authorization")) == "" {
			c.Next()
			return
		}
		claims, ok := claimsFromHeader(c, validator)
		if !ok {
			abortUnauthorized(c)
			return
		}
		setIdentity(c, claims)
		c.Next()
	}
}

// BearerToken 从 Authorization 头中取出令牌。
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func claimsFromHeader(c *gin.Context, validator TokenValidator) (*auth.TokenClaims, bool) {
	rawToken, ok := BearerToken(c.GetHeader("Authorization"))
	if !ok {
		return nil, false
	}
	claims, err := validator.ValidateToken(rawToken)
	if err != nil {
		LoggerFromContext(c).Info("reject bearer token", slog.Any("error", err))
		return nil, false
	}
	return claims, true
}

func setIdentity(c *gin.Context, claims *auth.TokenClaims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUserEmail, claims.Email())
	c.Set(ContextUserRole, claims.Role)
}

// RequireRole 要求调用方具有指定角色，须位于 AuthMiddleware 之后。
func RequireRole(role database.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, ok := c.Get(ContextUserRole)
		if current, _ := value.(database.Role); !ok || current != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
