package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeMatcher/internal/api/middleware"
	"resumeMatcher/internal/auth"
	"resumeMatcher/internal/database"
	"resumeMatcher/internal/errcode"
)

// AuthHandler 处理注册、登录、免密登录与当前用户查询。
type AuthHandler struct {
	sessions *auth.SessionService
	guard    *LoginGuard
}

// NewAuthHandler 构造认证处理器，guard 可为空。
func NewAuthHandler(sessions *auth.SessionService, guard *LoginGuard) *AuthHandler {
	return &AuthHandler{sessions: sessions, guard: guard}
}

type registerRequest struct {
	Username  string        `json:"username" binding:"required,min=3,max=64"`
	Email     string        `json:"email" binding:"required,email,max=255"`
	Password  string        `json:"password" binding:"required,max=72"`
	FirstName string        `json:"firstName" binding:"required,max=128"`
	LastName  string        `json:"lastName" binding:"required,max=128"`
	Role      database.Role `json:"role" binding:"required,oneof=JOB_SEEKER RECRUITER"`
}

// Register 创建新账号并返回令牌。
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBindError(c, err)
		return
	}

	session, err := h.sessions.Register(c.Request.Context(), auth.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login 校验邮箱与密码并返回令牌。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	email := auth.NormalizeEmail(req.Email)
	if !h.admit(c, "login", email) {
		return
	}

	session, err := h.sessions.Login(ctx, email, req.Password)
	if err != nil {
		if errcode.KindOf(err) == errcode.KindUnauthorized {
			h.guard.RecordFailure(ctx, email)
		}
		RespondError(c, err)
		return
	}

	h.guard.Reset(ctx, email)
	c.JSON(http.StatusOK, session)
}

type resumeLoginRequest struct {
	Email     string  `json:"email" binding:"required,email,max=255"`
	FirstName *string `json:"firstName" binding:"omitempty,max=128"`
	LastName  *string `json:"lastName" binding:"omitempty,max=128"`
}

// ResumeLogin 按邮箱免密登录，首次调用时自动开户。
func (h *AuthHandler) ResumeLogin(c *gin.Context) {
	var req resumeLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBindError(c, err)
		return
	}

	email := auth.NormalizeEmail(req.Email)
	if !h.admit(c, "resume-login", email) {
		return
	}

	session, err := h.sessions.ResumeLogin(c.Request.Context(), auth.ResumeLoginInput{
		Email:     email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Me 返回令牌所属账号。
func (h *AuthHandler) Me(c *gin.Context) {
	email, ok := userEmailFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	user, err := h.sessions.CurrentUser(c.Request.Context(), email)
	if err != nil {
		if errcode.KindOf(err) == errcode.KindNotFound {
			// 令牌仍有效但账号已不存在。
			AbortUnauthorized(c)
			return
		}
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) admit(c *gin.Context, scope, email string) bool {
	switch h.guard.Check(c.Request.Context(), scope, c.ClientIP(), email) {
	case guardRateLimited:
		middleware.LoggerFromContext(c).Info("login rate limited", slog.String("scope", scope))
		Error(c, http.StatusTooManyRequests, "rate limit exceeded")
		return false
	case guardLocked:
		middleware.LoggerFromContext(c).Info("login attempt on locked account")
		Error(c, http.StatusTooManyRequests, "account temporarily locked")
		return false
	default:
		return true
	}
}
