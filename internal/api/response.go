package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"resumeMatcher/internal/api/middleware"
	"resumeMatcher/internal/errcode"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }

// RespondError 把服务层错误翻译为稳定的状态码与不泄露内部细节的消息。
func RespondError(c *gin.Context, err error) {
	var e *errcode.Error
	if !errors.As(err, &e) {
		e = errcode.Unexpected(err)
	}

	switch e.Kind {
	case errcode.KindConflict:
		Error(c, http.StatusConflict, e.Message)
	case errcode.KindUnauthorized:
		Error(c, http.StatusUnauthorized, e.Message)
	case errcode.KindNotFound, errcode.KindNotFoundOrForbidden:
		Error(c, http.StatusNotFound, e.Message)
	case errcode.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": e.Message, "fields": e.Fields})
	default:
		middleware.LoggerFromContext(c).Error("request failed", slog.Any("error", err))
		Error(c, http.StatusInternalServerError, "internal error")
	}
}

// RespondBindError 处理请求体绑定失败，字段级错误会逐项列出。
func RespondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[jsonFieldName(fe)] = describeFieldError(fe)
		}
		RespondError(c, errcode.Validation("validation failed", fields))
		return
	}
	RespondError(c, errcode.Validation("malformed request body", map[string]string{}))
}

func jsonFieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return fe.StructField()
	}
	return strings.ToLower(name[:1]) + name[1:]
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind().String() == "string" {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be greater than or equal to " + fe.Param()
	case "max":
		if fe.Kind().String() == "string" {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be less than or equal to " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "dive":
		return "contains an invalid item"
	default:
		return "is invalid"
	}
}
