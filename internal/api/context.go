package api

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"resumeMatcher/internal/api/middleware"
	"resumeMatcher/internal/errcode"
)

var errInvalidID = errors.New("invalid id")

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get(middleware.ContextUserID)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok && id > 0
}

func userEmailFromContext(c *gin.Context) (string, bool) {
	email := c.GetString(middleware.ContextUserEmail)
	return email, email != ""
}

// pathID 解析路径参数中的正整数 ID，非法时返回 Validation 错误。
func pathID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errcode.Validation("validation failed", map[string]string{name: errInvalidID.Error()})
	}
	return uint(id), nil
}
