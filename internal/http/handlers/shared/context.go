package shared

import (
	"strings"

	"github.com/stockyourlot/internal/http/response"

	"github.com/gin-gonic/gin"
)

// 鉴权中间件写入的上下文键
const (
	ContextKeyUserID   = "user_id"
	ContextKeyUsername = "username"
	ContextKeyRoles    = "roles"
)

// Identity 当前请求的调用方
type Identity struct {
	UserID   uint
	Username string
	Roles    []string
}

// CurrentIdentity 读取调用方身份，未鉴权时各字段为零值
func CurrentIdentity(c *gin.Context) Identity {
	if c == nil {
		return Identity{}
	}
	identity := Identity{
		Username: strings.TrimSpace(c.GetString(ContextKeyUsername)),
		Roles:    c.GetStringSlice(ContextKeyRoles),
	}
	if value, ok := c.Get(ContextKeyUserID); ok {
		if userID, ok := value.(uint); ok {
			identity.UserID = userID
		}
	}
	return identity
}

// RequireUserID 读取调用方用户 ID，缺失时写入 401 响应
func RequireUserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(ContextKeyUserID)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}
	userID, ok := value.(uint)
	if !ok {
		RespondError(c, response.CodeInternal, "error.user_id_type_invalid", nil)
		return 0, false
	}
	if userID == 0 {
		RespondError(c, response.CodeUnauthorized, "error.user_id_invalid", nil)
		return 0, false
	}
	return userID, true
}
