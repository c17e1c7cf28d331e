package admin

import (
	handlershared "github.com/stockyourlot/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getUserID(c *gin.Context) (uint, bool) {
	return handlershared.RequireUserID(c)
}

// currentUserID 仅用于审计日志，未鉴权时为 0
func currentUserID(c *gin.Context) uint {
	return handlershared.CurrentIdentity(c).UserID
}

func currentUsername(c *gin.Context) string {
	return handlershared.CurrentIdentity(c).Username
}

func currentRoles(c *gin.Context) []string {
	return handlershared.CurrentIdentity(c).Roles
}
