package public

import (
	handlershared "github.com/stockyourlot/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

// getUserID 买家接口以令牌中的用户作为采购经纪人
func getUserID(c *gin.Context) (uint, bool) {
	return handlershared.RequireUserID(c)
}
