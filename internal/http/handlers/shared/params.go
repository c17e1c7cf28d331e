package shared

import (
	"strconv"
	"strings"
	"time"

	"github.com/stockyourlot/internal/constants"
	"github.com/stockyourlot/internal/http/response"
	"github.com/stockyourlot/internal/models"

	"github.com/gin-gonic/gin"
)

// ParseIDParam 解析路径中的正整数 ID，失败时直接写入 400 响应。
func ParseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id == 0 {
		RespondError(c, response.CodeBadRequest, "error.id_invalid", nil)
		return 0, false
	}
	return uint(id), true
}

// ParseUintQuery 解析可选的 uint 查询参数，缺省返回 0。
func ParseUintQuery(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		RespondError(c, response.CodeBadRequest, "error.id_invalid", nil)
		return 0, false
	}
	return uint(id), true
}

// ParseDateQuery 解析可选的 YYYY-MM-DD 查询参数，缺省返回 nil。
func ParseDateQuery(c *gin.Context, name string) (*models.Date, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	date, err := models.ParseDate(raw)
	if err != nil {
		RespondError(c, response.CodeBadRequest, "error.date_invalid", nil)
		return nil, false
	}
	return &date, true
}

// ParseDateQueryOrToday 解析日期查询参数，缺省为当天。
func ParseDateQueryOrToday(c *gin.Context, name string) (models.Date, bool) {
	date, ok := ParseDateQuery(c, name)
	if !ok {
		return models.Date{}, false
	}
	if date == nil {
		return models.Today(), true
	}
	return *date, true
}

// ParseMonthQuery 解析 YYYY-MM 月份参数，返回该月 1 日；缺省为当月。
func ParseMonthQuery(c *gin.Context, name string) (models.Date, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		now := time.Now()
		return models.DateOf(now.Year(), now.Month(), 1), true
	}
	parsed, err := time.Parse(constants.MonthLayout, raw)
	if err != nil {
		RespondError(c, response.CodeBadRequest, "error.month_invalid", nil)
		return models.Date{}, false
	}
	return models.DateOf(parsed.Year(), parsed.Month(), 1), true
}
