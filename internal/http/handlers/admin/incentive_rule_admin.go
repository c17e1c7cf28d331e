package admin

import (
	"strings"

	handlershared "github.com/stockyourlot/internal/http/handlers/shared"
	"github.com/stockyourlot/internal/http/response"
	"github.com/stockyourlot/internal/repository"
	"github.com/stockyourlot/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// IncentiveRuleCreateRequest 创建激励规则请求
type IncentiveRuleCreateRequest struct {
	Name       string           `json:"name" binding:"required"`
	Amount     *decimal.Decimal `json:"amount" binding:"required"`
	AmountKind string           `json:"amount_kind" binding:"required"`
}

// IncentiveRuleUpdateRequest 部分更新激励规则请求
type IncentiveRuleUpdateRequest struct {
	Name       *string          `json:"name"`
	Amount     *decimal.Decimal `json:"amount"`
	AmountKind *string          `json:"amount_kind"`
}

// GetIncentiveRules 获取激励规则列表
func (h *Handler) GetIncentiveRules(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	rules, total, err := h.IncentiveRuleService.List(repository.IncentiveRuleListFilter{
		Page:       page,
		PageSize:   pageSize,
		Search:     strings.TrimSpace(c.Query("search")),
		AmountKind: c.Query("amount_kind"),
	})
	if err != nil {
		respondIncentiveError(c, err)
		return
	}
	response.SuccessWithPage(c, rules, handlershared.BuildPagination(page, pageSize, total))
}

// GetIncentiveRule 获取激励规则详情
func (h *Handler) GetIncentiveRule(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	rule, err := h.IncentiveRuleService.Get(c.Request.Context(), id)
	if err != nil {
		respondIncentiveError(c, err)
		return
	}
	response.Success(c, rule)
}

// CreateIncentiveRule 创建激励规则
func (h *Handler) CreateIncentiveRule(c *gin.Context) {
	var req IncentiveRuleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	rule, err := h.IncentiveRuleService.Create(service.CreateIncentiveRuleInput{
		Name:       req.Name,
		Amount:     req.Amount,
		AmountKind: req.AmountKind,
	})
	if err != nil {
		respondIncentiveError(c, err)
		return
	}
	response.Success(c, rule)
}

// UpdateIncentiveRule 部分更新激励规则
func (h *Handler) UpdateIncentiveRule(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req IncentiveRuleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	rule, err := h.IncentiveRuleService.Update(c.Request.Context(), id, service.UpdateIncentiveRuleInput{
		Name:       req.Name,
		Amount:     req.Amount,
		AmountKind: req.AmountKind,
	})
	if err != nil {
		respondIncentiveError(c, err)
		return
	}
	requestLog(c).Infow("admin_incentive_rule_updated",
		"operator_user_id", currentUserID(c),
		"rule_id", rule.ID,
	)
	response.Success(c, rule)
}

// DeleteIncentiveRule 删除激励规则
func (h *Handler) DeleteIncentiveRule(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.IncentiveRuleService.Delete(c.Request.Context(), id); err != nil {
		respondIncentiveError(c, err)
		return
	}
	response.Success(c, gin.H{
		"deleted": true,
	})
}
