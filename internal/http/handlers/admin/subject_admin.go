package admin

import (
	"strings"

	handlershared "github.com/stockyourlot/internal/http/handlers/shared"
	"github.com/stockyourlot/internal/http/response"
	"github.com/stockyourlot/internal/repository"
	"github.com/stockyourlot/internal/service"

	"github.com/gin-gonic/gin"
)

// AgentCreateRequest 创建经纪人请求
type AgentCreateRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// DealershipCreateRequest 创建车行请求
type DealershipCreateRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Phone   string `json:"phone"`
}

func parseSubjectListFilter(c *gin.Context) repository.SubjectListFilter {
	page, pageSize := handlershared.ParsePagination(c)
	return repository.SubjectListFilter{
		Page:     page,
		PageSize: pageSize,
		Search:   strings.TrimSpace(c.Query("search")),
	}
}

// GetAdminAgents 获取经纪人列表
func (h *Handler) GetAdminAgents(c *gin.Context) {
	filter := parseSubjectListFilter(c)
	agents, total, err := h.SubjectService.ListAgents(filter)
	if err != nil {
		respondIncentiveError(c, err)
		return
	}
	response.SuccessWithPage(c, agents, handlershared.BuildPagination(filter.Page, filter.PageSize, total))
}

// CreateAdminAgent 创建经纪人
func (h *Handler) CreateAdminAgent(c *gin.Context) {
	var req AgentCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	agent, err := h.SubjectService.CreateAgent(service.CreateAgentInput{
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		respondIncentiveError(c, err)
		return
	}
	response.Success(c, agent)
}

// GetAdminDealerships 获取车行列表
func (h *Handler) GetAdminDealerships(c *gin.Context) {
	filter := parseSubjectListFilter(c)
	dealerships, total, err := h.SubjectService.ListDealerships(filter)
	if err != nil {
		respondIncentiveError(c, err)
		return
	}
	response.SuccessWithPage(c, dealerships, handlershared.BuildPagination(filter.Page, filter.PageSize, total))
}

// GetAdminDealership 获取车行详情
func (h *Handler) GetAdminDealership(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	dealership, err := h.SubjectService.GetDealership(id)
	if err != nil {
		respondPurchaseError(c, err, "error.internal")
		return
	}
	response.Success(c, dealership)
}

// CreateAdminDealership 创建车行
func (h *Handler) CreateAdminDealership(c *gin.Context) {
	var req DealershipCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	dealership, err := h.SubjectService.CreateDealership(service.CreateDealershipInput{
		Name:    req.Name,
		Address: req.Address,
		City:    req.City,
		State:   req.State,
		Zip:     req.Zip,
		Phone:   req.Phone,
	})
	if err != nil {
		respondIncentiveError(c, err)
		return
	}
	response.Success(c, dealership)
}
