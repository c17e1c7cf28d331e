package admin

import (
	handlershared "github.com/stockyourlot/internal/http/handlers/shared"
	"github.com/stockyourlot/internal/http/response"
	"github.com/stockyourlot/internal/models"
	"github.com/stockyourlot/internal/repository"
	"github.com/stockyourlot/internal/service"

	"github.com/gin-gonic/gin"
)

// AssignmentCreateRequest 创建分配请求
type AssignmentCreateRequest struct {
	RuleID         uint         `json:"rule_id" binding:"required"`
	StartDate      *models.Date `json:"start_date" binding:"required"`
	EndDate        *models.Date `json:"end_date"`
	Level          *int         `json:"level"`
	TransactionCap *int         `json:"transaction_cap"`
}

// AssignmentUpdateRequest 部分更新分配请求（状态不可修改）
type AssignmentUpdateRequest struct {
	StartDate           *models.Date `json:"start_date"`
	EndDate             *models.Date `json:"end_date"`
	ClearEndDate        bool         `json:"clear_end_date"`
	Level               *int         `json:"level"`
	TransactionCap      *int         `json:"transaction_cap"`
	ClearTransactionCap bool         `json:"clear_transaction_cap"`
}

func parseSubjectParams(c *gin.Context) (string, uint, bool) {
	subjectID, ok := handlershared.ParseIDParam(c, "subject_id")
	if !ok {
		return "", 0, false
	}
	return c.Param("subject_type"), subjectID, true
}

// GetSubjectAssignments 按等级降序列出对象的分配
func (h *Handler) GetSubjectAssignments(c *gin.Context) {
	subjectType, subjectID, ok := parseSubjectParams(c)
	if !ok {
		return
	}
	assignments, err := h.IncentiveAssignmentService.List(subjectType, subjectID, c.Query("status"))
	if err != nil {
		respondIncentiveError(c, err)
		return
	}
	response.Success(c, assignments)
}

// CreateSubjectAssignment 为对象新增分配
func (h *Handler) CreateSubjectAssignment(c *gin.Context) {
	subjectType, subjectID, ok := parseSubjectParams(c)
	if !ok {
		return
	}
	var req AssignmentCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	assignment, err := h.IncentiveAssignmentService.Create(subjectType, subjectID, service.CreateAssignmentInput{
		RuleID:         req.RuleID,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Level:          req.Level,
		TransactionCap: req.TransactionCap,
	})
	if err != nil {
		respondIncentiveError(c, err)
		return
	}
	response.Success(c, assignment)
}

// UpdateSubjectAssignment 部分更新分配
func (h *Handler) UpdateSubjectAssignment(c *gin.Context) {
	subjectType, subjectID, ok := parseSubjectParams(c)
	if !ok {
		return
	}
	assignmentID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req AssignmentUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	assignment, err := h.IncentiveAssignmentService.Update(subjectType, subjectID, assignmentID, service.UpdateAssignmentInput{
		StartDate:           req.StartDate,
		EndDate:             req.EndDate,
		ClearEndDate:        req.ClearEndDate,
		Level:               req.Level,
		TransactionCap:      req.TransactionCap,
		ClearTransactionCap: req.ClearTransactionCap,
	})
	if err != nil {
		respondIncentiveError(c, err)
		return
	}
	requestLog(c).Infow("admin_incentive_assignment_updated",
		"operator_user_id", currentUserID(c),
		"assignment_id", assignment.ID,
		"subject_type", assignment.SubjectType,
		"subject_id", assignment.SubjectID,
	)
	response.Success(c, assignment)
}

// DeleteSubjectAssignment 删除分配
func (h *Handler) DeleteSubjectAssignment(c *gin.Context) {
	subjectType, subjectID, ok := parseSubjectParams(c)
	if !ok {
		return
	}
	assignmentID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.IncentiveAssignmentService.Delete(subjectType, subjectID, assignmentID); err != nil {
		respondIncentiveError(c, err)
		return
	}
	response.Success(c, gin.H{
		"deleted": true,
	})
}

// GetSubjectEffectiveAssignment 查询对象在指定日期（默认当天）的生效分配
func (h *Handler) GetSubjectEffectiveAssignment(c *gin.Context) {
	subjectType, subjectID, ok := parseSubjectParams(c)
	if !ok {
		return
	}
	asOf, ok := handlershared.ParseDateQueryOrToday(c, "date")
	if !ok {
		return
	}
	assignment, err := h.IncentiveAssignmentService.ResolveEffective(subjectType, subjectID, asOf)
	if err != nil {
		respondIncentiveError(c, err)
		return
	}
	response.Success(c, gin.H{
		"date":       asOf,
		"effective":  assignment != nil,
		"assignment": assignment,
	})
}

// GetSubjectSettlements 分页查询对象的结算记录
func (h *Handler) GetSubjectSettlements(c *gin.Context) {
	subjectType, subjectID, ok := parseSubjectParams(c)
	if !ok {
		return
	}
	dateFrom, ok := handlershared.ParseDateQuery(c, "date_from")
	if !ok {
		return
	}
	dateTo, ok := handlershared.ParseDateQuery(c, "date_to")
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	settlements, total, err := h.IncentiveSettlementService.ListForSubject(repository.IncentiveSettlementListFilter{
		Page:        page,
		PageSize:    pageSize,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		DateFrom:    dateFrom,
		DateTo:      dateTo,
	})
	if err != nil {
		respondIncentiveError(c, err)
		return
	}
	response.SuccessWithPage(c, settlements, handlershared.BuildPagination(page, pageSize, total))
}

// GetSubjectSummary 对象月度激励汇总
func (h *Handler) GetSubjectSummary(c *gin.Context) {
	subjectType, subjectID, ok := parseSubjectParams(c)
	if !ok {
		return
	}
	month, ok := handlershared.ParseMonthQuery(c, "month")
	if !ok {
		return
	}
	summary, err := h.IncentiveSettlementService.Summarize(subjectType, subjectID, month)
	if err != nil {
		respondIncentiveError(c, err)
		return
	}
	response.Success(c, summary)
}
