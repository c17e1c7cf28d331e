package admin

import (
	"errors"
	"io"
	"strings"

	"github.com/stockyourlot/internal/http/response"
	"github.com/stockyourlot/internal/models"
	"github.com/stockyourlot/internal/queue"

	"github.com/gin-gonic/gin"
)

// ExpirationSweepRequest 失效巡检请求，as_of 缺省为当天
type ExpirationSweepRequest struct {
	AsOf *models.Date `json:"as_of"`
}

// SweepIncentiveExpirations 触发分配失效巡检：队列可用时异步投递，否则同步执行
func (h *Handler) SweepIncentiveExpirations(c *gin.Context) {
	var req ExpirationSweepRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	asOf := models.Today()
	if req.AsOf != nil {
		asOf = *req.AsOf
	}

	if h.QueueClient != nil && h.QueueClient.Enabled() {
		taskID, err := h.QueueClient.EnqueueSweepExpirations(queue.SweepExpirationsPayload{AsOf: asOf.String()})
		if err != nil && !queue.IsDuplicateTask(err) {
			respondIncentiveError(c, response.NewAppError(response.CodeInternal, "error.queue_unavailable", err))
			return
		}
		requestLog(c).Infow("admin_incentive_sweep_enqueued",
			"operator_user_id", currentUserID(c),
			"as_of", asOf.String(),
			"task_id", taskID,
			"duplicate", err != nil,
		)
		response.Success(c, gin.H{
			"queued":  true,
			"as_of":   asOf,
			"task_id": strings.TrimSpace(taskID),
		})
		return
	}

	result, err := h.IncentiveSettlementService.SweepExpirations(asOf)
	if err != nil {
		respondIncentiveError(c, err)
		return
	}
	response.Success(c, gin.H{
		"queued": false,
		"result": result,
	})
}
