package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stockyourlot/internal/logger"
	"github.com/stockyourlot/internal/models"
	"github.com/stockyourlot/internal/provider"
	"github.com/stockyourlot/internal/queue"
	"github.com/stockyourlot/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
	now func() time.Time
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
		now:       time.Now,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskIncentiveSweepExpirations, c.handleSweepExpirations)
}

func (c *Consumer) handleSweepExpirations(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_sweep_expirations_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseSweepExpirationsPayload(task)
	if err != nil {
		logger.Warnw("worker_sweep_expirations_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	asOf, err := c.resolveSweepDate(payload.AsOf)
	if err != nil {
		logger.Warnw("worker_sweep_expirations_invalid_date", "as_of", payload.AsOf, "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	_, err = c.sweep(asOf)
	return err
}

func (c *Consumer) sweep(asOf models.Date) (*service.SweepResult, error) {
	if c.IncentiveSettlementService == nil {
		logger.Warnw("worker_sweep_expirations_skip_service_nil", "as_of", asOf.String())
		return nil, nil
	}
	result, err := c.IncentiveSettlementService.SweepExpirations(asOf)
	if err != nil {
		logger.Warnw("worker_sweep_expirations_failed", "as_of", asOf.String(), "error", err)
		return nil, err
	}
	return result, nil
}

func (c *Consumer) resolveSweepDate(raw string) (models.Date, error) {
	if strings.TrimSpace(raw) == "" {
		now := time.Now
		if c.now != nil {
			now = c.now
		}
		return models.NewDate(now()), nil
	}
	return models.ParseDate(raw)
}
