package queue

import (
	"encoding/json"
	"fmt"

	"github.com/stockyourlot/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskIncentiveSweepExpirations 激励分配失效巡检任务
	TaskIncentiveSweepExpirations = constants.TaskIncentiveSweepExpirations
)

// SweepExpirationsPayload 失效巡检任务载荷；AsOf 为空表示按执行当天
type SweepExpirationsPayload struct {
	AsOf string `json:"as_of,omitempty"`
}

// NewSweepExpirationsTask 创建失效巡检任务
func NewSweepExpirationsTask(payload SweepExpirationsPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIncentiveSweepExpirations, body), nil
}

// ParseSweepExpirationsPayload 解析失效巡检任务载荷
func ParseSweepExpirationsPayload(task *asynq.Task) (SweepExpirationsPayload, error) {
	var payload SweepExpirationsPayload
	if task == nil {
		return payload, fmt.Errorf("task is nil")
	}
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}
