package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stockyourlot/internal/config"
	"github.com/stockyourlot/internal/constants"
	"github.com/stockyourlot/internal/logger"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 未配置 queues 时使用的队列
	DefaultQueue = constants.QueueDefault

	defaultConcurrency = 5
	sweepTaskRetention = 24 * time.Hour
)

// Client 任务投递，未启用队列时所有投递为空操作
type Client struct {
	client *asynq.Client
}

// NewClient cfg 为空或未启用时返回禁用状态的客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{}, nil
	}
	return &Client{client: asynq.NewClient(RedisOpt(cfg))}, nil
}

func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// EnqueueSweepExpirations 投递失效巡检，返回任务 ID
// 指定日期时以日期作为任务 ID，保留期内重复投递返回 IsDuplicateTask 可识别的错误
func (c *Client) EnqueueSweepExpirations(payload SweepExpirationsPayload, opts ...asynq.Option) (string, error) {
	if !c.Enabled() {
		return "", nil
	}
	task, err := NewSweepExpirationsTask(payload)
	if err != nil {
		return "", err
	}
	options := []asynq.Option{asynq.Queue(DefaultQueue), asynq.Retention(sweepTaskRetention)}
	taskID := ""
	if asOf := strings.TrimSpace(payload.AsOf); asOf != "" {
		taskID = sweepTaskID(asOf)
		options = append(options, asynq.TaskID(taskID))
	}
	info, err := c.client.Enqueue(task, append(options, opts...)...)
	switch {
	case IsDuplicateTask(err):
		return taskID, err
	case err != nil:
		return "", err
	}
	return info.ID, nil
}

// IsDuplicateTask 同一任务 ID 仍在队列或保留期内
func IsDuplicateTask(err error) bool {
	return errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask)
}

func sweepTaskID(asOf string) string {
	return TaskIncentiveSweepExpirations + ":" + asOf
}

// NewServer 创建消费端，日志接入 zap
func NewServer(cfg *config.QueueConfig) *asynq.Server {
	serverCfg := serverConfig(cfg)
	serverCfg.Logger = logger.Named("asynq")
	serverCfg.ErrorHandler = asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
		logger.Warnw("queue_task_failed", "task_type", task.Type(), "error", err)
	})
	return asynq.NewServer(RedisOpt(cfg), serverCfg)
}

func serverConfig(cfg *config.QueueConfig) asynq.Config {
	serverCfg := asynq.Config{
		Concurrency: defaultConcurrency,
		Queues:      map[string]int{DefaultQueue: 1},
	}
	if cfg == nil {
		return serverCfg
	}
	if cfg.Concurrency > 0 {
		serverCfg.Concurrency = cfg.Concurrency
	}
	if len(cfg.Queues) > 0 {
		serverCfg.Queues = cfg.Queues
	}
	return serverCfg
}

// RedisOpt 队列使用的 Redis 连接，缺省 127.0.0.1:6379
func RedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	if cfg == nil {
		return opt
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	opt.Addr = fmt.Sprintf("%s:%d", host, port)
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	return opt
}
