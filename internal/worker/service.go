package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stockyourlot/internal/config"
	"github.com/stockyourlot/internal/logger"
	"github.com/stockyourlot/internal/models"
	"github.com/stockyourlot/internal/queue"

	"github.com/hibiken/asynq"
)

const serviceName = "worker"

// Service 消费 asynq 任务，并按配置间隔在本进程内执行失效巡检
type Service struct {
	server        *asynq.Server
	mux           *asynq.ServeMux
	consumer      *Consumer
	sweepInterval time.Duration

	loopCancel context.CancelFunc
	loopDone   sync.WaitGroup
}

// NewService 队列未启用时返回错误
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		server:        queue.NewServer(cfg),
		mux:           mux,
		consumer:      consumer,
		sweepInterval: cfg.SweepInterval(),
	}, nil
}

func (s *Service) Name() string {
	return serviceName
}

// Start 阻塞直到 asynq 服务退出
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("worker not initialized")
	}
	if s.sweepInterval > 0 {
		loopCtx, cancel := context.WithCancel(ctx)
		s.loopCancel = cancel
		s.loopDone.Add(1)
		go func() {
			defer s.loopDone.Done()
			s.runSweepLoop(loopCtx)
		}()
	}
	return s.server.Run(s.mux)
}

// Stop 先停巡检循环，再等待在途任务处理完
func (s *Service) Stop(_ context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	if s.loopCancel != nil {
		s.loopCancel()
	}
	s.loopDone.Wait()
	s.server.Shutdown()
	return nil
}

// runSweepLoop 启动时先巡检一次
func (s *Service) runSweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		asOf := models.NewDate(s.consumer.now())
		if result, err := s.consumer.sweep(asOf); err != nil {
			logger.Warnw("worker_sweep_loop_failed", "as_of", asOf.String(), "error", err)
		} else if result != nil && result.Expired > 0 {
			logger.Infow("worker_sweep_loop_expired", "as_of", asOf.String(), "expired", result.Expired)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
