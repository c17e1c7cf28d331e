package provider

import (
	"github.com/stockyourlot/internal/authz"
	"github.com/stockyourlot/internal/cache"
	"github.com/stockyourlot/internal/config"
	"github.com/stockyourlot/internal/logger"
	"github.com/stockyourlot/internal/metrics"
	"github.com/stockyourlot/internal/models"
	"github.com/stockyourlot/internal/queue"
	"github.com/stockyourlot/internal/repository"
	"github.com/stockyourlot/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Metrics     *metrics.Registry

	// Repositories
	IncentiveRuleRepo       repository.IncentiveRuleRepository
	IncentiveAssignmentRepo repository.IncentiveAssignmentRepository
	IncentiveSettlementRepo repository.IncentiveSettlementRepository
	PurchaseRepo            repository.PurchaseRepository
	SubjectRepo             repository.SubjectRepository

	// Services
	AuthzService               *authz.Service
	IncentiveRuleService       *service.IncentiveRuleService
	IncentiveAssignmentService *service.IncentiveAssignmentService
	IncentiveSettlementService *service.IncentiveSettlementService
	PurchaseService            *service.PurchaseService
	SubjectService             *service.SubjectService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c, err := Build(cfg, models.DB, queueClient, metrics.NewRegistry())
	if err != nil {
		logger.Errorw("provider_init_container_failed", "error", err)
		panic(err)
	}
	return c
}

// Build 基于给定数据库连接组装容器（测试直接传入 sqlite 连接）
func Build(cfg *config.Config, db *gorm.DB, queueClient *queue.Client, registry *metrics.Registry) (*Container, error) {
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Metrics:     registry,
	}

	// 1. 初始化 Repositories
	c.initRepositories(db)

	// 2. 初始化 Services
	if err := c.initServices(db); err != nil {
		return nil, err
	}
	return c, nil
}

// IncentiveOptions 由配置构造激励引擎参数
func IncentiveOptions(cfg *config.Config, registry *metrics.Registry) service.IncentiveOptions {
	opts := service.DefaultIncentiveOptions()
	if cfg != nil {
		if cfg.Incentive.DefaultLevel >= 0 {
			opts.DefaultLevel = cfg.Incentive.DefaultLevel
		}
		opts.LockSubjects = cfg.Incentive.LockSubjects
		opts.RuleCacheTTL = cfg.Incentive.RuleCacheTTL()
	}
	if registry != nil {
		opts.Metrics = registry.Incentive
	}
	return opts
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.IncentiveRuleRepo = repository.NewIncentiveRuleRepository(db)
	c.IncentiveAssignmentRepo = repository.NewIncentiveAssignmentRepository(db)
	c.IncentiveSettlementRepo = repository.NewIncentiveSettlementRepository(db)
	c.PurchaseRepo = repository.NewPurchaseRepository(db)
	c.SubjectRepo = repository.NewSubjectRepository(db)
}

func (c *Container) initServices(db *gorm.DB) error {
	authzService, err := authz.NewService(db)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		return err
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		return err
	}

	opts := IncentiveOptions(c.Config, c.Metrics)
	c.IncentiveRuleService = service.NewIncentiveRuleService(c.IncentiveRuleRepo, opts)
	c.IncentiveAssignmentService = service.NewIncentiveAssignmentService(c.IncentiveAssignmentRepo, c.IncentiveRuleRepo, c.SubjectRepo, opts)
	c.IncentiveSettlementService = service.NewIncentiveSettlementService(c.IncentiveAssignmentRepo, c.IncentiveSettlementRepo, c.PurchaseRepo, c.SubjectRepo, opts)
	c.PurchaseService = service.NewPurchaseService(c.PurchaseRepo, c.SubjectRepo, c.IncentiveSettlementService, opts)
	c.SubjectService = service.NewSubjectService(c.SubjectRepo)
	return nil
}
