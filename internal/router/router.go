package router

import (
	"strings"

	"github.com/stockyourlot/internal/cache"
	"github.com/stockyourlot/internal/config"
	adminhandlers "github.com/stockyourlot/internal/http/handlers/admin"
	publichandlers "github.com/stockyourlot/internal/http/handlers/public"
	"github.com/stockyourlot/internal/http/response"
	"github.com/stockyourlot/internal/logger"
	"github.com/stockyourlot/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	return setupRouter(cfg, c, cache.Client())
}

func setupRouter(cfg *config.Config, c *provider.Container, redisClient *redis.Client) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按买家/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "syl"
	}
	purchaseRule := newRateLimitRule(redisPrefix+":rate:purchase", cfg.Security.PurchaseRateLimit, "error.purchase_too_many")
	purchaseVINRule := newRateLimitRule(redisPrefix+":rate:purchase_vin", cfg.Security.PurchaseVINRateLimit, "error.purchase_too_many")
	publicRule := newRateLimitRule(redisPrefix+":rate:public", cfg.Security.PublicRateLimit, "error.rate_limited")

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	if c.Metrics != nil {
		r.Use(MetricsMiddleware(c.Metrics.HTTP))
	}
	r.Use(CORSMiddleware(cfg.CORS))

	authMiddleware := JWTAuthMiddleware(cfg.JWT, c.SubjectRepo)
	rbacMiddleware := RBACMiddleware(c.AuthzService)

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 买家采购接口
		purchases := apiV1.Group("/purchases")
		purchases.Use(authMiddleware, rbacMiddleware)
		{
			purchases.POST("",
				RateLimitMiddleware(redisClient, purchaseRule, KeyByUserID),
				RateLimitMiddleware(redisClient, purchaseVINRule, KeyByUserAndJSONField("vin")),
				publicHandler.CreatePurchase,
			)
			purchases.GET("", publicHandler.ListMyPurchases)
			purchases.GET("/:id", publicHandler.GetMyPurchase)
		}

		// 后台接口
		admin := apiV1.Group("/admin")
		{
			authorized := admin.Group("")
			authorized.Use(authMiddleware, rbacMiddleware)
			{
				// 激励规则目录
				authorized.GET("/incentive-rules", adminHandler.GetIncentiveRules)
				authorized.POST("/incentive-rules", adminHandler.CreateIncentiveRule)
				authorized.GET("/incentive-rules/:id", adminHandler.GetIncentiveRule)
				authorized.PUT("/incentive-rules/:id", adminHandler.UpdateIncentiveRule)
				authorized.DELETE("/incentive-rules/:id", adminHandler.DeleteIncentiveRule)

				// 激励对象：分配、生效规则、结算与汇总
				subject := authorized.Group("/subjects/:subject_type/:subject_id")
				{
					subject.GET("/assignments", adminHandler.GetSubjectAssignments)
					subject.POST("/assignments", adminHandler.CreateSubjectAssignment)
					subject.PUT("/assignments/:id", adminHandler.UpdateSubjectAssignment)
					subject.DELETE("/assignments/:id", adminHandler.DeleteSubjectAssignment)
					subject.GET("/effective", adminHandler.GetSubjectEffectiveAssignment)
					subject.GET("/settlements", adminHandler.GetSubjectSettlements)
					subject.GET("/summary", adminHandler.GetSubjectSummary)
				}
				authorized.POST("/incentive-expirations/sweep", adminHandler.SweepIncentiveExpirations)

				// 采购管理
				authorized.GET("/purchases", adminHandler.GetAdminPurchases)
				authorized.GET("/purchases/:id", adminHandler.GetAdminPurchase)
				authorized.PUT("/purchases/:id", adminHandler.UpdateAdminPurchase)
				authorized.GET("/purchases/:id/settlements", adminHandler.GetAdminPurchaseSettlements)

				// 经纪人与车行
				authorized.GET("/agents", adminHandler.GetAdminAgents)
				authorized.POST("/agents", adminHandler.CreateAdminAgent)
				authorized.GET("/dealerships", adminHandler.GetAdminDealerships)
				authorized.POST("/dealerships", adminHandler.CreateAdminDealership)
				authorized.GET("/dealerships/:id", adminHandler.GetAdminDealership)

				// 权限管理
				authorized.GET("/authz/me", adminHandler.GetAuthzMe)
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
				authorized.POST("/authz/roles", adminHandler.CreateAuthzRole)
				authorized.DELETE("/authz/roles/:role", adminHandler.DeleteAuthzRole)
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
				authorized.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
				authorized.GET("/authz/users/:id/roles", adminHandler.GetAuthzUserRoles)
				authorized.PUT("/authz/users/:id/roles", adminHandler.SetAuthzUserRoles)
			}
		}
	}

	// 健康检查与指标（免鉴权，按 IP 限流）
	publicLimit := RateLimitMiddleware(redisClient, publicRule, KeyByIP)
	r.GET("/health", publicLimit, healthHandler)
	if c.Metrics != nil {
		r.GET("/metrics", publicLimit, gin.WrapH(c.Metrics.Handler()))
	}

	return r
}
