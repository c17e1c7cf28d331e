package router

import (
	"context"
	"net/http"
	"time"

	"github.com/stockyourlot/internal/cache"
	"github.com/stockyourlot/internal/logger"
	"github.com/stockyourlot/internal/models"

	"github.com/gin-gonic/gin"
)

const healthProbeTimeout = 2 * time.Second

// healthHandler 探测数据库与 Redis，任一失败返回 503
func healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthProbeTimeout)
	defer cancel()

	checks := gin.H{"database": "ok", "redis": "disabled"}
	healthy := true
	if err := pingDatabase(ctx); err != nil {
		logger.Warnw("health_database_failed", "error", err)
		checks["database"] = "error"
		healthy = false
	}
	if cache.Enabled() {
		checks["redis"] = "ok"
		if err := cache.Ping(ctx); err != nil {
			logger.Warnw("health_redis_failed", "error", err)
			checks["redis"] = "error"
			healthy = false
		}
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": checks})
}

func pingDatabase(ctx context.Context) error {
	if models.DB == nil {
		return nil
	}
	sqlDB, err := models.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
