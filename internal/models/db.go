package models

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/stockyourlot/internal/config"
	"github.com/stockyourlot/internal/logger"

	"github.com/glebarez/sqlite" // 纯 Go SQLite 驱动（基于 modernc.org/sqlite）
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// DBPoolConfig 数据库连接池配置
type DBPoolConfig struct {
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeSeconds int
	ConnMaxIdleTimeSeconds int
}

// activeLevelIndexSQL 同一对象同一等级至多一条 active 分配（sqlite 与 postgres 均支持部分索引）
const activeLevelIndexSQL = `CREATE UNIQUE INDEX IF NOT EXISTS uniq_incentive_assignment_active_level
ON incentive_assignments (subject_type, subject_id, level) WHERE status = 'active'`

// InitDB 初始化数据库连接
func InitDB(driver, dsn string, pool DBPoolConfig, debug bool) error {
	db, err := Open(driver, dsn, debug)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	applyDBPool(sqlDB, pool)
	DB = db
	return nil
}

// Open 按驱动名打开 gorm 连接
func Open(driver, dsn string, debug bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	return gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(logger.StdLogger(), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		// 规则可被硬删除，分配与结算仅保留可空引用
		DisableForeignKeyConstraintWhenMigrating: true,
	})
}

func applyDBPool(sqlDB *sql.DB, pool DBPoolConfig) {
	if sqlDB == nil {
		return
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns >= 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetimeSeconds > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeSeconds) * time.Second)
	}
	if pool.ConnMaxIdleTimeSeconds > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(pool.ConnMaxIdleTimeSeconds) * time.Second)
	}
}

// Setup 按配置连接数据库并迁移表结构，命令行入口共用
func Setup(cfg config.DatabaseConfig, debug bool) error {
	pool := DBPoolConfig{
		MaxOpenConns:           cfg.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Pool.ConnMaxIdleTimeSeconds,
	}
	if err := InitDB(cfg.Driver, cfg.DSN, pool, debug); err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	if err := AutoMigrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

// AutoMigrate 自动迁移全局连接
func AutoMigrate() error {
	return Migrate(DB)
}

// Migrate 迁移所有表并补建部分唯一索引
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{},
		&Dealership{},
		&Purchase{},
		&IncentiveRule{},
		&IncentiveAssignment{},
		&IncentiveSettlement{},
	); err != nil {
		return err
	}
	if err := db.Exec(activeLevelIndexSQL).Error; err != nil {
		return fmt.Errorf("create active level index: %w", err)
	}
	return nil
}
