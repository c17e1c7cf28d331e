package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

func isPostgresDialect(dialect string) bool {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return true
	default:
		return false
	}
}

func likeOperatorByDialect(dialect string) string {
	if isPostgresDialect(dialect) {
		return "ILIKE"
	}
	return "LIKE"
}

// buildLikeCondition 构建多列 LIKE 条件，并返回重复的参数列表。
func buildLikeCondition(db *gorm.DB, keyword string, columns ...string) (string, []interface{}) {
	operator := likeOperatorByDialect(dbDialectName(db))
	like := "%" + strings.TrimSpace(keyword) + "%"
	parts := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, column := range columns {
		trimmed := strings.TrimSpace(column)
		if trimmed == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s ?", trimmed, operator))
		args = append(args, like)
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

// subjectLockKey 对象级咨询锁键
func subjectLockKey(subjectType string, subjectID uint) string {
	return fmt.Sprintf("incentive:%s:%d", subjectType, subjectID)
}

// advisoryLockSQLByDialect 返回事务级咨询锁语句；sqlite 单写者无需加锁，返回空串。
func advisoryLockSQLByDialect(dialect string) string {
	if isPostgresDialect(dialect) {
		return "SELECT pg_advisory_xact_lock(hashtext(?))"
	}
	return ""
}
