package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/stockyourlot/internal/constants"
	"github.com/stockyourlot/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// assignmentPriorityOrder 等级降序，同级最近创建优先
const assignmentPriorityOrder = "level desc, created_at desc, id desc"

// IncentiveAssignmentRepository 激励规则分配数据访问接口
type IncentiveAssignmentRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) IncentiveAssignmentRepository

	GetBySubject(subjectType string, subjectID, id uint) (*models.IncentiveAssignment, error)
	ListBySubject(subjectType string, subjectID uint, status string) ([]models.IncentiveAssignment, error)
	ListActiveBySubjectForUpdate(subjectType string, subjectID uint) ([]models.IncentiveAssignment, error)
	ListActiveSubjects() ([]SubjectRef, error)
	ExistsActiveAtLevel(subjectType string, subjectID uint, level int, excludeID uint) (bool, error)
	AcquireSubjectLock(subjectType string, subjectID uint) error
	Create(assignment *models.IncentiveAssignment) error
	Update(assignment *models.IncentiveAssignment) error
	MarkExpired(id uint, reason string, at time.Time) (bool, error)
	Delete(id uint) error
}

// GormIncentiveAssignmentRepository GORM 激励规则分配仓储
type GormIncentiveAssignmentRepository struct {
	db *gorm.DB
}

// NewIncentiveAssignmentRepository 创建激励规则分配仓储
func NewIncentiveAssignmentRepository(db *gorm.DB) *GormIncentiveAssignmentRepository {
	return &GormIncentiveAssignmentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormIncentiveAssignmentRepository) WithTx(tx *gorm.DB) IncentiveAssignmentRepository {
	if tx == nil {
		return r
	}
	return &GormIncentiveAssignmentRepository{db: tx}
}

// Transaction 执行事务
func (r *GormIncentiveAssignmentRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetBySubject 获取属于指定对象的分配
func (r *GormIncentiveAssignmentRepository) GetBySubject(subjectType string, subjectID, id uint) (*models.IncentiveAssignment, error) {
	if id == 0 || subjectID == 0 {
		return nil, nil
	}
	var assignment models.IncentiveAssignment
	if err := r.db.Preload("Rule").
		Where("id = ? AND subject_type = ? AND subject_id = ?", id, subjectType, subjectID).
		First(&assignment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &assignment, nil
}

// ListBySubject 按优先级列出对象的分配，status 为空时不过滤
func (r *GormIncentiveAssignmentRepository) ListBySubject(subjectType string, subjectID uint, status string) ([]models.IncentiveAssignment, error) {
	if subjectID == 0 {
		return []models.IncentiveAssignment{}, nil
	}
	query := r.db.Preload("Rule").
		Where("subject_type = ? AND subject_id = ?", subjectType, subjectID)
	if status = strings.TrimSpace(status); status != "" {
		query = query.Where("status = ?", status)
	}
	var rows []models.IncentiveAssignment
	if err := query.Order(assignmentPriorityOrder).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActiveBySubjectForUpdate 查询并锁定对象的生效分配
func (r *GormIncentiveAssignmentRepository) ListActiveBySubjectForUpdate(subjectType string, subjectID uint) ([]models.IncentiveAssignment, error) {
	if subjectID == 0 {
		return []models.IncentiveAssignment{}, nil
	}
	var rows []models.IncentiveAssignment
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Rule").
		Where("subject_type = ? AND subject_id = ? AND status = ?", subjectType, subjectID, constants.AssignmentStatusActive).
		Order(assignmentPriorityOrder).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActiveSubjects 列出仍有生效分配的对象（供失效巡检）
func (r *GormIncentiveAssignmentRepository) ListActiveSubjects() ([]SubjectRef, error) {
	var refs []SubjectRef
	if err := r.db.Model(&models.IncentiveAssignment{}).
		Distinct("subject_type", "subject_id").
		Where("status = ?", constants.AssignmentStatusActive).
		Order("subject_type asc, subject_id asc").
		Scan(&refs).Error; err != nil {
		return nil, err
	}
	return refs, nil
}

// ExistsActiveAtLevel 同一对象同一等级是否已有生效分配
func (r *GormIncentiveAssignmentRepository) ExistsActiveAtLevel(subjectType string, subjectID uint, level int, excludeID uint) (bool, error) {
	query := r.db.Model(&models.IncentiveAssignment{}).
		Where("subject_type = ? AND subject_id = ? AND level = ? AND status = ?",
			subjectType, subjectID, level, constants.AssignmentStatusActive)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// AcquireSubjectLock 在当前事务内串行化同一对象的结算（postgres 咨询锁）
func (r *GormIncentiveAssignmentRepository) AcquireSubjectLock(subjectType string, subjectID uint) error {
	lockSQL := advisoryLockSQLByDialect(dbDialectName(r.db))
	if lockSQL == "" {
		return nil
	}
	return r.db.Exec(lockSQL, subjectLockKey(subjectType, subjectID)).Error
}

// Create 创建分配
func (r *GormIncentiveAssignmentRepository) Create(assignment *models.IncentiveAssignment) error {
	return r.db.Omit(clause.Associations).Create(assignment).Error
}

// Update 更新分配的有效期、等级与笔数上限
func (r *GormIncentiveAssignmentRepository) Update(assignment *models.IncentiveAssignment) error {
	updates := map[string]interface{}{
		"start_date":      assignment.StartDate,
		"end_date":        nil,
		"level":           assignment.Level,
		"transaction_cap": nil,
		"updated_at":      assignment.UpdatedAt,
	}
	if assignment.EndDate != nil {
		updates["end_date"] = *assignment.EndDate
	}
	if assignment.TransactionCap != nil {
		updates["transaction_cap"] = *assignment.TransactionCap
	}
	return r.db.Model(&models.IncentiveAssignment{}).
		Where("id = ?", assignment.ID).
		Updates(updates).Error
}

// MarkExpired 将生效分配置为失效，返回是否发生状态变化
func (r *GormIncentiveAssignmentRepository) MarkExpired(id uint, reason string, at time.Time) (bool, error) {
	if id == 0 {
		return false, nil
	}
	result := r.db.Model(&models.IncentiveAssignment{}).
		Where("id = ? AND status = ?", id, constants.AssignmentStatusActive).
		Updates(map[string]interface{}{
			"status":        constants.AssignmentStatusExpired,
			"expire_reason": reason,
			"expired_at":    at,
			"updated_at":    at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Delete 删除分配
func (r *GormIncentiveAssignmentRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.IncentiveAssignment{}, id).Error
}
