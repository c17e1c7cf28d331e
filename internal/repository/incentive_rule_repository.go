package repository

import (
	"errors"
	"strings"

	"github.com/stockyourlot/internal/models"

	"gorm.io/gorm"
)

// IncentiveRuleRepository 激励规则目录数据访问接口
type IncentiveRuleRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) IncentiveRuleRepository

	GetByID(id uint) (*models.IncentiveRule, error)
	List(filter IncentiveRuleListFilter) ([]models.IncentiveRule, int64, error)
	Create(rule *models.IncentiveRule) error
	Update(rule *models.IncentiveRule) error
	Delete(id uint) error
}

// GormIncentiveRuleRepository GORM 激励规则仓储
type GormIncentiveRuleRepository struct {
	db *gorm.DB
}

// NewIncentiveRuleRepository 创建激励规则仓储
func NewIncentiveRuleRepository(db *gorm.DB) *GormIncentiveRuleRepository {
	return &GormIncentiveRuleRepository{db: db}
}

// WithTx 绑定事务
func (r *GormIncentiveRuleRepository) WithTx(tx *gorm.DB) IncentiveRuleRepository {
	if tx == nil {
		return r
	}
	return &GormIncentiveRuleRepository{db: tx}
}

// Transaction 执行事务
func (r *GormIncentiveRuleRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 按ID获取规则
func (r *GormIncentiveRuleRepository) GetByID(id uint) (*models.IncentiveRule, error) {
	if id == 0 {
		return nil, nil
	}
	var rule models.IncentiveRule
	if err := r.db.First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

// List 规则列表
func (r *GormIncentiveRuleRepository) List(filter IncentiveRuleListFilter) ([]models.IncentiveRule, int64, error) {
	query := r.db.Model(&models.IncentiveRule{})
	if kind := strings.TrimSpace(filter.AmountKind); kind != "" {
		query = query.Where("amount_kind = ?", kind)
	}
	if keyword := strings.TrimSpace(filter.Search); keyword != "" {
		condition, args := buildLikeCondition(r.db, keyword, "name")
		query = query.Where(condition, args...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	var rows []models.IncentiveRule
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Create 创建规则
func (r *GormIncentiveRuleRepository) Create(rule *models.IncentiveRule) error {
	return r.db.Create(rule).Error
}

// Update 更新规则（金额可置空）
func (r *GormIncentiveRuleRepository) Update(rule *models.IncentiveRule) error {
	return r.db.Model(&models.IncentiveRule{}).
		Where("id = ?", rule.ID).
		Updates(map[string]interface{}{
			"name":        rule.Name,
			"amount":      rule.Amount,
			"amount_kind": rule.AmountKind,
			"updated_at":  rule.UpdatedAt,
		}).Error
}

// Delete 硬删除规则，并将历史结算的规则引用置空
func (r *GormIncentiveRuleRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.IncentiveSettlement{}).
			Where("rule_id = ?", id).
			Update("rule_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.IncentiveRule{}, id).Error
	})
}
