package repository

import (
	"errors"
	"strings"

	"github.com/stockyourlot/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// IncentiveSettlementRepository 结算记录数据访问接口（只增不改）
type IncentiveSettlementRepository interface {
	WithTx(tx *gorm.DB) IncentiveSettlementRepository

	Create(settlement *models.IncentiveSettlement) error
	GetByPurchaseAndSubject(purchaseID uint, subjectType string) (*models.IncentiveSettlement, error)
	ListByPurchase(purchaseID uint) ([]models.IncentiveSettlement, error)
	List(filter IncentiveSettlementListFilter) ([]models.IncentiveSettlement, int64, error)
	SumBySubject(subjectType string, subjectID uint, from, to *models.Date) (decimal.Decimal, error)
}

// GormIncentiveSettlementRepository GORM 结算记录仓储
type GormIncentiveSettlementRepository struct {
	db *gorm.DB
}

// NewIncentiveSettlementRepository 创建结算记录仓储
func NewIncentiveSettlementRepository(db *gorm.DB) *GormIncentiveSettlementRepository {
	return &GormIncentiveSettlementRepository{db: db}
}

// WithTx 绑定事务
func (r *GormIncentiveSettlementRepository) WithTx(tx *gorm.DB) IncentiveSettlementRepository {
	if tx == nil {
		return r
	}
	return &GormIncentiveSettlementRepository{db: tx}
}

// Create 写入结算记录
func (r *GormIncentiveSettlementRepository) Create(settlement *models.IncentiveSettlement) error {
	return r.db.Create(settlement).Error
}

// GetByPurchaseAndSubject 获取某采购某类对象的结算
func (r *GormIncentiveSettlementRepository) GetByPurchaseAndSubject(purchaseID uint, subjectType string) (*models.IncentiveSettlement, error) {
	if purchaseID == 0 {
		return nil, nil
	}
	var row models.IncentiveSettlement
	if err := r.db.Where("purchase_id = ? AND subject_type = ?", purchaseID, subjectType).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListByPurchase 列出采购的结算（经纪人在前）
func (r *GormIncentiveSettlementRepository) ListByPurchase(purchaseID uint) ([]models.IncentiveSettlement, error) {
	if purchaseID == 0 {
		return []models.IncentiveSettlement{}, nil
	}
	var rows []models.IncentiveSettlement
	if err := r.db.Where("purchase_id = ?", purchaseID).
		Order("subject_type asc, id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// List 结算记录分页列表
func (r *GormIncentiveSettlementRepository) List(filter IncentiveSettlementListFilter) ([]models.IncentiveSettlement, int64, error) {
	query := r.scoped(r.db.Model(&models.IncentiveSettlement{}), filter.SubjectType, filter.SubjectID, filter.DateFrom, filter.DateTo)
	if filter.PurchaseID != 0 {
		query = query.Where("purchase_id = ?", filter.PurchaseID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	var rows []models.IncentiveSettlement
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// SumBySubject 汇总对象结算金额，日期区间按采购日期过滤
func (r *GormIncentiveSettlementRepository) SumBySubject(subjectType string, subjectID uint, from, to *models.Date) (decimal.Decimal, error) {
	if subjectID == 0 {
		return decimal.Zero, nil
	}
	query := r.scoped(r.db.Model(&models.IncentiveSettlement{}), subjectType, subjectID, from, to)

	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := query.Select("COALESCE(SUM(amount), 0) AS total").Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}

func (r *GormIncentiveSettlementRepository) scoped(query *gorm.DB, subjectType string, subjectID uint, from, to *models.Date) *gorm.DB {
	if subjectType = strings.TrimSpace(subjectType); subjectType != "" {
		query = query.Where("subject_type = ?", subjectType)
	}
	if subjectID != 0 {
		query = query.Where("subject_id = ?", subjectID)
	}
	if from != nil || to != nil {
		purchases := r.db.Model(&models.Purchase{}).Select("id")
		if from != nil {
			purchases = purchases.Where("purchase_date >= ?", *from)
		}
		if to != nil {
			purchases = purchases.Where("purchase_date <= ?", *to)
		}
		query = query.Where("purchase_id IN (?)", purchases)
	}
	return query
}
