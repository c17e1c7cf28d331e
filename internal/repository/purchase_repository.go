package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stockyourlot/internal/constants"
	"github.com/stockyourlot/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PurchaseRepository 采购数据访问接口
type PurchaseRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) PurchaseRepository

	GetByID(id uint) (*models.Purchase, error)
	List(filter PurchaseListFilter) ([]models.Purchase, int64, error)
	Create(purchase *models.Purchase) error
	Update(purchase *models.Purchase) error
	CountBySubjectBetween(subjectType string, subjectID uint, from, to models.Date) (int64, error)
}

// GormPurchaseRepository GORM 采购仓储
type GormPurchaseRepository struct {
	db *gorm.DB
}

// NewPurchaseRepository 创建采购仓储
func NewPurchaseRepository(db *gorm.DB) *GormPurchaseRepository {
	return &GormPurchaseRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPurchaseRepository) WithTx(tx *gorm.DB) PurchaseRepository {
	if tx == nil {
		return r
	}
	return &GormPurchaseRepository{db: tx}
}

// Transaction 执行事务
func (r *GormPurchaseRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 获取采购详情（含经纪人、车行与结算）
func (r *GormPurchaseRepository) GetByID(id uint) (*models.Purchase, error) {
	if id == 0 {
		return nil, nil
	}
	var purchase models.Purchase
	if err := r.db.Preload("Buyer").
		Preload("Dealership").
		Preload("Settlements", func(db *gorm.DB) *gorm.DB {
			return db.Order("subject_type asc, id asc")
		}).
		First(&purchase, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &purchase, nil
}

// List 采购分页列表
func (r *GormPurchaseRepository) List(filter PurchaseListFilter) ([]models.Purchase, int64, error) {
	query := r.db.Model(&models.Purchase{})
	if filter.BuyerID != 0 {
		query = query.Where("buyer_id = ?", filter.BuyerID)
	}
	if filter.DealershipID != 0 {
		query = query.Where("dealership_id = ?", filter.DealershipID)
	}
	if vin := strings.TrimSpace(filter.VIN); vin != "" {
		query = query.Where("vin = ?", strings.ToUpper(vin))
	}
	if filter.DateFrom != nil {
		query = query.Where("purchase_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("purchase_date <= ?", *filter.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	var rows []models.Purchase
	if err := query.Preload("Dealership").
		Preload("Settlements").
		Order("purchase_date desc, id desc").
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Create 创建采购
func (r *GormPurchaseRepository) Create(purchase *models.Purchase) error {
	return r.db.Omit(clause.Associations).Create(purchase).Error
}

// Update 更新采购字段（不触发重新结算）
func (r *GormPurchaseRepository) Update(purchase *models.Purchase) error {
	return r.db.Model(&models.Purchase{}).
		Where("id = ?", purchase.ID).
		Updates(map[string]interface{}{
			"dealership_id":      purchase.DealershipID,
			"purchase_date":      purchase.PurchaseDate,
			"auction_platform":   purchase.AuctionPlatform,
			"vin":                purchase.VIN,
			"miles":              purchase.Miles,
			"purchase_price":     purchase.PurchasePrice,
			"vehicle_year":       purchase.VehicleYear,
			"vehicle_make":       purchase.VehicleMake,
			"vehicle_model":      purchase.VehicleModel,
			"vehicle_trim_level": purchase.VehicleTrimLevel,
			"transport_quote":    purchase.TransportQuote,
			"updated_at":         purchase.UpdatedAt,
		}).Error
}

// CountBySubjectBetween 统计对象在 [from, to] 内的采购笔数
func (r *GormPurchaseRepository) CountBySubjectBetween(subjectType string, subjectID uint, from, to models.Date) (int64, error) {
	column, err := purchaseSubjectColumn(subjectType)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := r.db.Model(&models.Purchase{}).
		Where(column+" = ? AND purchase_date >= ? AND purchase_date <= ?", subjectID, from, to).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func purchaseSubjectColumn(subjectType string) (string, error) {
	switch subjectType {
	case constants.SubjectTypeAgent:
		return "buyer_id", nil
	case constants.SubjectTypeDealership:
		return "dealership_id", nil
	default:
		return "", fmt.Errorf("unknown subject type: %s", subjectType)
	}
}
