package repository

import "github.com/stockyourlot/internal/models"

// IncentiveRuleListFilter 查询激励规则列表的过滤条件
type IncentiveRuleListFilter struct {
	Page       int
	PageSize   int
	Search     string
	AmountKind string
}

// IncentiveSettlementListFilter 查询结算记录的过滤条件
type IncentiveSettlementListFilter struct {
	Page        int
	PageSize    int
	SubjectType string
	SubjectID   uint
	PurchaseID  uint
	DateFrom    *models.Date // 按采购日期
	DateTo      *models.Date
}

// PurchaseListFilter 查询采购列表的过滤条件
type PurchaseListFilter struct {
	Page         int
	PageSize     int
	BuyerID      uint
	DealershipID uint
	VIN          string
	DateFrom     *models.Date
	DateTo       *models.Date
}

// SubjectListFilter 查询经纪人或车行列表的过滤条件
type SubjectListFilter struct {
	Page     int
	PageSize int
	Search   string
}

// SubjectRef 激励对象标识
type SubjectRef struct {
	SubjectType string `gorm:"column:subject_type" json:"subject_type"`
	SubjectID   uint   `gorm:"column:subject_id" json:"subject_id"`
}
