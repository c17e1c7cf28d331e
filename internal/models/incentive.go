package models

import (
	"time"

	"github.com/stockyourlot/internal/constants"

	"github.com/shopspring/decimal"
)

// IncentiveRule 激励规则目录
type IncentiveRule struct {
	ID         uint                `gorm:"primarykey" json:"id"`                               // 主键
	Name       string              `gorm:"type:varchar(100);not null" json:"name"`             // 规则名称
	Amount     decimal.NullDecimal `gorm:"type:decimal(12,4)" json:"amount"`                   // 金额或百分比
	AmountKind string              `gorm:"type:varchar(16);not null;index" json:"amount_kind"` // flat / percent
	CreatedAt  time.Time           `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt  time.Time           `json:"updated_at"`                                         // 更新时间
}

// TableName 指定表名
func (IncentiveRule) TableName() string {
	return "incentive_rules"
}

// IncentiveAssignment 激励对象与规则的绑定（有效期 + 等级 + 笔数上限）
type IncentiveAssignment struct {
	ID             uint       `gorm:"primarykey" json:"id"`                                                                 // 主键
	SubjectType    string     `gorm:"type:varchar(20);not null;index:idx_incentive_assignment_subject" json:"subject_type"` // agent / dealership
	SubjectID      uint       `gorm:"not null;index:idx_incentive_assignment_subject" json:"subject_id"`                    // 对象ID
	RuleID         uint       `gorm:"not null;index" json:"rule_id"`                                                        // 规则ID
	StartDate      Date       `gorm:"type:date;not null" json:"start_date"`                                                 // 生效日（含）
	EndDate        *Date      `gorm:"type:date" json:"end_date"`                                                            // 截止日（含），为空表示长期
	Level          int        `gorm:"not null" json:"level"`                                                                // 优先级，越大越优先
	TransactionCap *int       `json:"transaction_cap"`                                                                      // 笔数上限
	Status         string     `gorm:"type:varchar(16);not null;index" json:"status"`                                        // active / expired
	ExpireReason   string     `gorm:"type:varchar(32);not null;default:''" json:"expire_reason,omitempty"`                  // 失效原因
	ExpiredAt      *time.Time `json:"expired_at,omitempty"`                                                                 // 失效时间
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`                                                              // 创建时间
	UpdatedAt      time.Time  `json:"updated_at"`                                                                           // 更新时间

	Rule *IncentiveRule `gorm:"foreignKey:RuleID" json:"rule,omitempty"` // 关联规则（规则被删除时为空）
}

// TableName 指定表名
func (IncentiveAssignment) TableName() string {
	return "incentive_assignments"
}

// IsActive 是否处于生效状态
func (a IncentiveAssignment) IsActive() bool {
	return a.Status == constants.AssignmentStatusActive
}

// Covers 指定日期是否落在 [StartDate, EndDate] 内
func (a IncentiveAssignment) Covers(day Date) bool {
	if day.Before(a.StartDate) {
		return false
	}
	return a.EndDate == nil || !day.After(*a.EndDate)
}

// IncentiveSettlement 结算记录（每笔采购每类对象至多一条，写入后不可变）
type IncentiveSettlement struct {
	ID           uint                `gorm:"primarykey" json:"id"`                                                                                                                        // 主键
	PurchaseID   uint                `gorm:"not null;uniqueIndex:uniq_incentive_settlement_purchase_subject" json:"purchase_id"`                                                          // 采购ID
	SubjectType  string              `gorm:"type:varchar(20);not null;uniqueIndex:uniq_incentive_settlement_purchase_subject;index:idx_incentive_settlement_subject" json:"subject_type"` // 对象类型
	SubjectID    uint                `gorm:"not null;index:idx_incentive_settlement_subject" json:"subject_id"`                                                                           // 对象ID
	RuleID       *uint               `gorm:"index" json:"rule_id"`                                                                                                                        // 规则ID（规则删除后置空）
	AssignmentID *uint               `gorm:"index" json:"assignment_id"`                                                                                                                  // 来源分配
	RuleName     string              `gorm:"type:varchar(100);not null;default:''" json:"rule_name"`                                                                                      // 规则名称快照
	AmountKind   string              `gorm:"type:varchar(16);not null;default:''" json:"amount_kind"`                                                                                     // 金额类型快照
	RuleAmount   decimal.NullDecimal `gorm:"type:decimal(12,4)" json:"rule_amount"`                                                                                                       // 规则金额快照
	BaseAmount   Money               `gorm:"type:decimal(12,2);not null;default:0" json:"base_amount"`                                                                                    // 采购价
	Amount       Money               `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`                                                                                         // 结算金额
	CreatedAt    time.Time           `gorm:"index" json:"created_at"`                                                                                                                     // 创建时间
}

// TableName 指定表名
func (IncentiveSettlement) TableName() string {
	return "incentive_settlements"
}
