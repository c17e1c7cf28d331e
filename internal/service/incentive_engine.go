package service

import (
	"time"

	"github.com/stockyourlot/internal/constants"
	"github.com/stockyourlot/internal/metrics"
	"github.com/stockyourlot/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// IncentiveOptions 激励结算引擎配置（由 config.IncentiveConfig 构造后注入）
type IncentiveOptions struct {
	DefaultLevel int
	LockSubjects bool
	RuleCacheTTL time.Duration
	Metrics      *metrics.IncentiveMetrics
	Now          func() time.Time
}

// DefaultIncentiveOptions 默认配置
func DefaultIncentiveOptions() IncentiveOptions {
	return IncentiveOptions{
		DefaultLevel: 1,
		LockSubjects: true,
		RuleCacheTTL: time.Minute,
		Now:          time.Now,
	}
}

func (o IncentiveOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// ResolveEffectiveAssignment 在对象的分配中选出指定日期的唯一生效分配。
// 条件：active、StartDate <= asOf、EndDate 为空或 >= asOf、规则仍存在；
// 取 Level 最大者，同级取最近创建者（CreatedAt、ID 降序）。无匹配返回 nil。
func ResolveEffectiveAssignment(assignments []models.IncentiveAssignment, asOf models.Date) *models.IncentiveAssignment {
	var best *models.IncentiveAssignment
	for i := range assignments {
		candidate := &assignments[i]
		if !candidate.IsActive() || candidate.Rule == nil || !candidate.Covers(asOf) {
			continue
		}
		if best == nil || outranks(candidate, best) {
			best = candidate
		}
	}
	return best
}

func outranks(a, b *models.IncentiveAssignment) bool {
	if a.Level != b.Level {
		return a.Level > b.Level
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// ComputeSettlementAmount 按规则计算结算金额。
// flat：规则金额（为空按 0）；percent：采购价 × 比例 / 100，保留 2 位四舍五入，任一为空按 0。
func ComputeSettlementAmount(amountKind string, ruleAmount, purchasePrice decimal.NullDecimal) models.Money {
	if !ruleAmount.Valid {
		return models.ZeroMoney()
	}
	switch amountKind {
	case constants.AmountKindFlat:
		return models.NewMoneyFromDecimal(ruleAmount.Decimal)
	case constants.AmountKindPercent:
		if !purchasePrice.Valid {
			return models.ZeroMoney()
		}
		return models.NewMoneyFromDecimal(purchasePrice.Decimal.Mul(ruleAmount.Decimal).Div(hundred))
	default:
		return models.ZeroMoney()
	}
}

// QualifyingCounter 统计对象在 [from, to] 内的采购笔数
type QualifyingCounter func(from, to models.Date) (int64, error)

// ExpirationReason 判断生效分配在 asOf 时是否应失效，返回失效原因（空串表示不变）。
// 截止日已过优先；否则按 [StartDate, asOf] 内的采购笔数与上限比较。
func ExpirationReason(assignment models.IncentiveAssignment, asOf models.Date, count QualifyingCounter) (string, error) {
	if !assignment.IsActive() {
		return "", nil
	}
	if assignment.EndDate != nil && asOf.After(*assignment.EndDate) {
		return constants.ExpireReasonEndDate, nil
	}
	if assignment.TransactionCap == nil || count == nil {
		return "", nil
	}
	qualifying, err := count(assignment.StartDate, asOf)
	if err != nil {
		return "", err
	}
	if qualifying >= int64(*assignment.TransactionCap) {
		return constants.ExpireReasonTransactionCap, nil
	}
	return "", nil
}
