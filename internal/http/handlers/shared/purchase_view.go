package shared

import (
	"github.com/stockyourlot/internal/models"
	"github.com/stockyourlot/internal/service"
)

// PurchaseView 采购详情响应（附带按对象类型汇总的激励金额）
type PurchaseView struct {
	*models.Purchase
	IncentiveTotals map[string]models.Money `json:"incentive_totals"`
}

// NewPurchaseView 构造采购详情响应。
func NewPurchaseView(purchase *models.Purchase) PurchaseView {
	return PurchaseView{
		Purchase:        purchase,
		IncentiveTotals: service.SettlementTotals(purchase),
	}
}

// NewPurchaseViews 批量构造采购响应。
func NewPurchaseViews(purchases []models.Purchase) []PurchaseView {
	views := make([]PurchaseView, 0, len(purchases))
	for i := range purchases {
		views = append(views, NewPurchaseView(&purchases[i]))
	}
	return views
}
