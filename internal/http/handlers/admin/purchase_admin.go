package admin

import (
	"strings"

	handlershared "github.com/stockyourlot/internal/http/handlers/shared"
	"github.com/stockyourlot/internal/http/response"
	"github.com/stockyourlot/internal/models"
	"github.com/stockyourlot/internal/repository"
	"github.com/stockyourlot/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// PurchaseUpdateRequest 后台部分更新采购请求（不会重新结算）
type PurchaseUpdateRequest struct {
	DealershipID     *uint            `json:"dealership_id"`
	Date             *models.Date     `json:"date"`
	AuctionPlatform  *string          `json:"auction_platform"`
	VIN              *string          `json:"vin"`
	Miles            *int             `json:"miles"`
	PurchasePrice    *decimal.Decimal `json:"purchase_price"`
	VehicleYear      *string          `json:"vehicle_year"`
	VehicleMake      *string          `json:"vehicle_make"`
	VehicleModel     *string          `json:"vehicle_model"`
	VehicleTrimLevel *string          `json:"vehicle_trim_level"`
	TransportQuote   *decimal.Decimal `json:"transport_quote"`
}

// GetAdminPurchases 获取采购列表
func (h *Handler) GetAdminPurchases(c *gin.Context) {
	buyerID, ok := handlershared.ParseUintQuery(c, "buyer_id")
	if !ok {
		return
	}
	dealershipID, ok := handlershared.ParseUintQuery(c, "dealership_id")
	if !ok {
		return
	}
	dateFrom, ok := handlershared.ParseDateQuery(c, "date_from")
	if !ok {
		return
	}
	dateTo, ok := handlershared.ParseDateQuery(c, "date_to")
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)

	purchases, total, err := h.PurchaseService.List(repository.PurchaseListFilter{
		Page:         page,
		PageSize:     pageSize,
		BuyerID:      buyerID,
		DealershipID: dealershipID,
		VIN:          strings.ToUpper(strings.TrimSpace(c.Query("vin"))),
		DateFrom:     dateFrom,
		DateTo:       dateTo,
	})
	if err != nil {
		respondPurchaseError(c, err, "error.internal")
		return
	}
	response.SuccessWithPage(c, handlershared.NewPurchaseViews(purchases), handlershared.BuildPagination(page, pageSize, total))
}

// GetAdminPurchase 获取采购详情
func (h *Handler) GetAdminPurchase(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	purchase, err := h.PurchaseService.Get(id, 0)
	if err != nil {
		respondPurchaseError(c, err, "error.internal")
		return
	}
	response.Success(c, handlershared.NewPurchaseView(purchase))
}

// UpdateAdminPurchase 部分更新采购
func (h *Handler) UpdateAdminPurchase(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req PurchaseUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	purchase, err := h.PurchaseService.Update(c.Request.Context(), id, service.UpdatePurchaseInput{
		DealershipID:     req.DealershipID,
		Date:             req.Date,
		AuctionPlatform:  req.AuctionPlatform,
		VIN:              req.VIN,
		Miles:            req.Miles,
		PurchasePrice:    req.PurchasePrice,
		VehicleYear:      req.VehicleYear,
		VehicleMake:      req.VehicleMake,
		VehicleModel:     req.VehicleModel,
		VehicleTrimLevel: req.VehicleTrimLevel,
		TransportQuote:   req.TransportQuote,
	})
	if err != nil {
		respondPurchaseError(c, err, "error.purchase_update_failed")
		return
	}
	requestLog(c).Infow("admin_purchase_updated",
		"operator_user_id", currentUserID(c),
		"purchase_id", purchase.ID,
	)
	response.Success(c, handlershared.NewPurchaseView(purchase))
}

// GetAdminPurchaseSettlements 获取采购的结算记录
func (h *Handler) GetAdminPurchaseSettlements(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	settlements, err := h.IncentiveSettlementService.ListForPurchase(id)
	if err != nil {
		respondPurchaseError(c, err, "error.internal")
		return
	}
	response.Success(c, settlements)
}
