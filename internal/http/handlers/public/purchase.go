package public

import (
	handlershared "github.com/stockyourlot/internal/http/handlers/shared"
	"github.com/stockyourlot/internal/http/response"
	"github.com/stockyourlot/internal/models"
	"github.com/stockyourlot/internal/repository"
	"github.com/stockyourlot/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreatePurchaseRequest 买家提交采购请求
type CreatePurchaseRequest struct {
	DealershipID     uint             `json:"dealership_id" binding:"required"`
	Date             *models.Date     `json:"date"`
	AuctionPlatform  string           `json:"auction_platform" binding:"required"`
	VIN              string           `json:"vin" binding:"required"`
	Miles            *int             `json:"miles"`
	PurchasePrice    *decimal.Decimal `json:"purchase_price" binding:"required"`
	VehicleYear      string           `json:"vehicle_year"`
	VehicleMake      string           `json:"vehicle_make"`
	VehicleModel     string           `json:"vehicle_model"`
	VehicleTrimLevel string           `json:"vehicle_trim_level"`
	TransportQuote   *decimal.Decimal `json:"transport_quote"`
}

// CreatePurchase 记录一笔采购并同步完成经纪人与车行的激励结算
func (h *Handler) CreatePurchase(c *gin.Context) {
	buyerID, ok := getUserID(c)
	if !ok {
		return
	}
	var req CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	purchase, err := h.PurchaseService.Create(c.Request.Context(), service.CreatePurchaseInput{
		BuyerID:          buyerID,
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
		respondPurchaseError(c, err, "error.purchase_create_failed")
		return
	}
	response.Success(c, handlershared.NewPurchaseView(purchase))
}

// ListMyPurchases 当前买家的采购列表
func (h *Handler) ListMyPurchases(c *gin.Context) {
	buyerID, ok := getUserID(c)
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
		Page:     page,
		PageSize: pageSize,
		BuyerID:  buyerID,
		DateFrom: dateFrom,
		DateTo:   dateTo,
	})
	if err != nil {
		respondPurchaseError(c, err, "error.internal")
		return
	}
	response.SuccessWithPage(c, handlershared.NewPurchaseViews(purchases), handlershared.BuildPagination(page, pageSize, total))
}

// GetMyPurchase 当前买家的采购详情（他人采购视为不存在）
func (h *Handler) GetMyPurchase(c *gin.Context) {
	buyerID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	purchase, err := h.PurchaseService.Get(id, buyerID)
	if err != nil {
		respondPurchaseError(c, err, "error.internal")
		return
	}
	response.Success(c, handlershared.NewPurchaseView(purchase))
}
