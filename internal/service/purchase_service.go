package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/stockyourlot/internal/logger"
	"github.com/stockyourlot/internal/models"
	"github.com/stockyourlot/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	auctionPlatformMaxLength = 100
	vinMaxLength             = 17
	vehicleYearMaxLength     = 10
	vehicleTextMaxLength     = 100
)

// PurchaseService 车辆采购服务
type PurchaseService struct {
	repo              repository.PurchaseRepository
	subjectRepo       repository.SubjectRepository
	settlementService *IncentiveSettlementService
	opts              IncentiveOptions
}

// NewPurchaseService 创建采购服务
func NewPurchaseService(
	repo repository.PurchaseRepository,
	subjectRepo repository.SubjectRepository,
	settlementService *IncentiveSettlementService,
	opts IncentiveOptions,
) *PurchaseService {
	return &PurchaseService{
		repo:              repo,
		subjectRepo:       subjectRepo,
		settlementService: settlementService,
		opts:              opts,
	}
}

// CreatePurchaseInput 创建采购输入
type CreatePurchaseInput struct {
	BuyerID          uint
	DealershipID     uint
	Date             *models.Date
	AuctionPlatform  string
	VIN              string
	Miles            *int
	PurchasePrice    *decimal.Decimal
	VehicleYear      string
	VehicleMake      string
	VehicleModel     string
	VehicleTrimLevel string
	TransportQuote   *decimal.Decimal
}

// UpdatePurchaseInput 更新采购输入（nil 字段保持不变）
type UpdatePurchaseInput struct {
	DealershipID     *uint
	Date             *models.Date
	AuctionPlatform  *string
	VIN              *string
	Miles            *int
	PurchasePrice    *decimal.Decimal
	VehicleYear      *string
	VehicleMake      *string
	VehicleModel     *string
	VehicleTrimLevel *string
	TransportQuote   *decimal.Decimal
}

// Create 在同一事务内保存采购并完成激励结算；结算存储失败时整笔回滚
func (s *PurchaseService) Create(ctx context.Context, input CreatePurchaseInput) (*models.Purchase, error) {
	purchase, err := buildPurchase(input)
	if err != nil {
		return nil, err
	}

	var settlements []models.IncentiveSettlement
	err = s.repo.Transaction(func(tx *gorm.DB) error {
		tx = tx.WithContext(ctx)
		subjects := s.subjectRepo.WithTx(tx)
		buyer, err := subjects.GetUserByID(purchase.BuyerID)
		if err != nil {
			return err
		}
		if buyer == nil {
			return ErrBuyerNotFound
		}
		dealership, err := subjects.GetDealershipByID(purchase.DealershipID)
		if err != nil {
			return err
		}
		if dealership == nil {
			return ErrDealershipNotFound
		}
		if err := s.repo.WithTx(tx).Create(purchase); err != nil {
			return err
		}
		settlements, err = s.settlementService.SettleForPurchase(tx, purchase)
		if err != nil {
			return err
		}
		purchase.Buyer = buyer
		purchase.Dealership = dealership
		return nil
	})
	if err != nil {
		return nil, err
	}
	purchase.Settlements = settlements
	logger.Infow("purchase_created",
		"purchase_id", purchase.ID,
		"buyer_id", purchase.BuyerID,
		"dealership_id", purchase.DealershipID,
		"date", purchase.PurchaseDate.String(),
		"settlements", len(settlements),
	)
	return purchase, nil
}

// Update 部分更新采购；已产生的结算不会重新计算
func (s *PurchaseService) Update(ctx context.Context, id uint, input UpdatePurchaseInput) (*models.Purchase, error) {
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		tx = tx.WithContext(ctx)
		repoTx := s.repo.WithTx(tx)
		purchase, err := repoTx.GetByID(id)
		if err != nil {
			return err
		}
		if purchase == nil {
			return ErrPurchaseNotFound
		}
		if input.DealershipID != nil && *input.DealershipID != purchase.DealershipID {
			dealership, err := s.subjectRepo.WithTx(tx).GetDealershipByID(*input.DealershipID)
			if err != nil {
				return err
			}
			if dealership == nil {
				return ErrDealershipNotFound
			}
		}
		if err := applyPurchasePatch(purchase, input); err != nil {
			return err
		}
		purchase.UpdatedAt = s.opts.now()
		return repoTx.Update(purchase)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(id, 0)
}

// Get 获取采购详情；buyerID 非 0 时仅允许查看本人采购
func (s *PurchaseService) Get(id uint, buyerID uint) (*models.Purchase, error) {
	purchase, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if purchase == nil || (buyerID != 0 && purchase.BuyerID != buyerID) {
		return nil, ErrPurchaseNotFound
	}
	return purchase, nil
}

// List 采购列表
func (s *PurchaseService) List(filter repository.PurchaseListFilter) ([]models.Purchase, int64, error) {
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return nil, 0, fmt.Errorf("%w: date_to is before date_from", ErrPurchaseInvalid)
	}
	return s.repo.List(filter)
}

// SettlementTotals 按对象类型汇总单笔采购的结算金额
func SettlementTotals(purchase *models.Purchase) map[string]models.Money {
	totals := map[string]models.Money{}
	if purchase == nil {
		return totals
	}
	for _, settlement := range purchase.Settlements {
		current, ok := totals[settlement.SubjectType]
		if !ok {
			current = models.ZeroMoney()
		}
		totals[settlement.SubjectType] = current.Add(settlement.Amount)
	}
	return totals
}

func buildPurchase(input CreatePurchaseInput) (*models.Purchase, error) {
	if input.BuyerID == 0 {
		return nil, fmt.Errorf("%w: buyer is required", ErrPurchaseInvalid)
	}
	if input.DealershipID == 0 {
		return nil, fmt.Errorf("%w: dealership_id is required", ErrPurchaseInvalid)
	}
	if input.Date == nil || input.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrPurchaseInvalid)
	}
	if input.PurchasePrice == nil {
		return nil, fmt.Errorf("%w: purchase_price is required", ErrPurchaseInvalid)
	}
	purchase := &models.Purchase{
		BuyerID:          input.BuyerID,
		DealershipID:     input.DealershipID,
		PurchaseDate:     *input.Date,
		AuctionPlatform:  strings.TrimSpace(input.AuctionPlatform),
		VIN:              strings.ToUpper(strings.TrimSpace(input.VIN)),
		Miles:            input.Miles,
		PurchasePrice:    models.NewMoneyFromDecimal(*input.PurchasePrice),
		VehicleYear:      strings.TrimSpace(input.VehicleYear),
		VehicleMake:      strings.TrimSpace(input.VehicleMake),
		VehicleModel:     strings.TrimSpace(input.VehicleModel),
		VehicleTrimLevel: strings.TrimSpace(input.VehicleTrimLevel),
		TransportQuote:   optionalMoney(input.TransportQuote),
	}
	if err := validatePurchase(purchase); err != nil {
		return nil, err
	}
	return purchase, nil
}

func applyPurchasePatch(purchase *models.Purchase, input UpdatePurchaseInput) error {
	if input.DealershipID != nil {
		purchase.DealershipID = *input.DealershipID
	}
	if input.Date != nil {
		purchase.PurchaseDate = *input.Date
	}
	if input.AuctionPlatform != nil {
		purchase.AuctionPlatform = strings.TrimSpace(*input.AuctionPlatform)
	}
	if input.VIN != nil {
		purchase.VIN = strings.ToUpper(strings.TrimSpace(*input.VIN))
	}
	if input.Miles != nil {
		miles := *input.Miles
		purchase.Miles = &miles
	}
	if input.PurchasePrice != nil {
		purchase.PurchasePrice = models.NewMoneyFromDecimal(*input.PurchasePrice)
	}
	if input.VehicleYear != nil {
		purchase.VehicleYear = strings.TrimSpace(*input.VehicleYear)
	}
	if input.VehicleMake != nil {
		purchase.VehicleMake = strings.TrimSpace(*input.VehicleMake)
	}
	if input.VehicleModel != nil {
		purchase.VehicleModel = strings.TrimSpace(*input.VehicleModel)
	}
	if input.VehicleTrimLevel != nil {
		purchase.VehicleTrimLevel = strings.TrimSpace(*input.VehicleTrimLevel)
	}
	if input.TransportQuote != nil {
		purchase.TransportQuote = optionalMoney(input.TransportQuote)
	}
	return validatePurchase(purchase)
}

func validatePurchase(purchase *models.Purchase) error {
	switch {
	case purchase.AuctionPlatform == "":
		return fmt.Errorf("%w: auction_platform is required", ErrPurchaseInvalid)
	case len(purchase.AuctionPlatform) > auctionPlatformMaxLength:
		return fmt.Errorf("%w: auction_platform is too long", ErrPurchaseInvalid)
	case purchase.VIN == "":
		return fmt.Errorf("%w: vin is required", ErrPurchaseInvalid)
	case len(purchase.VIN) > vinMaxLength:
		return fmt.Errorf("%w: vin exceeds %d characters", ErrPurchaseInvalid, vinMaxLength)
	case purchase.PurchasePrice.IsNegative():
		return fmt.Errorf("%w: purchase_price must be non-negative", ErrPurchaseInvalid)
	case purchase.Miles != nil && *purchase.Miles < 0:
		return fmt.Errorf("%w: miles must be non-negative", ErrPurchaseInvalid)
	case len(purchase.VehicleYear) > vehicleYearMaxLength:
		return fmt.Errorf("%w: vehicle_year is too long", ErrPurchaseInvalid)
	case len(purchase.VehicleMake) > vehicleTextMaxLength,
		len(purchase.VehicleModel) > vehicleTextMaxLength,
		len(purchase.VehicleTrimLevel) > vehicleTextMaxLength:
		return fmt.Errorf("%w: vehicle description is too long", ErrPurchaseInvalid)
	}
	return nil
}

func optionalMoney(value *decimal.Decimal) *models.Money {
	if value == nil {
		return nil
	}
	m := models.NewMoneyFromDecimal(*value)
	return &m
}
