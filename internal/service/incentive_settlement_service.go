package service

import (
	"fmt"

	"github.com/stockyourlot/internal/constants"
	"github.com/stockyourlot/internal/logger"
	"github.com/stockyourlot/internal/models"
	"github.com/stockyourlot/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// IncentiveSettlementService 采购激励结算编排：解析生效规则、写入结算、评估分配失效
type IncentiveSettlementService struct {
	assignmentRepo repository.IncentiveAssignmentRepository
	settlementRepo repository.IncentiveSettlementRepository
	purchaseRepo   repository.PurchaseRepository
	subjectRepo    repository.SubjectRepository
	opts           IncentiveOptions
}

// NewIncentiveSettlementService 创建激励结算服务
func NewIncentiveSettlementService(
	assignmentRepo repository.IncentiveAssignmentRepository,
	settlementRepo repository.IncentiveSettlementRepository,
	purchaseRepo repository.PurchaseRepository,
	subjectRepo repository.SubjectRepository,
	opts IncentiveOptions,
) *IncentiveSettlementService {
	return &IncentiveSettlementService{
		assignmentRepo: assignmentRepo,
		settlementRepo: settlementRepo,
		purchaseRepo:   purchaseRepo,
		subjectRepo:    subjectRepo,
		opts:           opts,
	}
}

// SubjectSummary 对象激励汇总
type SubjectSummary struct {
	SubjectType      string       `json:"subject_type"`
	SubjectID        uint         `json:"subject_id"`
	Month            string       `json:"month"`
	PurchasesInMonth int64        `json:"purchases_in_month"`
	SettledInMonth   models.Money `json:"settled_in_month"`
	SettledTotal     models.Money `json:"settled_total"`
}

// SettleForPurchase 在采购创建事务内为经纪人与车行分别结算。
// 单个分支的业务错误（对象不存在、重复结算）仅记录日志并回滚该分支的保存点；
// 存储错误向上返回，由调用方回滚整笔采购。
func (s *IncentiveSettlementService) SettleForPurchase(tx *gorm.DB, purchase *models.Purchase) ([]models.IncentiveSettlement, error) {
	if tx == nil || purchase == nil || purchase.ID == 0 {
		return nil, fmt.Errorf("%w: purchase must be persisted before settlement", ErrPurchaseInvalid)
	}

	recorded := make([]models.IncentiveSettlement, 0, len(constants.SubjectTypes))
	for _, subjectType := range constants.SubjectTypes {
		subjectID := purchaseSubjectID(purchase, subjectType)
		var settlement *models.IncentiveSettlement
		err := tx.Transaction(func(legTx *gorm.DB) error {
			var legErr error
			settlement, legErr = s.settleLeg(legTx, purchase, subjectType, subjectID)
			return legErr
		})
		if err != nil {
			if isBusinessError(err) {
				s.opts.Metrics.ObserveLegSkipped(subjectType)
				logger.Warnw("incentive_leg_skipped",
					"purchase_id", purchase.ID,
					"subject_type", subjectType,
					"subject_id", subjectID,
					"error", err,
				)
				continue
			}
			return nil, fmt.Errorf("settle %s leg: %w", subjectType, err)
		}
		if settlement != nil {
			recorded = append(recorded, *settlement)
		}
	}
	return recorded, nil
}

// settleLeg 单个对象：加锁 -> 解析 -> 结算 -> 失效评估
func (s *IncentiveSettlementService) settleLeg(tx *gorm.DB, purchase *models.Purchase, subjectType string, subjectID uint) (*models.IncentiveSettlement, error) {
	exists, err := s.subjectRepo.WithTx(tx).Exists(subjectType, subjectID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrSubjectNotFound
	}

	assignmentRepo := s.assignmentRepo.WithTx(tx)
	if s.opts.LockSubjects {
		if err := assignmentRepo.AcquireSubjectLock(subjectType, subjectID); err != nil {
			return nil, err
		}
	}
	active, err := assignmentRepo.ListActiveBySubjectForUpdate(subjectType, subjectID)
	if err != nil {
		return nil, err
	}

	var settlement *models.IncentiveSettlement
	effective := ResolveEffectiveAssignment(active, purchase.PurchaseDate)
	if effective == nil {
		s.opts.Metrics.ObserveNoEffectiveRule(subjectType)
		logger.Debugw("incentive_no_effective_rule",
			"purchase_id", purchase.ID,
			"subject_type", subjectType,
			"subject_id", subjectID,
			"date", purchase.PurchaseDate.String(),
		)
	} else {
		settlement, err = s.record(tx, purchase, subjectType, subjectID, effective)
		if err != nil {
			return nil, err
		}
	}

	if _, err := s.expire(tx, subjectType, subjectID, active, purchase.PurchaseDate); err != nil {
		return nil, err
	}
	return settlement, nil
}

// record 按生效分配计算金额并写入结算记录
func (s *IncentiveSettlementService) record(tx *gorm.DB, purchase *models.Purchase, subjectType string, subjectID uint, assignment *models.IncentiveAssignment) (*models.IncentiveSettlement, error) {
	if assignment == nil || assignment.Rule == nil {
		return nil, nil
	}
	settlementRepo := s.settlementRepo.WithTx(tx)
	existing, err := settlementRepo.GetByPurchaseAndSubject(purchase.ID, subjectType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrSettlementExists
	}

	rule := assignment.Rule
	ruleID := rule.ID
	assignmentID := assignment.ID
	price := decimal.NewNullDecimal(purchase.PurchasePrice.Decimal)
	settlement := &models.IncentiveSettlement{
		PurchaseID:   purchase.ID,
		SubjectType:  subjectType,
		SubjectID:    subjectID,
		RuleID:       &ruleID,
		AssignmentID: &assignmentID,
		RuleName:     rule.Name,
		AmountKind:   rule.AmountKind,
		RuleAmount:   rule.Amount,
		BaseAmount:   purchase.PurchasePrice,
		Amount:       ComputeSettlementAmount(rule.AmountKind, rule.Amount, price),
	}
	if err := settlementRepo.Create(settlement); err != nil {
		return nil, err
	}

	s.opts.Metrics.ObserveSettlement(subjectType, rule.AmountKind, settlement.Amount.Decimal)
	logger.Infow("incentive_settlement_recorded",
		"purchase_id", purchase.ID,
		"subject_type", subjectType,
		"subject_id", subjectID,
		"assignment_id", assignment.ID,
		"rule_id", rule.ID,
		"amount", settlement.Amount.String(),
	)
	return settlement, nil
}

// expire 评估对象全部生效分配，返回本次转为失效的分配
func (s *IncentiveSettlementService) expire(tx *gorm.DB, subjectType string, subjectID uint, active []models.IncentiveAssignment, asOf models.Date) ([]models.IncentiveAssignment, error) {
	assignmentRepo := s.assignmentRepo.WithTx(tx)
	purchaseRepo := s.purchaseRepo.WithTx(tx)
	counter := func(from, to models.Date) (int64, error) {
		return purchaseRepo.CountBySubjectBetween(subjectType, subjectID, from, to)
	}

	expired := make([]models.IncentiveAssignment, 0)
	for _, assignment := range active {
		reason, err := ExpirationReason(assignment, asOf, counter)
		if err != nil {
			return nil, err
		}
		if reason == "" {
			continue
		}
		now := s.opts.now()
		changed, err := assignmentRepo.MarkExpired(assignment.ID, reason, now)
		if err != nil {
			return nil, err
		}
		if !changed {
			continue
		}
		assignment.Status = constants.AssignmentStatusExpired
		assignment.ExpireReason = reason
		assignment.ExpiredAt = &now
		expired = append(expired, assignment)

		s.opts.Metrics.ObserveExpiration(subjectType, reason)
		logger.Infow("incentive_assignment_expired",
			"assignment_id", assignment.ID,
			"subject_type", subjectType,
			"subject_id", subjectID,
			"reason", reason,
			"as_of", asOf.String(),
		)
	}
	return expired, nil
}

// EvaluateExpirations 独立触发对象的失效评估（与采购结算使用相同规则）
func (s *IncentiveSettlementService) EvaluateExpirations(subjectType string, subjectID uint, asOf models.Date) ([]models.IncentiveAssignment, error) {
	subjectType, err := normalizeSubjectType(subjectType)
	if err != nil {
		return nil, err
	}
	var expired []models.IncentiveAssignment
	err = s.assignmentRepo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.assignmentRepo.WithTx(tx)
		if s.opts.LockSubjects {
			if err := repoTx.AcquireSubjectLock(subjectType, subjectID); err != nil {
				return err
			}
		}
		active, err := repoTx.ListActiveBySubjectForUpdate(subjectType, subjectID)
		if err != nil {
			return err
		}
		expired, err = s.expire(tx, subjectType, subjectID, active, asOf)
		return err
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

// SweepResult 失效巡检结果
type SweepResult struct {
	AsOf     string `json:"as_of"`
	Subjects int    `json:"subjects"`
	Expired  int    `json:"expired"`
}

// SweepExpirations 对所有仍有生效分配的对象执行失效评估
func (s *IncentiveSettlementService) SweepExpirations(asOf models.Date) (*SweepResult, error) {
	refs, err := s.assignmentRepo.ListActiveSubjects()
	if err != nil {
		return nil, err
	}
	result := &SweepResult{AsOf: asOf.String(), Subjects: len(refs)}
	for _, ref := range refs {
		expired, err := s.EvaluateExpirations(ref.SubjectType, ref.SubjectID, asOf)
		if err != nil {
			return nil, fmt.Errorf("sweep %s %d: %w", ref.SubjectType, ref.SubjectID, err)
		}
		result.Expired += len(expired)
	}
	logger.Infow("incentive_expiration_sweep_done",
		"as_of", result.AsOf,
		"subjects", result.Subjects,
		"expired", result.Expired,
	)
	return result, nil
}

// ListForPurchase 列出采购的结算记录（每类对象至多一条）
func (s *IncentiveSettlementService) ListForPurchase(purchaseID uint) ([]models.IncentiveSettlement, error) {
	purchase, err := s.purchaseRepo.GetByID(purchaseID)
	if err != nil {
		return nil, err
	}
	if purchase == nil {
		return nil, ErrPurchaseNotFound
	}
	return s.settlementRepo.ListByPurchase(purchaseID)
}

// ListForSubject 对象结算记录分页
func (s *IncentiveSettlementService) ListForSubject(filter repository.IncentiveSettlementListFilter) ([]models.IncentiveSettlement, int64, error) {
	subjectType, err := normalizeSubjectType(filter.SubjectType)
	if err != nil {
		return nil, 0, err
	}
	filter.SubjectType = subjectType
	if err := s.ensureSubject(subjectType, filter.SubjectID); err != nil {
		return nil, 0, err
	}
	return s.settlementRepo.List(filter)
}

// Summarize 对象月度汇总：当月采购笔数、当月结算金额、累计结算金额
func (s *IncentiveSettlementService) Summarize(subjectType string, subjectID uint, month models.Date) (*SubjectSummary, error) {
	subjectType, err := normalizeSubjectType(subjectType)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSubject(subjectType, subjectID); err != nil {
		return nil, err
	}

	first, last := month.MonthBounds()
	count, err := s.purchaseRepo.CountBySubjectBetween(subjectType, subjectID, first, last)
	if err != nil {
		return nil, err
	}
	monthTotal, err := s.settlementRepo.SumBySubject(subjectType, subjectID, &first, &last)
	if err != nil {
		return nil, err
	}
	total, err := s.settlementRepo.SumBySubject(subjectType, subjectID, nil, nil)
	if err != nil {
		return nil, err
	}
	return &SubjectSummary{
		SubjectType:      subjectType,
		SubjectID:        subjectID,
		Month:            first.Format(constants.MonthLayout),
		PurchasesInMonth: count,
		SettledInMonth:   models.NewMoneyFromDecimal(monthTotal),
		SettledTotal:     models.NewMoneyFromDecimal(total),
	}, nil
}

func (s *IncentiveSettlementService) ensureSubject(subjectType string, subjectID uint) error {
	exists, err := s.subjectRepo.Exists(subjectType, subjectID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrSubjectNotFound
	}
	return nil
}

func purchaseSubjectID(purchase *models.Purchase, subjectType string) uint {
	switch subjectType {
	case constants.SubjectTypeAgent:
		return purchase.BuyerID
	case constants.SubjectTypeDealership:
		return purchase.DealershipID
	default:
		return 0
	}
}
