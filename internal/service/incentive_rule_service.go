package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/stockyourlot/internal/cache"
	"github.com/stockyourlot/internal/constants"
	"github.com/stockyourlot/internal/logger"
	"github.com/stockyourlot/internal/models"
	"github.com/stockyourlot/internal/repository"

	"github.com/shopspring/decimal"
)

const ruleNameMaxLength = 100

// IncentiveRuleService 激励规则目录服务
type IncentiveRuleService struct {
	repo repository.IncentiveRuleRepository
	opts IncentiveOptions
}

// NewIncentiveRuleService 创建激励规则目录服务
func NewIncentiveRuleService(repo repository.IncentiveRuleRepository, opts IncentiveOptions) *IncentiveRuleService {
	return &IncentiveRuleService{repo: repo, opts: opts}
}

// CreateIncentiveRuleInput 创建规则输入
type CreateIncentiveRuleInput struct {
	Name       string
	Amount     *decimal.Decimal
	AmountKind string
}

// UpdateIncentiveRuleInput 更新规则输入（nil 字段保持不变）
type UpdateIncentiveRuleInput struct {
	Name       *string
	Amount     *decimal.Decimal
	AmountKind *string
}

// Create 创建规则
func (s *IncentiveRuleService) Create(input CreateIncentiveRuleInput) (*models.IncentiveRule, error) {
	name, err := normalizeRuleName(input.Name)
	if err != nil {
		return nil, err
	}
	kind, err := normalizeAmountKind(input.AmountKind)
	if err != nil {
		return nil, err
	}
	if input.Amount == nil {
		return nil, fmt.Errorf("%w: amount is required", ErrRuleInvalid)
	}
	if input.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: amount must be non-negative", ErrRuleInvalid)
	}

	rule := &models.IncentiveRule{
		Name:       name,
		Amount:     decimal.NewNullDecimal(*input.Amount),
		AmountKind: kind,
	}
	if err := s.repo.Create(rule); err != nil {
		return nil, err
	}
	logger.Infow("incentive_rule_created", "rule_id", rule.ID, "amount_kind", rule.AmountKind)
	return rule, nil
}

// Update 部分更新规则；已写入的结算保留快照不受影响
func (s *IncentiveRuleService) Update(ctx context.Context, id uint, input UpdateIncentiveRuleInput) (*models.IncentiveRule, error) {
	rule, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}

	if input.Name != nil {
		if rule.Name, err = normalizeRuleName(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.AmountKind != nil {
		if rule.AmountKind, err = normalizeAmountKind(*input.AmountKind); err != nil {
			return nil, err
		}
	}
	if input.Amount != nil {
		if input.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: amount must be non-negative", ErrRuleInvalid)
		}
		rule.Amount = decimal.NewNullDecimal(*input.Amount)
	}
	rule.UpdatedAt = s.opts.now()

	if err := s.repo.Update(rule); err != nil {
		return nil, err
	}
	s.evict(ctx, rule.ID)
	return rule, nil
}

// Get 获取规则（优先读缓存）
func (s *IncentiveRuleService) Get(ctx context.Context, id uint) (*models.IncentiveRule, error) {
	key := cache.IncentiveRuleKey(id)
	if s.opts.RuleCacheTTL > 0 {
		var cached models.IncentiveRule
		hit, cacheErr := cache.GetJSON(ctx, key, &cached)
		if cacheErr != nil {
			logger.Warnw("incentive_rule_cache_read_failed", "rule_id", id, "error", cacheErr)
		}
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	rule, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}
	if s.opts.RuleCacheTTL > 0 {
		_ = cache.SetJSON(ctx, key, rule, s.opts.RuleCacheTTL)
	}
	return rule, nil
}

// List 规则列表
func (s *IncentiveRuleService) List(filter repository.IncentiveRuleListFilter) ([]models.IncentiveRule, int64, error) {
	if kind := strings.TrimSpace(filter.AmountKind); kind != "" {
		normalized, err := normalizeAmountKind(kind)
		if err != nil {
			return nil, 0, err
		}
		filter.AmountKind = normalized
	}
	return s.repo.List(filter)
}

// Delete 删除规则：引用它的分配不再参与解析，历史结算保留且规则引用置空
func (s *IncentiveRuleService) Delete(ctx context.Context, id uint) error {
	rule, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if rule == nil {
		return ErrRuleNotFound
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.evict(ctx, id)
	logger.Infow("incentive_rule_deleted", "rule_id", id)
	return nil
}

func (s *IncentiveRuleService) evict(ctx context.Context, id uint) {
	if err := cache.Del(ctx, cache.IncentiveRuleKey(id)); err != nil {
		logger.Warnw("incentive_rule_cache_evict_failed", "rule_id", id, "error", err)
	}
}

func normalizeRuleName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrRuleInvalid)
	}
	if len([]rune(name)) > ruleNameMaxLength {
		return "", fmt.Errorf("%w: name exceeds %d characters", ErrRuleInvalid, ruleNameMaxLength)
	}
	return name, nil
}

func normalizeAmountKind(raw string) (string, error) {
	kind := strings.ToLower(strings.TrimSpace(raw))
	if !constants.IsValidAmountKind(kind) {
		return "", fmt.Errorf("%w: amount_kind must be flat or percent", ErrRuleInvalid)
	}
	return kind, nil
}
