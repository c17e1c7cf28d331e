package service

import (
	"fmt"
	"strings"

	"github.com/stockyourlot/internal/constants"
	"github.com/stockyourlot/internal/logger"
	"github.com/stockyourlot/internal/models"
	"github.com/stockyourlot/internal/repository"

	"gorm.io/gorm"
)

// IncentiveAssignmentService 激励规则分配服务（经纪人与车行共用）
type IncentiveAssignmentService struct {
	repo        repository.IncentiveAssignmentRepository
	ruleRepo    repository.IncentiveRuleRepository
	subjectRepo repository.SubjectRepository
	opts        IncentiveOptions
}

// NewIncentiveAssignmentService 创建激励规则分配服务
func NewIncentiveAssignmentService(
	repo repository.IncentiveAssignmentRepository,
	ruleRepo repository.IncentiveRuleRepository,
	subjectRepo repository.SubjectRepository,
	opts IncentiveOptions,
) *IncentiveAssignmentService {
	return &IncentiveAssignmentService{
		repo:        repo,
		ruleRepo:    ruleRepo,
		subjectRepo: subjectRepo,
		opts:        opts,
	}
}

// CreateAssignmentInput 创建分配输入
type CreateAssignmentInput struct {
	RuleID         uint
	StartDate      *models.Date
	EndDate        *models.Date
	Level          *int // 为空时使用默认等级
	TransactionCap *int
}

// UpdateAssignmentInput 部分更新输入（nil 字段保持不变）
type UpdateAssignmentInput struct {
	StartDate           *models.Date
	EndDate             *models.Date
	ClearEndDate        bool
	Level               *int
	TransactionCap      *int
	ClearTransactionCap bool
}

// Create 为对象新增生效分配，同一等级已有生效分配时返回 ErrAssignmentLevelConflict
func (s *IncentiveAssignmentService) Create(subjectType string, subjectID uint, input CreateAssignmentInput) (*models.IncentiveAssignment, error) {
	subjectType, err := normalizeSubjectType(subjectType)
	if err != nil {
		return nil, err
	}
	if input.StartDate == nil {
		return nil, fmt.Errorf("%w: start_date is required", ErrAssignmentInvalid)
	}
	level := s.opts.DefaultLevel
	if input.Level != nil {
		level = *input.Level
	}
	assignment := &models.IncentiveAssignment{
		SubjectType:    subjectType,
		SubjectID:      subjectID,
		RuleID:         input.RuleID,
		StartDate:      *input.StartDate,
		EndDate:        input.EndDate,
		Level:          level,
		TransactionCap: input.TransactionCap,
		Status:         constants.AssignmentStatusActive,
	}
	if err := validateAssignment(assignment); err != nil {
		return nil, err
	}

	err = s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		if err := s.ensureSubject(tx, subjectType, subjectID); err != nil {
			return err
		}
		rule, err := s.ruleRepo.WithTx(tx).GetByID(input.RuleID)
		if err != nil {
			return err
		}
		if rule == nil {
			return ErrRuleNotFound
		}
		if err := s.checkLevelConflict(repoTx, subjectType, subjectID, level, 0); err != nil {
			return err
		}
		if err := repoTx.Create(assignment); err != nil {
			if isUniqueViolation(err) {
				return ErrAssignmentLevelConflict
			}
			return err
		}
		assignment.Rule = rule
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("incentive_assignment_created",
		"assignment_id", assignment.ID,
		"subject_type", subjectType,
		"subject_id", subjectID,
		"rule_id", assignment.RuleID,
		"level", assignment.Level,
	)
	return assignment, nil
}

// Update 部分更新分配的有效期、等级与笔数上限；状态不可修改
func (s *IncentiveAssignmentService) Update(subjectType string, subjectID, assignmentID uint, input UpdateAssignmentInput) (*models.IncentiveAssignment, error) {
	subjectType, err := normalizeSubjectType(subjectType)
	if err != nil {
		return nil, err
	}

	var updated *models.IncentiveAssignment
	err = s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		if s.opts.LockSubjects {
			if err := repoTx.AcquireSubjectLock(subjectType, subjectID); err != nil {
				return err
			}
		}
		assignment, err := repoTx.GetBySubject(subjectType, subjectID, assignmentID)
		if err != nil {
			return err
		}
		if assignment == nil {
			return ErrAssignmentNotFound
		}
		previousLevel := assignment.Level
		applyAssignmentPatch(assignment, input)
		if err := validateAssignment(assignment); err != nil {
			return err
		}
		if assignment.IsActive() && assignment.Level != previousLevel {
			if err := s.checkLevelConflict(repoTx, subjectType, subjectID, assignment.Level, assignment.ID); err != nil {
				return err
			}
		}
		assignment.UpdatedAt = s.opts.now()
		if err := repoTx.Update(assignment); err != nil {
			if isUniqueViolation(err) {
				return ErrAssignmentLevelConflict
			}
			return err
		}
		updated = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete 删除分配（已产生的结算不受影响）
func (s *IncentiveAssignmentService) Delete(subjectType string, subjectID, assignmentID uint) error {
	subjectType, err := normalizeSubjectType(subjectType)
	if err != nil {
		return err
	}
	assignment, err := s.repo.GetBySubject(subjectType, subjectID, assignmentID)
	if err != nil {
		return err
	}
	if assignment == nil {
		return ErrAssignmentNotFound
	}
	if err := s.repo.Delete(assignment.ID); err != nil {
		return err
	}
	logger.Infow("incentive_assignment_deleted",
		"assignment_id", assignment.ID,
		"subject_type", subjectType,
		"subject_id", subjectID,
	)
	return nil
}

// List 按等级降序列出对象的分配，status 可选 active / expired
func (s *IncentiveAssignmentService) List(subjectType string, subjectID uint, status string) ([]models.IncentiveAssignment, error) {
	subjectType, err := normalizeSubjectType(subjectType)
	if err != nil {
		return nil, err
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "" && status != constants.AssignmentStatusActive && status != constants.AssignmentStatusExpired {
		return nil, fmt.Errorf("%w: unknown status %q", ErrAssignmentInvalid, status)
	}
	if err := s.ensureSubject(nil, subjectType, subjectID); err != nil {
		return nil, err
	}
	return s.repo.ListBySubject(subjectType, subjectID, status)
}

// ResolveEffective 查询对象在指定日期的生效分配（只读，无生效规则时返回 nil）
func (s *IncentiveAssignmentService) ResolveEffective(subjectType string, subjectID uint, asOf models.Date) (*models.IncentiveAssignment, error) {
	subjectType, err := normalizeSubjectType(subjectType)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSubject(nil, subjectType, subjectID); err != nil {
		return nil, err
	}
	active, err := s.repo.ListBySubject(subjectType, subjectID, constants.AssignmentStatusActive)
	if err != nil {
		return nil, err
	}
	return ResolveEffectiveAssignment(active, asOf), nil
}

func (s *IncentiveAssignmentService) checkLevelConflict(repo repository.IncentiveAssignmentRepository, subjectType string, subjectID uint, level int, excludeID uint) error {
	if s.opts.LockSubjects {
		if err := repo.AcquireSubjectLock(subjectType, subjectID); err != nil {
			return err
		}
	}
	exists, err := repo.ExistsActiveAtLevel(subjectType, subjectID, level, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return ErrAssignmentLevelConflict
	}
	return nil
}

func (s *IncentiveAssignmentService) ensureSubject(tx *gorm.DB, subjectType string, subjectID uint) error {
	exists, err := s.subjectRepo.WithTx(tx).Exists(subjectType, subjectID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrSubjectNotFound
	}
	return nil
}

func applyAssignmentPatch(assignment *models.IncentiveAssignment, input UpdateAssignmentInput) {
	if input.StartDate != nil {
		assignment.StartDate = *input.StartDate
	}
	if input.ClearEndDate {
		assignment.EndDate = nil
	} else if input.EndDate != nil {
		end := *input.EndDate
		assignment.EndDate = &end
	}
	if input.Level != nil {
		assignment.Level = *input.Level
	}
	if input.ClearTransactionCap {
		assignment.TransactionCap = nil
	} else if input.TransactionCap != nil {
		limit := *input.TransactionCap
		assignment.TransactionCap = &limit
	}
}

func validateAssignment(assignment *models.IncentiveAssignment) error {
	if assignment.RuleID == 0 {
		return fmt.Errorf("%w: rule_id is required", ErrAssignmentInvalid)
	}
	if assignment.StartDate.IsZero() {
		return fmt.Errorf("%w: start_date is required", ErrAssignmentInvalid)
	}
	if assignment.EndDate != nil && assignment.EndDate.Before(assignment.StartDate) {
		return fmt.Errorf("%w: end_date is before start_date", ErrAssignmentInvalid)
	}
	if assignment.Level < 0 {
		return fmt.Errorf("%w: level must be non-negative", ErrAssignmentInvalid)
	}
	if assignment.TransactionCap != nil && *assignment.TransactionCap <= 0 {
		return fmt.Errorf("%w: transaction_cap must be positive", ErrAssignmentInvalid)
	}
	return nil
}

func normalizeSubjectType(raw string) (string, error) {
	subjectType := strings.ToLower(strings.TrimSpace(raw))
	if !constants.IsValidSubjectType(subjectType) {
		return "", ErrInvalidSubjectType
	}
	return subjectType, nil
}
