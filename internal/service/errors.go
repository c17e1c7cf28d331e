package service

import (
	"errors"
	"strings"
)

// 通用错误
var (
	ErrNotFound = errors.New("not found")
)

// 激励结算相关错误
var (
	ErrRuleNotFound            = errors.New("incentive rule not found")
	ErrRuleInvalid             = errors.New("incentive rule invalid")
	ErrAssignmentNotFound      = errors.New("incentive assignment not found")
	ErrAssignmentInvalid       = errors.New("incentive assignment invalid")
	ErrAssignmentLevelConflict = errors.New("active assignment already exists at this level")
	ErrInvalidSubjectType      = errors.New("invalid subject type")
	ErrSubjectNotFound         = errors.New("subject not found")
	ErrSubjectInvalid          = errors.New("subject invalid")
	ErrSettlementExists        = errors.New("settlement already recorded for purchase")
)

// 采购相关错误
var (
	ErrPurchaseNotFound   = errors.New("purchase not found")
	ErrPurchaseInvalid    = errors.New("purchase invalid")
	ErrDealershipNotFound = errors.New("dealership not found")
	ErrBuyerNotFound      = errors.New("buyer not found")
)

// IsNotFound 是否属于不存在类错误
func IsNotFound(err error) bool {
	for _, target := range []error{
		ErrNotFound,
		ErrRuleNotFound,
		ErrAssignmentNotFound,
		ErrSubjectNotFound,
		ErrPurchaseNotFound,
		ErrDealershipNotFound,
		ErrBuyerNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// isBusinessError 业务错误只影响单个结算分支，不回滚整笔采购
func isBusinessError(err error) bool {
	return IsNotFound(err) ||
		errors.Is(err, ErrInvalidSubjectType) ||
		errors.Is(err, ErrSettlementExists)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
