package constants

// 激励对象类型常量
const (
	SubjectTypeAgent      = "agent"
	SubjectTypeDealership = "dealership"
)

// SubjectTypes 结算顺序：先经纪人再车行
var SubjectTypes = []string{SubjectTypeAgent, SubjectTypeDealership}

// 激励规则金额类型常量
const (
	AmountKindFlat    = "flat"
	AmountKindPercent = "percent"
)

// 激励规则分配状态常量
const (
	AssignmentStatusActive  = "active"
	AssignmentStatusExpired = "expired"
)

// 分配失效原因常量
const (
	ExpireReasonEndDate        = "end_date"
	ExpireReasonTransactionCap = "transaction_cap"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 内置角色常量
const (
	RoleAdmin   = "admin"
	RoleBuyer   = "buyer"
	RoleAuditor = "auditor"
)

// 异步队列常量
const (
	QueueDefault                  = "default"
	TaskIncentiveSweepExpirations = "incentive:sweep_expirations"
)

// 日期格式常量
const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// IsValidSubjectType 校验激励对象类型
func IsValidSubjectType(subjectType string) bool {
	return subjectType == SubjectTypeAgent || subjectType == SubjectTypeDealership
}

// IsValidAmountKind 校验金额类型
func IsValidAmountKind(kind string) bool {
	return kind == AmountKindFlat || kind == AmountKindPercent
}
