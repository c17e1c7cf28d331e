package i18n

var messages = map[string]map[string]string{
	LocaleEnUS: {
		"error.bad_request":               "Invalid request parameters",
		"error.unauthorized":              "Unauthorized",
		"error.forbidden":                 "Permission denied",
		"error.internal":                  "Internal server error",
		"error.jwt_secret_missing":        "Authentication is not configured",
		"error.auth_header_missing":       "Missing Authorization header",
		"error.auth_header_invalid":       "Malformed Authorization header",
		"error.token_invalid":             "Invalid or expired token",
		"error.user_disabled":             "User account is disabled",
		"error.user_id_invalid":           "Invalid user id",
		"error.user_id_type_invalid":      "Unexpected user id type",
		"error.rate_limited":              "Too many requests, retry in %d seconds",
		"error.purchase_too_many":         "Too many purchases submitted, retry in %d seconds",
		"error.rate_limit_unavailable":    "Rate limiter unavailable",
		"error.queue_unavailable":         "Task queue unavailable",
		"error.date_invalid":              "Dates must use YYYY-MM-DD",
		"error.month_invalid":             "Month must use YYYY-MM",
		"error.id_invalid":                "Invalid id",
		"error.subject_type_invalid":      "Subject type must be agent or dealership",
		"error.subject_not_found":         "Subject not found",
		"error.subject_invalid":           "Invalid subject data",
		"error.rule_not_found":            "Incentive rule not found",
		"error.rule_invalid":              "Invalid incentive rule",
		"error.assignment_not_found":      "Incentive assignment not found",
		"error.assignment_invalid":        "Invalid incentive assignment",
		"error.assignment_level_conflict": "An active assignment already exists at this level",
		"error.purchase_not_found":        "Purchase not found",
		"error.purchase_invalid":          "Invalid purchase",
		"error.dealership_not_found":      "Dealership not found",
		"error.buyer_not_found":           "Buyer not found",
		"error.purchase_create_failed":    "Failed to record purchase",
		"error.purchase_update_failed":    "Failed to update purchase",
		"error.authz_policy_invalid":      "Invalid authorization policy",
	},
	LocaleZhCN: {
		"error.bad_request":               "请求参数错误",
		"error.unauthorized":              "未授权",
		"error.forbidden":                 "无权限访问",
		"error.internal":                  "服务器内部错误",
		"error.jwt_secret_missing":        "鉴权未配置",
		"error.auth_header_missing":       "缺少 Authorization 请求头",
		"error.auth_header_invalid":       "Authorization 请求头格式错误",
		"error.token_invalid":             "令牌无效或已过期",
		"error.user_disabled":             "用户已被禁用",
		"error.user_id_invalid":           "用户ID无效",
		"error.user_id_type_invalid":      "用户ID类型错误",
		"error.rate_limited":              "请求过于频繁，请 %d 秒后重试",
		"error.purchase_too_many":         "采购提交过于频繁，请 %d 秒后重试",
		"error.rate_limit_unavailable":    "限流服务不可用",
		"error.queue_unavailable":         "任务队列不可用",
		"error.date_invalid":              "日期格式应为 YYYY-MM-DD",
		"error.month_invalid":             "月份格式应为 YYYY-MM",
		"error.id_invalid":                "ID 无效",
		"error.subject_type_invalid":      "对象类型只能是 agent 或 dealership",
		"error.subject_not_found":         "激励对象不存在",
		"error.subject_invalid":           "对象信息无效",
		"error.rule_not_found":            "激励规则不存在",
		"error.rule_invalid":              "激励规则无效",
		"error.assignment_not_found":      "激励分配不存在",
		"error.assignment_invalid":        "激励分配无效",
		"error.assignment_level_conflict": "该等级已存在生效分配",
		"error.purchase_not_found":        "采购记录不存在",
		"error.purchase_invalid":          "采购信息无效",
		"error.dealership_not_found":      "车行不存在",
		"error.buyer_not_found":           "采购人不存在",
		"error.purchase_create_failed":    "采购保存失败",
		"error.purchase_update_failed":    "采购更新失败",
		"error.authz_policy_invalid":      "授权策略无效",
	},
}
