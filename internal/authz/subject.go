package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	apiV1Prefix = "/api/v1"
	rolePrefix  = "role:"
	userPrefix  = "user:"
	// roleAnchor 角色的占位父节点，用于在没有任何策略时仍能列出角色
	roleAnchor = "role:__anchor__"
)

// Policy 单条授权策略
type Policy struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Action  string `json:"action"`
}

func (p Policy) key() string {
	return p.Subject + "|" + p.Object + "|" + p.Action
}

// SubjectForUser 用户主体，形如 user:12
func SubjectForUser(userID uint) string {
	return fmt.Sprintf("%s%d", userPrefix, userID)
}

// NormalizeRole 补齐 role: 前缀，空格替换为下划线
func NormalizeRole(role string) (string, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(role), " ", "_")
	if !strings.HasPrefix(normalized, rolePrefix) {
		normalized = rolePrefix + normalized
	}
	if len(normalized) == len(rolePrefix) {
		return "", errors.New("role is required")
	}
	return normalized, nil
}

func normalizeCustomRole(role string) (string, error) {
	normalized, err := NormalizeRole(role)
	if err != nil {
		return "", err
	}
	if normalized == roleAnchor {
		return "", errors.New("reserved role is not allowed")
	}
	return normalized, nil
}

func isRole(subject string) bool {
	return strings.HasPrefix(subject, rolePrefix) && subject != roleAnchor
}

// NormalizeObject 去掉 /api/v1 前缀，策略与路由分组无关
func NormalizeObject(object string) string {
	normalized := strings.TrimSpace(object)
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	switch {
	case normalized == apiV1Prefix:
		return "/"
	case strings.HasPrefix(normalized, apiV1Prefix+"/"):
		return strings.TrimPrefix(normalized, apiV1Prefix)
	default:
		return normalized
	}
}

// NormalizeAction HTTP 方法大写，* 表示全部
func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}

func toPolicies(rules [][]string) []Policy {
	policies := make([]Policy, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		policies = append(policies, Policy{
			Subject: strings.TrimSpace(rule[0]),
			Object:  NormalizeObject(rule[1]),
			Action:  NormalizeAction(rule[2]),
		})
	}
	return policies
}

func sortPolicies(policies []Policy) {
	sort.Slice(policies, func(i, j int) bool {
		return policies[i].key() < policies[j].key()
	})
}
