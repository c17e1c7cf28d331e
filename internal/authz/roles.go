package authz

import (
	"errors"
	"fmt"
	"sort"
)

// EnsureRole 创建角色，已存在时直接返回规范化名称
func (s *Service) EnsureRole(role string) (string, error) {
	normalized, err := normalizeCustomRole(role)
	if err != nil {
		return "", err
	}
	if err := s.ready(); err != nil {
		return "", err
	}
	added, err := s.enforcer.AddNamedGroupingPolicy("g", normalized, roleAnchor)
	if err != nil {
		return "", fmt.Errorf("create role failed: %w", err)
	}
	return normalized, s.commit(added)
}

// ListRoles 所有出现在分组规则中的角色
func (s *Service) ListRoles() ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredNamedGroupingPolicy("g", 0)
	if err != nil {
		return nil, fmt.Errorf("list roles failed: %w", err)
	}
	seen := make(map[string]struct{})
	for _, rule := range rules {
		for _, subject := range rule {
			if isRole(subject) {
				seen[subject] = struct{}{}
			}
		}
	}
	roles := make([]string, 0, len(seen))
	for role := range seen {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles, nil
}

// DeleteRole 删除角色、角色策略以及指向该角色的继承与用户绑定
func (s *Service) DeleteRole(role string) error {
	normalized, err := normalizeCustomRole(role)
	if err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	policiesRemoved, err := s.enforcer.RemoveFilteredPolicy(0, normalized)
	if err != nil {
		return fmt.Errorf("remove role policy failed: %w", err)
	}
	parentsRemoved, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 0, normalized)
	if err != nil {
		return fmt.Errorf("remove role link failed: %w", err)
	}
	membersRemoved, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 1, normalized)
	if err != nil {
		return fmt.Errorf("remove role members failed: %w", err)
	}
	return s.commit(policiesRemoved || parentsRemoved || membersRemoved)
}

// GrantRolePolicy 为角色授予接口访问，角色不存在时先创建
func (s *Service) GrantRolePolicy(role, object, action string) error {
	act := NormalizeAction(action)
	if act == "" {
		return errors.New("action is required")
	}
	normalized, err := s.EnsureRole(role)
	if err != nil {
		return err
	}
	added, err := s.enforcer.AddPolicy(normalized, NormalizeObject(object), act)
	if err != nil {
		return fmt.Errorf("grant policy failed: %w", err)
	}
	return s.commit(added)
}

// RevokeRolePolicy 撤销角色的一条策略，策略不存在时视为成功
func (s *Service) RevokeRolePolicy(role, object, action string) error {
	act := NormalizeAction(action)
	if act == "" {
		return errors.New("action is required")
	}
	normalized, err := NormalizeRole(role)
	if err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	removed, err := s.enforcer.RemovePolicy(normalized, NormalizeObject(object), act)
	if err != nil {
		return fmt.Errorf("revoke policy failed: %w", err)
	}
	return s.commit(removed)
}

// RolePolicies 角色自身的策略，不含继承
func (s *Service) RolePolicies(role string) ([]Policy, error) {
	normalized, err := NormalizeRole(role)
	if err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredPolicy(0, normalized)
	if err != nil {
		return nil, fmt.Errorf("get role policies failed: %w", err)
	}
	return toPolicies(rules), nil
}

// BindUserRoles 覆盖用户在数据库中的角色绑定，与令牌角色叠加生效
func (s *Service) BindUserRoles(userID uint, roles []string) ([]string, error) {
	if userID == 0 {
		return nil, errors.New("user id is required")
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	subject := SubjectForUser(userID)
	changed, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 0, subject)
	if err != nil {
		return nil, fmt.Errorf("clear user roles failed: %w", err)
	}
	for _, raw := range roles {
		role, err := s.EnsureRole(raw)
		if err != nil {
			return nil, err
		}
		added, err := s.enforcer.AddNamedGroupingPolicy("g", subject, role)
		if err != nil {
			return nil, fmt.Errorf("bind user role failed: %w", err)
		}
		changed = changed || added
	}
	if err := s.commit(changed); err != nil {
		return nil, err
	}
	return s.UserRoles(userID)
}

// UserRoles 数据库中绑定到用户的角色
func (s *Service) UserRoles(userID uint) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	linked, err := s.enforcer.GetRolesForUser(SubjectForUser(userID))
	if err != nil {
		return nil, fmt.Errorf("get user roles failed: %w", err)
	}
	roles := make([]string, 0, len(linked))
	for _, role := range linked {
		if isRole(role) {
			roles = append(roles, role)
		}
	}
	sort.Strings(roles)
	return roles, nil
}

// EffectivePolicies 汇总令牌角色、绑定角色与用户直连策略，按主体去重
func (s *Service) EffectivePolicies(userID uint, tokenRoles []string) ([]Policy, error) {
	bound, err := s.UserRoles(userID)
	if err != nil {
		return nil, err
	}
	subjects := []string{SubjectForUser(userID)}
	for _, group := range [][]string{tokenRoles, bound} {
		for _, raw := range group {
			if role, err := NormalizeRole(raw); err == nil {
				subjects = append(subjects, role)
			}
		}
	}

	merged := make(map[string]Policy)
	for _, subject := range subjects {
		rules, err := s.enforcer.GetFilteredPolicy(0, subject)
		if err != nil {
			return nil, fmt.Errorf("get policies failed: %w", err)
		}
		for _, policy := range toPolicies(rules) {
			merged[policy.key()] = policy
		}
	}
	result := make([]Policy, 0, len(merged))
	for _, policy := range merged {
		result = append(result, policy)
	}
	sortPolicies(result)
	return result, nil
}
