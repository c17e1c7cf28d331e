package authz

import "fmt"

// RoleSeed 预置角色：继承关系与自身策略
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色及其继承关系
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "auditor",
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
		},
		{
			Role: "buyer",
			Policies: []Policy{
				{Object: "/purchases", Action: "GET"},
				{Object: "/purchases", Action: "POST"},
				{Object: "/purchases/:id", Action: "GET"},
			},
		},
		{
			Role:     "incentive_manager",
			Inherits: []string{"auditor"},
			Policies: []Policy{
				{Object: "/admin/incentive-rules", Action: "*"},
				{Object: "/admin/incentive-rules/:id", Action: "*"},
				{Object: "/admin/subjects/:subject_type/:subject_id/assignments", Action: "*"},
				{Object: "/admin/subjects/:subject_type/:subject_id/assignments/:id", Action: "*"},
				{Object: "/admin/incentive-expirations/sweep", Action: "POST"},
			},
		},
		{
			Role:     "admin",
			Inherits: []string{"incentive_manager", "buyer"},
			Policies: []Policy{
				{Object: "/admin/*", Action: "*"},
			},
		},
	}
}

// BootstrapBuiltinRoles 写入预置角色，可重复执行
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	changed := false
	for _, seed := range BuiltinRoleSeeds() {
		added, err := s.seedRole(seed)
		if err != nil {
			return fmt.Errorf("seed role %s: %w", seed.Role, err)
		}
		changed = changed || added
	}
	return s.commit(changed)
}

func (s *Service) seedRole(seed RoleSeed) (bool, error) {
	role, err := NormalizeRole(seed.Role)
	if err != nil {
		return false, err
	}
	links := [][2]string{{role, roleAnchor}}
	for _, parent := range seed.Inherits {
		parentRole, err := NormalizeRole(parent)
		if err != nil {
			return false, err
		}
		links = append(links, [2]string{role, parentRole})
	}

	changed := false
	for _, link := range links {
		added, err := s.enforcer.AddNamedGroupingPolicy("g", link[0], link[1])
		if err != nil {
			return false, err
		}
		changed = changed || added
	}
	for _, policy := range seed.Policies {
		action := NormalizeAction(policy.Action)
		if action == "" {
			return false, fmt.Errorf("policy %s has no action", policy.Object)
		}
		added, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action)
		if err != nil {
			return false, err
		}
		changed = changed || added
	}
	return changed, nil
}
