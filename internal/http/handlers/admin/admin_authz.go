package admin

import (
	"net/url"
	"strings"

	handlershared "github.com/stockyourlot/internal/http/handlers/shared"
	"github.com/stockyourlot/internal/http/response"

	"github.com/gin-gonic/gin"
)

type authzRolePayload struct {
	Role string `json:"role" binding:"required"`
}

type authzPolicyPayload struct {
	Role   string `json:"role" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

type authzUserRolesPayload struct {
	Roles []string `json:"roles"`
}

// auditAuthzChange 权限变更统一记审计日志
func auditAuthzChange(c *gin.Context, event string, kv ...interface{}) {
	fields := append([]interface{}{"operator_user_id", currentUserID(c)}, kv...)
	requestLog(c).Infow(event, fields...)
}

// GetAuthzMe 当前用户的令牌角色、库中绑定角色与合并后的策略
func (h *Handler) GetAuthzMe(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	tokenRoles := currentRoles(c)
	bound, err := h.AuthzService.UserRoles(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	policies, err := h.AuthzService.EffectivePolicies(userID, tokenRoles)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, gin.H{
		"user_id":     userID,
		"username":    currentUsername(c),
		"roles":       tokenRoles,
		"bound_roles": bound,
		"policies":    policies,
	})
}

func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, roles)
}

func (h *Handler) CreateAuthzRole(c *gin.Context) {
	var req authzRolePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	role, err := h.AuthzService.EnsureRole(req.Role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.authz_policy_invalid", err)
		return
	}
	auditAuthzChange(c, "admin_authz_role_created", "role", role)
	response.Success(c, gin.H{"role": role})
}

// DeleteAuthzRole 路径中的角色名需 URL 编码，如 role%3Aops
func (h *Handler) DeleteAuthzRole(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}
	if err := h.AuthzService.DeleteRole(role); err != nil {
		respondError(c, response.CodeBadRequest, "error.authz_policy_invalid", err)
		return
	}
	auditAuthzChange(c, "admin_authz_role_deleted", "role", role)
	response.Success(c, nil)
}

func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}
	policies, err := h.AuthzService.RolePolicies(role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.authz_policy_invalid", err)
		return
	}
	response.Success(c, policies)
}

func (h *Handler) GrantAuthzPolicy(c *gin.Context) {
	h.changeRolePolicy(c, "admin_authz_policy_granted", h.AuthzService.GrantRolePolicy)
}

func (h *Handler) RevokeAuthzPolicy(c *gin.Context) {
	h.changeRolePolicy(c, "admin_authz_policy_revoked", h.AuthzService.RevokeRolePolicy)
}

func (h *Handler) changeRolePolicy(c *gin.Context, event string, apply func(role, object, action string) error) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := apply(req.Role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "error.authz_policy_invalid", err)
		return
	}
	auditAuthzChange(c, event, "role", req.Role, "object", req.Object, "action", req.Action)
	response.Success(c, nil)
}

// GetAuthzUserRoles 用户在库中绑定的角色，不含令牌角色
func (h *Handler) GetAuthzUserRoles(c *gin.Context) {
	userID, ok := h.authzTargetUser(c)
	if !ok {
		return
	}
	roles, err := h.AuthzService.UserRoles(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, gin.H{"user_id": userID, "roles": roles})
}

// SetAuthzUserRoles 覆盖用户角色绑定，空列表表示只保留令牌角色
func (h *Handler) SetAuthzUserRoles(c *gin.Context) {
	var req authzUserRolesPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	userID, ok := h.authzTargetUser(c)
	if !ok {
		return
	}
	roles, err := h.AuthzService.BindUserRoles(userID, req.Roles)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.authz_policy_invalid", err)
		return
	}
	auditAuthzChange(c, "admin_authz_user_roles_set", "target_user_id", userID, "roles", roles)
	response.Success(c, gin.H{"user_id": userID, "roles": roles})
}

func (h *Handler) authzTargetUser(c *gin.Context) (uint, bool) {
	userID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return 0, false
	}
	if _, err := h.SubjectService.GetAgent(userID); err != nil {
		respondIncentiveError(c, err)
		return 0, false
	}
	return userID, true
}

func roleParam(c *gin.Context) (string, bool) {
	raw := c.Param("role")
	role, err := url.QueryUnescape(raw)
	if err != nil {
		role = raw
	}
	role = strings.TrimSpace(role)
	if role == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return "", false
	}
	return role, true
}
