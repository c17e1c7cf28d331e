package router

import (
	"strings"

	"github.com/stockyourlot/internal/authz"
	"github.com/stockyourlot/internal/config"
	"github.com/stockyourlot/internal/constants"
	handlershared "github.com/stockyourlot/internal/http/handlers/shared"
	"github.com/stockyourlot/internal/http/response"
	"github.com/stockyourlot/internal/i18n"
	"github.com/stockyourlot/internal/logger"
	"github.com/stockyourlot/internal/repository"

	"github.com/gin-gonic/gin"
)

const (
	userIDContextKey   = handlershared.ContextKeyUserID
	usernameContextKey = handlershared.ContextKeyUsername
	rolesContextKey    = handlershared.ContextKeyRoles
)

// JWTAuthMiddleware 校验访问令牌并确认用户仍处于启用状态
func JWTAuthMiddleware(cfg config.JWTConfig, subjectRepo repository.SubjectRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.TrimSpace(cfg.SecretKey) == "" {
			abortUnauthorized(c, "error.jwt_secret_missing")
			return
		}
		if subjectRepo == nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "error.auth_header_missing")
			return
		}
		token, ok := bearerToken(authHeader)
		if !ok {
			abortUnauthorized(c, "error.auth_header_invalid")
			return
		}

		claims, err := authz.ParseAccessToken(token, cfg.SecretKey, cfg.Issuer)
		if err != nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}

		user, err := subjectRepo.GetUserByID(claims.UserID)
		if err != nil || user == nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}
		if !isActiveUserStatus(user.Status) {
			abortUnauthorized(c, "error.user_disabled")
			return
		}

		username := claims.Username
		if username == "" {
			username = user.Username
		}
		c.Set(userIDContextKey, user.ID)
		c.Set(usernameContextKey, username)
		c.Set(rolesContextKey, claims.Roles)
		c.Next()
	}
}

// RBACMiddleware 按令牌角色与用户直连策略执行 RBAC 鉴权
func RBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authzService == nil {
			logger.Errorw("rbac_service_unavailable")
			abortUnauthorized(c, "error.unauthorized")
			return
		}

		userID := c.GetUint(userIDContextKey)
		if userID == 0 {
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		roles := c.GetStringSlice(rolesContextKey)

		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}

		allowed, err := authzService.EnforceRoles(roles, resource, c.Request.Method)
		if err == nil && !allowed {
			allowed, err = authzService.EnforceUser(userID, resource, c.Request.Method)
		}
		if err != nil {
			handlershared.RequestLog(c).Errorw("rbac_enforce_failed",
				"user_id", userID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		if !allowed {
			handlershared.RequestLog(c).Warnw("rbac_permission_denied",
				"user_id", userID,
				"roles", roles,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"resource", authz.NormalizeObject(resource),
			)
			msg := i18n.T(i18n.ResolveLocale(c), "error.forbidden")
			response.Forbidden(c, msg)
			c.Abort()
			return
		}

		c.Next()
	}
}

// bearerToken 解析 "Bearer <token>"，方案名不区分大小写
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abortUnauthorized(c *gin.Context, key string) {
	msg := i18n.T(i18n.ResolveLocale(c), key)
	response.Unauthorized(c, msg)
	c.Abort()
}

func isActiveUserStatus(status string) bool {
	return strings.ToLower(strings.TrimSpace(status)) == constants.UserStatusActive
}
