package router

import (
	"sort"
	"strings"

	"github.com/stockyourlot/internal/authz"

	"github.com/gin-gonic/gin"
)

const adminRoutePrefix = "/api/v1/admin/"

// permissionCatalogEntry 后台可授权的一条接口，object 与 casbin 策略同一格式
type permissionCatalogEntry struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

// buildAdminPermissionCatalog 从已注册路由生成授权目录，按模块与路径排序
func buildAdminPermissionCatalog(engine *gin.Engine) []permissionCatalogEntry {
	entries := []permissionCatalogEntry{}
	if engine == nil {
		return entries
	}
	seen := make(map[string]bool)
	for _, route := range engine.Routes() {
		method := strings.ToUpper(route.Method)
		if method == "OPTIONS" || method == "HEAD" || !strings.HasPrefix(route.Path, adminRoutePrefix) {
			continue
		}
		object := authz.NormalizeObject(route.Path)
		permission := method + ":" + object
		if seen[permission] {
			continue
		}
		seen[permission] = true
		entries = append(entries, permissionCatalogEntry{
			Module:     permissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		if a.Object != b.Object {
			return a.Object < b.Object
		}
		return a.Method < b.Method
	})
	return entries
}

// permissionModule 取 /admin/<module>/... 中的模块段
func permissionModule(object string) string {
	segments := strings.Split(strings.Trim(object, "/"), "/")
	if len(segments) < 2 || segments[0] != "admin" {
		return "system"
	}
	return segments[1]
}
