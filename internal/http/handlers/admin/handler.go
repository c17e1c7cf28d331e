package admin

import "github.com/stockyourlot/internal/provider"

// Handler 后台接口：激励规则、分配、结算查询、采购维护与权限管理
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
