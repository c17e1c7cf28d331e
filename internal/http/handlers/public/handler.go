package public

import "github.com/stockyourlot/internal/provider"

// Handler 买家接口：提交采购并查看本人采购及其激励结算
type Handler struct {
	*provider.Container
}

// New 创建买家接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
