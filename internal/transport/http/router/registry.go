package router

import (
	"sort"

	"github.com/gin-gonic/gin"
)

// APIModule 每个业务模块把自己的路由挂到 /api 下
type APIModule interface{ MountAPI(*gin.RouterGroup) }

// 可选：实现该接口可控制挂载顺序（数值越小越先挂）
// 不实现则默认 100
type prioritizer interface{ Priority() int }

// Registry 按优先级挂载模块；每个引擎各持一份，测试之间互不影响
type Registry struct {
	mods []APIModule
}

func (r *Registry) Register(mods ...APIModule) {
	r.mods = append(r.mods, mods...)
}

// MountAll 在 api 分组上挂载所有已注册的模块
func (r *Registry) MountAll(api *gin.RouterGroup) {
	mods := append([]APIModule(nil), r.mods...)
	sort.SliceStable(mods, func(i, j int) bool {
		return priorityOf(mods[i]) < priorityOf(mods[j])
	})
	for _, m := range mods {
		m.MountAPI(api)
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
