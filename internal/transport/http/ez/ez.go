// Package ez 把 (入参 → 业务 → 载荷/错误) 形式的处理函数挂到 gin 上，统一绑定与错误映射。
package ez

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"greenhome/internal/core/apperr"
	mdw "greenhome/internal/transport/http/middleware"
	resp "greenhome/internal/transport/http/response"
)

type Options struct {
	Log *zap.Logger
	// Auth 需要身份的动作会先经过它
	Auth gin.HandlerFunc
	// ExposeInternal 非生产环境把内部错误原因带回响应，便于排查
	ExposeInternal bool
}

type EZ struct {
	g    *gin.RouterGroup
	opts Options
}

func New(g *gin.RouterGroup, opts Options) EZ {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return EZ{g: g, opts: opts}
}

// Group 子路径共享同一套选项
func (e EZ) Group(path string, mw ...gin.HandlerFunc) EZ {
	return EZ{g: e.g.Group(path, mw...), opts: e.opts}
}

// Router 需要自行写响应的路由（如流式下载）直接挂在这里
func (e EZ) Router() *gin.RouterGroup { return e.g }

// Fail 统一错误映射：apperr.Kind → 状态码，请求体超限 → 413，超过截止时间 → 504，其余 → 500
func (e EZ) Fail(c *gin.Context, err error) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		resp.Fail(c, http.StatusRequestEntityTooLarge, "")
		return
	}
	// 存储调用撞上请求截止时间：错误已被包成 Internal，按超时处理
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(c.Request.Context().Err(), context.DeadlineExceeded) {
		e.opts.Log.Warn("request deadline exceeded",
			zap.String("rid", c.GetString(mdw.KeyRID)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		resp.Fail(c, http.StatusGatewayTimeout, "")
		return
	}
	kind := apperr.KindOf(err)
	status := kind.Status()
	if kind != apperr.KindInternal {
		resp.Fail(c, status, apperr.Message(err))
		return
	}
	e.opts.Log.Error("request failed",
		zap.String("rid", c.GetString(mdw.KeyRID)),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	msg := apperr.Message(err)
	if e.opts.ExposeInternal {
		msg = err.Error()
	}
	resp.Fail(c, status, msg)
}

func payloadOf(v any) gin.H {
	switch t := v.(type) {
	case gin.H:
		return t
	case nil:
		return gin.H{}
	default:
		return gin.H{"data": v}
	}
}

// POSTFILES 处理 multipart/form-data 多文件上传
func POSTFILES(e EZ, path, fieldName string, auth bool, h func(c *gin.Context, files []*multipart.FileHeader) (gin.H, error)) {
	handlers := e.chain(auth, func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				e.Fail(c, err)
				return
			}
			e.Fail(c, apperr.InvalidInput("Invalid multipart form"))
			return
		}
		data, err := h(c, form.File[fieldName])
		if err != nil {
			e.Fail(c, err)
			return
		}
		resp.OK(c, http.StatusOK, data)
	})
	e.g.POST(path, handlers...)
}

func (e EZ) chain(auth bool, h gin.HandlerFunc) []gin.HandlerFunc {
	if auth && e.opts.Auth != nil {
		return []gin.HandlerFunc{e.opts.Auth, h}
	}
	return []gin.HandlerFunc{h}
}
