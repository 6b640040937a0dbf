package ez

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"greenhome/internal/core/apperr"
	resp "greenhome/internal/transport/http/response"
)

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindURI   Binder = "uri"   // 从路径参数绑定（uri tag）
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

// Action 动作定义：I 入参，O 出参。
// O 为 gin.H 时平铺进响应，其它类型放在 data 下。
type Action[I any, O any] struct {
	Method  string // "GET" | "POST" | "PUT" | "PATCH" | "DELETE"
	Path    string
	Binder  Binder
	Auth    bool // 是否要求已验证身份
	Handler func(c *gin.Context, in *I) (O, error)
}

const msgBadBody = "Invalid request body"

func bind[I any](c *gin.Context, b Binder, in *I) error {
	var err error
	switch b {
	case BindJSON:
		err = c.ShouldBindJSON(in)
	case BindQuery:
		err = c.ShouldBindQuery(in)
	case BindURI:
		err = c.ShouldBindUri(in)
	default:
		return nil
	}
	if err == nil {
		return nil
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return err
	}
	return apperr.InvalidInput(msgBadBody)
}

// RegisterAction 在当前 EZ 下注册动作接口
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		var in I
		if err := bind(c, a.Binder, &in); err != nil {
			e.Fail(c, err)
			return
		}
		out, err := a.Handler(c, &in)
		if err != nil {
			e.Fail(c, err)
			return
		}
		resp.OK(c, http.StatusOK, payloadOf(any(out)))
	}

	handlers := e.chain(a.Auth, h)
	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, handlers...)
	case http.MethodPut:
		e.g.PUT(a.Path, handlers...)
	case http.MethodPatch:
		e.g.PATCH(a.Path, handlers...)
	case http.MethodDelete:
		e.g.DELETE(a.Path, handlers...)
	default: // 默认 POST
		e.g.POST(a.Path, handlers...)
	}
}

// GET 无入参的只读接口
func GET[O any](e EZ, path string, auth bool, h func(c *gin.Context) (O, error)) {
	RegisterAction(e, Action[struct{}, O]{
		Method:  http.MethodGet,
		Path:    path,
		Binder:  BindNone,
		Auth:    auth,
		Handler: func(c *gin.Context, _ *struct{}) (O, error) { return h(c) },
	})
}
