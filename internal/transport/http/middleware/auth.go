package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"greenhome/internal/core/auth"
	resp "greenhome/internal/transport/http/response"
)

const keyIdentity = "identity"

// RequireIdentity 缺少 Bearer 头返回 401，校验失败返回 403；
// 只验证凭证本身，是否注册由各业务自行判断
func RequireIdentity(v auth.Verifier, l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			resp.Abort(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		id, err := v.Verify(c.Request.Context(), strings.TrimSpace(strings.TrimPrefix(ah, "Bearer ")))
		if err != nil {
			l.Debug("token rejected", zap.String("rid", c.GetString(KeyRID)), zap.Error(err))
			resp.Abort(c, http.StatusForbidden, "Forbidden")
			return
		}
		c.Set(keyIdentity, id)
		c.Next()
	}
}

func IdentityFrom(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(keyIdentity)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}
