package response

import (
	"github.com/gin-gonic/gin"
)

// OK 成功：{success:true, ...payload}
func OK(c *gin.Context, status int, payload gin.H) {
	body := gin.H{}
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = true
	c.JSON(status, body)
}

// Fail 失败：{success:false, message}
func Fail(c *gin.Context, status int, msg string) {
	if msg == "" {
		msg = StatusMessage(status)
	}
	c.JSON(status, gin.H{"success": false, "message": msg})
}

// Abort 中间件里提前结束请求
func Abort(c *gin.Context, status int, msg string) {
	if msg == "" {
		msg = StatusMessage(status)
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": msg})
}
