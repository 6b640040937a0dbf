package response

import "net/http"

// 非业务错误（限流、超时、路由不存在等）的默认文案
var statusMessages = map[int]string{
	http.StatusBadRequest:            "Bad Request",
	http.StatusUnauthorized:          "Unauthorized",
	http.StatusForbidden:             "Forbidden",
	http.StatusNotFound:              "Route not found",
	http.StatusRequestEntityTooLarge: "Request body too large",
	http.StatusTooManyRequests:       "Too many requests",
	http.StatusInternalServerError:   "Internal Server Error",
	http.StatusServiceUnavailable:    "Server busy",
	http.StatusGatewayTimeout:        "Request timeout",
}

// StatusMessage 未登记的状态码退回标准文案
func StatusMessage(status int) string {
	if m, ok := statusMessages[status]; ok {
		return m
	}
	return http.StatusText(status)
}
