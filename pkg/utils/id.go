package utils

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewID 生成 24 位十六进制 ObjectID（所有存储后端统一使用这种格式）
func NewID() string { return primitive.NewObjectID().Hex() }

// ValidID 校验 id 是否为合法的 ObjectID 字符串
func ValidID(id string) bool { return primitive.IsValidObjectID(id) }

// NormalizeEmail 邮箱统一小写去空格后再作为查询键
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
