package domain

import "errors"

// ErrDuplicate 唯一约束冲突（账号 email、同一用户同一房源的预订）
var ErrDuplicate = errors.New("duplicate key")
