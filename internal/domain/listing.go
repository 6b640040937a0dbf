package domain

import (
	"context"
	"encoding/json"
)

// Listing 房源字段完全由调用方决定，这里只保留 id
type Listing struct {
	ID     string
	Fields map[string]any
}

// MarshalJSON 平铺字段并附带 _id
func (l Listing) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(l.Fields)+1)
	for k, v := range l.Fields {
		m[k] = v
	}
	m["_id"] = l.ID
	return json.Marshal(m)
}

type ListingRepository interface {
	List(ctx context.Context) ([]Listing, error)
	FindByID(ctx context.Context, id string) (*Listing, error)
	Create(ctx context.Context, fields map[string]any) (string, error)
	// Update 局部合并，返回是否命中
	Update(ctx context.Context, id string, fields map[string]any) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int64, error)
	// ListExcluding 取不在 ids 中的房源，最多 limit 条
	ListExcluding(ctx context.Context, ids []string, limit int) ([]Listing, error)
}
