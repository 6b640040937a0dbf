package repo

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 集合名沿用线上库
const (
	collUsers    = "users"
	collHouses   = "houses"
	collBookings = "bookings"
	collReviews  = "reviews"
	collImages   = "images"
)

func oidOf(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	return oid, err == nil
}

func oidsOf(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, ok := oidOf(id); ok {
			out = append(out, oid)
		}
	}
	return out
}

// plain 把驱动解码出的 bson 类型转成普通 Go 值，便于 JSON 输出
func plain(v any) any {
	switch t := v.(type) {
	case bson.M:
		return plainMap(t)
	case map[string]any:
		return plainMap(t)
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = plain(e.Value)
		}
		return m
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Decimal128:
		return t.String()
	default:
		return v
	}
}

func plainMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = plain(v)
	}
	return out
}

// idString 解码侧：历史数据里 _id/userId 可能是字符串或 ObjectID
func idString(v any) string {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case string:
		return t
	default:
		return ""
	}
}

// idFilter 查询侧：合法 hex 同时匹配字符串和 ObjectID 两种存法
func idFilter(id string) any {
	if oid, ok := oidOf(id); ok {
		return bson.M{"$in": bson.A{id, oid}}
	}
	return id
}

// flexID userId 字段按字符串写入，读取时也接受历史 ObjectID
type flexID string

func (f *flexID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.String:
		*f = flexID(rv.StringValue())
	case bsontype.ObjectID:
		*f = flexID(rv.ObjectID().Hex())
	case bsontype.Null, bsontype.Undefined:
		*f = ""
	default:
		return fmt.Errorf("cannot decode %s into an id", t)
	}
	return nil
}

// docFields 复制调用方字段，去掉不可写的键
func docFields(fields map[string]any, drop ...string) bson.M {
	doc := bson.M{}
	for k, v := range fields {
		doc[k] = v
	}
	for _, k := range drop {
		delete(doc, k)
	}
	return doc
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
