package repo

import (
	"sort"
	"time"
)

// 内存实现：db.driver=memory 时使用，也是各层单测的存储替身

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// newestFirst 按时间倒序；时间相同时后插入的在前
func newestFirst[T any](items []T, at func(T) time.Time) []T {
	out := make([]T, len(items))
	for i := range items {
		out[len(items)-1-i] = items[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return at(out[i]).After(at(out[j])) })
	return out
}

func limitSlice[T any](items []T, skip, limit int) []T {
	if skip > 0 {
		if skip >= len(items) {
			return items[:0]
		}
		items = items[skip:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
