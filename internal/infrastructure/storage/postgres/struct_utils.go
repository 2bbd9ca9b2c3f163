package postgres

import (
	"reflect"
	"slices"
	"sync"
)

// ExtractDBColumns lists the "db" tags of T, flattening embedded structs
// such as entity.Document. Called once per repository at construction.
//
//	cols := ExtractDBColumns[entry.Entry]()
//	// ["id", "is_active", "version", "created_at", ..., "entry_type", ...]
func ExtractDBColumns[T any]() []string {
	var zero T
	return columnsOf(reflect.TypeOf(zero))
}

func columnsOf(t reflect.Type) []string {
	var cols []string
	for _, f := range metadataFor(t).fields {
		if f.embedded {
			cols = append(cols, columnsOf(derefType(t).Field(f.index).Type)...)
			continue
		}
		cols = append(cols, f.column)
	}
	return cols
}

// fieldInfo is either a tagged column or an embedded struct to descend into.
type fieldInfo struct {
	index    int
	column   string
	embedded bool
}

// typeMetadata keeps fields in declaration order.
type typeMetadata struct {
	fields []fieldInfo
}

// typeCache holds one *typeMetadata per struct type.
var typeCache sync.Map

func derefType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Ptr {
		return t.Elem()
	}
	return t
}

func metadataFor(t reflect.Type) *typeMetadata {
	t = derefType(t)
	if cached, ok := typeCache.Load(t); ok {
		return cached.(*typeMetadata)
	}

	meta := &typeMetadata{}
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if field.Anonymous {
				meta.fields = append(meta.fields, fieldInfo{index: i, embedded: true})
				continue
			}
			tag := field.Tag.Get("db")
			if tag == "" || tag == "-" {
				continue
			}
			meta.fields = append(meta.fields, fieldInfo{index: i, column: tag})
		}
	}

	actual, _ := typeCache.LoadOrStore(t, meta)
	return actual.(*typeMetadata)
}

// StructToMap converts a struct (or pointer to one) into column -> value
// using "db" tags. Fields without a tag or tagged "-" are skipped.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	res := make(map[string]any)
	collect(rv, res)
	return res
}

func collect(rv reflect.Value, into map[string]any) {
	for _, f := range metadataFor(rv.Type()).fields {
		if !f.embedded {
			into[f.column] = rv.Field(f.index).Interface()
			continue
		}
		emb := rv.Field(f.index)
		if emb.Kind() == reflect.Ptr {
			if emb.IsNil() {
				continue
			}
			emb = emb.Elem()
		}
		collect(emb, into)
	}
}

// PickColumns keeps the entries of data whose column is in cols and not in skip.
func PickColumns(data map[string]any, cols []string, skip ...string) map[string]any {
	out := make(map[string]any, len(cols))
	for _, col := range cols {
		if slices.Contains(skip, col) {
			continue
		}
		if val, ok := data[col]; ok {
			out[col] = val
		}
	}
	return out
}
