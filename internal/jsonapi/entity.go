package jsonapi

import (
	"fmt"
	"reflect"
)

// Entity is a domain object the serializer can render
type Entity interface {
	// EntityID returns the resource id
	EntityID() string
	// Field returns the value of a named field and whether the entity carries it
	Field(name string) (any, bool)
}

// Record is a map-backed Entity keyed by field name
type Record map[string]any

// EntityID returns the "id" entry formatted as a string
func (r Record) EntityID() string {
	switch id := r["id"].(type) {
	case nil:
		return ""
	case string:
		return id
	case []byte:
		return string(id)
	default:
		return fmt.Sprint(id)
	}
}

// Field returns the named entry
func (r Record) Field(name string) (any, bool) {
	v, ok := r[name]
	return v, ok
}

// Entities converts records to a slice of entities
func Entities(records []Record) []Entity {
	out := make([]Entity, len(records))
	for i, r := range records {
		out[i] = r
	}
	return out
}

// isAbsent reports whether e is nil, including typed nils
func isAbsent(e Entity) bool {
	if e == nil {
		return true
	}
	if r, ok := e.(Record); ok {
		return r == nil
	}
	v := reflect.ValueOf(e)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Interface:
		return v.IsNil()
	}
	return false
}
