package model

import "fmt"

// EnumValue maps a native enum key to its stored value.
type EnumValue struct {
	Key   string
	Value interface{}
}

// EnumValues is an ordered native enum value set.
type EnumValues []EnumValue

// Keys returns the enum keys in declaration order.
func (e EnumValues) Keys() []string {
	keys := make([]string, 0, len(e))
	for _, v := range e {
		keys = append(keys, v.Key)
	}
	return keys
}

// KeyFor maps a stored value back to its key. Stored values are compared by
// their printed form so that int64 rows match int declarations.
func (e EnumValues) KeyFor(stored interface{}) (string, bool) {
	if stored == nil {
		return "", false
	}
	if b, ok := stored.([]byte); ok {
		stored = string(b)
	}
	printed := fmt.Sprint(stored)
	for _, v := range e {
		if fmt.Sprint(v.Value) == printed {
			return v.Key, true
		}
	}
	return "", false
}

// ValueFor maps a key to its stored value.
func (e EnumValues) ValueFor(key string) (interface{}, bool) {
	for _, v := range e {
		if v.Key == key {
			return v.Value, true
		}
	}
	return nil, false
}
