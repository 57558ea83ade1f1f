// Package scalars defines the custom GraphQL scalars used for mapped column
// types. Each constructor returns a new scalar; callers share one instance per
// schema.
package scalars

import (
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

const dateLayout = "2006-01-02"

// storedTimeLayouts are the textual forms drivers hand back for temporal columns.
var storedTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	dateLayout,
}

// Date serializes calendar dates as ISO 8601 (YYYY-MM-DD).
func Date() *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        "Date",
		Description: "ISO 8601 date serialized as YYYY-MM-DD.",
		Serialize: func(value interface{}) interface{} {
			if t, ok := toTime(value); ok {
				return t.Format(dateLayout)
			}
			return nil
		},
		ParseValue: func(value interface{}) interface{} {
			return parseDate(value)
		},
		ParseLiteral: func(valueAST ast.Value) interface{} {
			if sv, ok := valueAST.(*ast.StringValue); ok {
				return parseDate(sv.Value)
			}
			return nil
		},
	})
}

// DateTime serializes timestamps as ISO 8601 in UTC.
func DateTime() *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        "DateTime",
		Description: "ISO 8601 timestamp.",
		Serialize: func(value interface{}) interface{} {
			if t, ok := toTime(value); ok {
				return t.UTC().Format(time.RFC3339)
			}
			return nil
		},
		ParseValue: func(value interface{}) interface{} {
			if t, ok := toTime(value); ok {
				return t
			}
			return nil
		},
		ParseLiteral: func(valueAST ast.Value) interface{} {
			if sv, ok := valueAST.(*ast.StringValue); ok {
				if t, ok := toTime(sv.Value); ok {
					return t
				}
			}
			return nil
		},
	})
}

// JSON passes arbitrary JSON documents through as strings.
func JSON() *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        "JSON",
		Description: "Arbitrary JSON value serialized as a string.",
		Serialize: func(value interface{}) interface{} {
			switch v := value.(type) {
			case []byte:
				return string(v)
			case string:
				return v
			case nil:
				return nil
			default:
				serialized, err := json.Marshal(v)
				if err != nil {
					slog.Default().Warn("failed to serialize JSON scalar", slog.String("error", err.Error()))
					return nil
				}
				return string(serialized)
			}
		},
		ParseValue: func(value interface{}) interface{} {
			if s, ok := value.(string); ok && json.Valid([]byte(s)) {
				return s
			}
			return nil
		},
		ParseLiteral: func(valueAST ast.Value) interface{} {
			if sv, ok := valueAST.(*ast.StringValue); ok && json.Valid([]byte(sv.Value)) {
				return sv.Value
			}
			return nil
		},
	})
}

// BigInt carries 64-bit integers as strings.
func BigInt() *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        "BigInt",
		Description: "64-bit integer value serialized as a string.",
		Serialize: func(value interface{}) interface{} {
			if n, ok := toInt64(value); ok {
				return strconv.FormatInt(n, 10)
			}
			return nil
		},
		ParseValue: func(value interface{}) interface{} {
			if n, ok := toInt64(value); ok {
				return n
			}
			return nil
		},
		ParseLiteral: func(valueAST ast.Value) interface{} {
			switch v := valueAST.(type) {
			case *ast.IntValue:
				if parsed, err := strconv.ParseInt(v.Value, 10, 64); err == nil {
					return parsed
				}
			case *ast.StringValue:
				if parsed, err := strconv.ParseInt(v.Value, 10, 64); err == nil {
					return parsed
				}
			}
			return nil
		},
	})
}

func parseDate(value interface{}) interface{} {
	t, ok := toTime(value)
	if !ok {
		return nil
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func toTime(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	case []byte:
		return parseStoredTime(string(v))
	case string:
		return parseStoredTime(v)
	default:
		return time.Time{}, false
	}
}

func parseStoredTime(s string) (time.Time, bool) {
	for _, layout := range storedTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if v != math.Trunc(v) || math.Abs(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		return parsed, err == nil
	case []byte:
		parsed, err := strconv.ParseInt(string(v), 10, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}
