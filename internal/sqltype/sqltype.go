// Package sqltype maps SQL column types onto the native type names that
// model descriptors carry and the type mapper understands.
package sqltype

import "strings"

// Native type names.
const (
	String    = "string"
	Text      = "text"
	UUID      = "uuid"
	Integer   = "integer"
	BigInt    = "bigint"
	Float     = "float"
	Decimal   = "decimal"
	Boolean   = "boolean"
	JSON      = "json"
	Date      = "date"
	Time      = "time"
	DateTime  = "datetime"
	Timestamp = "timestamp"
	Binary    = "binary"
)

// Native converts a SQL data type to its native type name.
// The input is case-insensitive. Size specifiers like (10,2) or (255) are
// stripped before matching, except that tinyint(1) is treated as boolean.
// This handles both INFORMATION_SCHEMA.COLUMNS.DATA_TYPE (base type only)
// and COLUMN_TYPE (full type with size).
func Native(sqlType string) string {
	normalized := strings.ToLower(strings.TrimSpace(sqlType))
	if strings.HasPrefix(normalized, "tinyint(1)") {
		return Boolean
	}
	if idx := strings.Index(normalized, "("); idx != -1 {
		normalized = normalized[:idx]
	}
	normalized = strings.TrimSpace(strings.TrimSuffix(normalized, " unsigned"))

	switch normalized {
	case "tinyint", "smallint", "mediumint", "int", "integer", "serial", "int2", "int4", "year", "bit":
		return Integer
	case "bigint", "int8", "bigserial":
		return BigInt
	case "float", "double", "real", "double precision", "float4", "float8":
		return Float
	case "decimal", "numeric":
		return Decimal
	case "bool", "boolean":
		return Boolean
	case "json", "jsonb":
		return JSON
	case "date":
		return Date
	case "time", "time without time zone":
		return Time
	case "datetime":
		return DateTime
	case "timestamp", "timestamptz", "timestamp with time zone", "timestamp without time zone":
		return Timestamp
	case "text", "tinytext", "mediumtext", "longtext", "clob":
		return Text
	case "uuid":
		return UUID
	case "blob", "tinyblob", "mediumblob", "longblob", "binary", "varbinary", "bytea":
		return Binary
	default:
		// char, varchar, enum, set and anything unknown
		return String
	}
}

// IsNumeric reports whether values of the native type order numerically.
func IsNumeric(native string) bool {
	switch native {
	case Integer, BigInt, Float, Decimal:
		return true
	}
	return false
}

// IsTemporal reports whether the native type is a date or time.
func IsTemporal(native string) bool {
	switch native {
	case Date, Time, DateTime, Timestamp:
		return true
	}
	return false
}
