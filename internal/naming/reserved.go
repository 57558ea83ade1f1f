package naming

import "strings"

// graphqlReservedTypeWords contains GraphQL keywords and built-in types
// that should not be used as type names.
var graphqlReservedTypeWords = map[string]bool{
	"query":        true,
	"mutation":     true,
	"subscription": true,
	"type":         true,
	"schema":       true,
	"scalar":       true,
	"enum":         true,
	"input":        true,
	"interface":    true,
	"union":        true,
	"fragment":     true,
	"directive":    true,
	"extend":       true,
	"implements":   true,
	"on":           true,

	"int":      true,
	"float":    true,
	"string":   true,
	"boolean":  true,
	"id":       true,
	"date":     true,
	"datetime": true,
	"json":     true,

	"true":  true,
	"false": true,
	"null":  true,

	// Shared artifacts owned by the generator.
	"sortdirection": true,
	"pageinfo":      true,
}

// isReservedTypeName checks if a type name is reserved.
func isReservedTypeName(name string) bool {
	lowerName := strings.ToLower(name)
	if strings.HasPrefix(lowerName, "__") {
		return true
	}
	return graphqlReservedTypeWords[lowerName]
}
