package naming

import (
	"log/slog"
	"strings"
)

// Artifact name suffixes.
const (
	InputSuffix      = "Input"
	FilterSuffix     = "Filter"
	SortSuffix       = "Sort"
	GroupingSuffix   = "Grouping"
	EdgeSuffix       = "Edge"
	ConnectionSuffix = "Connection"

	// ConnectionFieldSuffix is appended to a many-association field to name
	// its paginated sibling.
	ConnectionFieldSuffix = "_connection"

	// NestedAttributesSuffix marks a writable association that accepts nested
	// records.
	NestedAttributesSuffix = "_attributes"
)

// Namer provides the name transformations used by schema generation.
type Namer struct {
	config Config
	logger *slog.Logger
}

// New creates a Namer with the given configuration
func New(cfg Config, logger *slog.Logger) *Namer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Namer{
		config: cfg,
		logger: logger,
	}
}

// Default returns a Namer with default configuration
func Default() *Namer {
	return New(DefaultConfig(), nil)
}

// ToGraphQLTypeName converts a snake_case name to a GraphQL type name (PascalCase).
// Example: "user_profiles" -> "UserProfiles"
func (n *Namer) ToGraphQLTypeName(name string) string {
	return n.validateTypeAndSuffix(toPascalCase(name))
}

// ToGraphQLFieldName converts a snake_case name to a GraphQL field name (camelCase).
// Example: "name_starts_with" -> "nameStartsWith"
func (n *Namer) ToGraphQLFieldName(name string) string {
	return toCamelCase(name)
}

// ModelName derives a model display name from a table name.
// Example: "order_items" -> "OrderItem"
func (n *Namer) ModelName(tableName string) string {
	return n.ToGraphQLTypeName(n.Singularize(tableName))
}

// EnumTypeName names the enum generated for a model attribute.
// Example: ("Third", "status") -> "ThirdStatuses"
func (n *Namer) EnumTypeName(modelName, attribute string) string {
	return modelName + toPascalCase(n.Pluralize(attribute))
}

// RootFieldName names the root query field of a model.
// Example: "OrderItem" -> "orderItem"
func (n *Namer) RootFieldName(modelName string) string {
	return lowerFirst(modelName)
}

// ConnectionRootFieldName names the paginated root query field of a model.
// Example: "OrderItem" -> "orderItemConnection"
func (n *Namer) ConnectionRootFieldName(modelName string) string {
	return lowerFirst(modelName) + ConnectionSuffix
}

// CreateMutationName names the create mutation of a model.
// Example: "OrderItem" -> "createOrderItem"
func (n *Namer) CreateMutationName(modelName string) string {
	return "create" + modelName
}

// ManyToOneFieldName derives the association name for a many-to-one relationship
// from the FK column name with common suffixes stripped.
// Example: "author_id" -> "author", "created_by_user_id" -> "created_by_user"
func (n *Namer) ManyToOneFieldName(fkColumn string) string {
	name := fkColumn
	for _, suffix := range []string{"_id", "_fk"} {
		if strings.HasSuffix(strings.ToLower(name), suffix) {
			name = name[:len(name)-len(suffix)]
			break
		}
	}
	return name
}

// OneToManyFieldName derives the association name for a one-to-many relationship.
// If isOnlyFK is true (single FK from source table), uses the pluralized table name.
// Otherwise, prefixes with the FK column name for disambiguation.
// Example: isOnlyFK=true: "comments" -> "comments"
// Example: isOnlyFK=false, fkColumn="author_id": "posts" -> "author_posts"
func (n *Namer) OneToManyFieldName(sourceTable, fkColumn string, isOnlyFK bool) string {
	plural := n.Pluralize(sourceTable)
	if isOnlyFK {
		return plural
	}
	return n.ManyToOneFieldName(fkColumn) + "_" + plural
}

func (n *Namer) validateTypeAndSuffix(name string) string {
	if isReservedTypeName(name) {
		safeName := name + "_"
		n.logger.Warn("GraphQL name conflicts with reserved word, auto-suffixed",
			slog.String("original", name),
			slog.String("renamed", safeName),
		)
		return safeName
	}
	return name
}

// toPascalCase converts snake_case to PascalCase
func toPascalCase(s string) string {
	parts := strings.Split(s, "_")
	for i, part := range parts {
		if len(part) > 0 {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, "")
}

// toCamelCase converts snake_case to camelCase
func toCamelCase(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return lowerFirst(strings.Join(parts, ""))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
