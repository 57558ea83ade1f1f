// Package introspection discovers table metadata from a MySQL-compatible
// information_schema (MySQL, TiDB) and turns it into model descriptors.
package introspection

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Column represents a database column
type Column struct {
	Name         string
	DataType     string
	ColumnType   string
	IsNullable   bool
	IsPrimaryKey bool
	EnumValues   []string
	Comment      string
}

// ForeignKey is one column of a foreign key constraint.
type ForeignKey struct {
	ColumnName       string // e.g., "first_id"
	ReferencedTable  string // e.g., "firsts"
	ReferencedColumn string // e.g., "id"
	ConstraintName   string
	OrdinalPosition  int
}

// Table represents a database table
type Table struct {
	Name        string
	Comment     string
	Columns     []Column
	ForeignKeys []ForeignKey
}

// PrimaryKey returns the primary key columns in column order.
func (t Table) PrimaryKey() []string {
	var out []string
	for _, col := range t.Columns {
		if col.IsPrimaryKey {
			out = append(out, col.Name)
		}
	}
	return out
}

// Schema represents the introspected database schema
type Schema struct {
	Tables []Table
}

// Queryer provides query access for schema introspection.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// IntrospectDatabaseContext reads the base tables of databaseName.
func IntrospectDatabaseContext(ctx context.Context, db Queryer, databaseName string) (*Schema, error) {
	ctx, span := startSpan(ctx, "introspection.build_schema",
		attribute.String("db.name", databaseName),
	)
	defer span.End()

	tables, err := getTables(ctx, db, databaseName)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}

	schema := &Schema{Tables: make([]Table, 0, len(tables))}
	for _, table := range tables {
		if table.Columns, err = getColumns(ctx, db, databaseName, table.Name); err != nil {
			recordSpanError(span, err)
			return nil, fmt.Errorf("failed to get columns for %s: %w", table.Name, err)
		}
		primaryKeys, err := getPrimaryKeys(ctx, db, databaseName, table.Name)
		if err != nil {
			recordSpanError(span, err)
			return nil, fmt.Errorf("failed to get primary keys for table %s: %w", table.Name, err)
		}
		if table.ForeignKeys, err = getForeignKeys(ctx, db, databaseName, table.Name); err != nil {
			recordSpanError(span, err)
			return nil, fmt.Errorf("failed to get foreign keys for table %s: %w", table.Name, err)
		}

		pk := make(map[string]bool, len(primaryKeys))
		for _, name := range primaryKeys {
			pk[name] = true
		}
		for i := range table.Columns {
			table.Columns[i].IsPrimaryKey = pk[table.Columns[i].Name]
		}
		schema.Tables = append(schema.Tables, table)
	}
	return schema, nil
}

func getTables(ctx context.Context, db Queryer, databaseName string) ([]Table, error) {
	ctx, span := startSpan(ctx, "introspection.get_tables",
		attribute.String("db.name", databaseName),
	)
	defer span.End()

	query := `
		SELECT TABLE_NAME, TABLE_COMMENT
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ?
		AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`

	rows, err := db.QueryContext(ctx, query, databaseName)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var tables []Table
	for rows.Next() {
		var table Table
		var comment sql.NullString
		if err := rows.Scan(&table.Name, &comment); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		table.Comment = strings.TrimSpace(comment.String)
		tables = append(tables, table)
	}
	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return tables, nil
}

func getColumns(ctx context.Context, db Queryer, databaseName, tableName string) ([]Column, error) {
	ctx, span := startSpan(ctx, "introspection.get_columns",
		attribute.String("db.name", databaseName),
		attribute.String("db.table", tableName),
	)
	defer span.End()

	query := `
		SELECT COLUMN_NAME, DATA_TYPE, COLUMN_TYPE, COLUMN_COMMENT, IS_NULLABLE
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`

	rows, err := db.QueryContext(ctx, query, databaseName, tableName)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var columns []Column
	for rows.Next() {
		var col Column
		var comment sql.NullString
		var isNullable string
		if err := rows.Scan(&col.Name, &col.DataType, &col.ColumnType, &comment, &isNullable); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		col.Comment = strings.TrimSpace(comment.String)
		col.IsNullable = strings.EqualFold(isNullable, "YES")
		if strings.EqualFold(col.DataType, "enum") {
			values, err := parseEnumValues(col.ColumnType)
			if err != nil {
				slog.Default().Warn("failed to parse enum values",
					slog.String("table", tableName),
					slog.String("column", col.Name),
					slog.String("type", col.ColumnType),
					slog.String("error", err.Error()),
				)
			} else {
				col.EnumValues = values
			}
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return columns, nil
}

func getPrimaryKeys(ctx context.Context, db Queryer, databaseName, tableName string) ([]string, error) {
	ctx, span := startSpan(ctx, "introspection.get_primary_keys",
		attribute.String("db.name", databaseName),
		attribute.String("db.table", tableName),
	)
	defer span.End()

	query := `
		SELECT COLUMN_NAME
		FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ?
		AND TABLE_NAME = ?
		AND CONSTRAINT_NAME = 'PRIMARY'
		ORDER BY ORDINAL_POSITION
	`

	rows, err := db.QueryContext(ctx, query, databaseName, tableName)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var primaryKeys []string
	for rows.Next() {
		var columnName string
		if err := rows.Scan(&columnName); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		primaryKeys = append(primaryKeys, columnName)
	}
	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return primaryKeys, nil
}

func getForeignKeys(ctx context.Context, db Queryer, databaseName, tableName string) ([]ForeignKey, error) {
	ctx, span := startSpan(ctx, "introspection.get_foreign_keys",
		attribute.String("db.name", databaseName),
		attribute.String("db.table", tableName),
	)
	defer span.End()

	query := `
		SELECT
			COLUMN_NAME,
			REFERENCED_TABLE_NAME,
			REFERENCED_COLUMN_NAME,
			CONSTRAINT_NAME,
			ORDINAL_POSITION
		FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ?
			AND TABLE_NAME = ?
			AND REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY CONSTRAINT_NAME, ORDINAL_POSITION
	`

	rows, err := db.QueryContext(ctx, query, databaseName, tableName)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var foreignKeys []ForeignKey
	for rows.Next() {
		var fk ForeignKey
		if err := rows.Scan(&fk.ColumnName, &fk.ReferencedTable,
			&fk.ReferencedColumn, &fk.ConstraintName, &fk.OrdinalPosition); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		foreignKeys = append(foreignKeys, fk)
	}
	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return foreignKeys, nil
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("modelql/introspection").Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
