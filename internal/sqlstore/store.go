// Package sqlstore implements the record store over a relational database.
// Queries are composed with squirrel and executed through dbexec so that the
// same code runs against MySQL/TiDB, Postgres and SQLite.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"modelql/internal/dbexec"
	"modelql/internal/model"
	"modelql/internal/sqlutil"
	"modelql/internal/store"
)

// Store reads and writes the records of catalogued models.
type Store struct {
	exec    dbexec.QueryExecutor
	dialect sqlutil.Dialect
	catalog *model.Catalog
}

var (
	_ store.Source = (*Store)(nil)
	_ store.Writer = (*Store)(nil)
)

// New creates a store. Model names passed to From and Insert are descriptor
// names, which double as table names.
func New(exec dbexec.QueryExecutor, dialect sqlutil.Dialect, catalog *model.Catalog) *Store {
	return &Store{exec: exec, dialect: dialect, catalog: catalog}
}

// Dialect returns the SQL dialect of the store.
func (s *Store) Dialect() sqlutil.Dialect {
	return s.dialect
}

// From opens a query over every record of a model.
func (s *Store) From(name string) (store.Query, error) {
	d, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	return s.newQuery(d), nil
}

// Transformer returns the filter/sort/grouping transforms of the store.
func (s *Store) Transformer() store.Transformer {
	return transformer{s: s}
}

func (s *Store) lookup(name string) (*model.Descriptor, error) {
	d, ok := s.catalog.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown model %q", name)
	}
	return d, nil
}

func (s *Store) quote(name string) string {
	return s.dialect.Quote(name)
}

func (s *Store) qualify(alias, attr string) string {
	return alias + "." + s.quote(attr)
}

// Insert stores a record and returns it as read back from the database.
// Enum attributes accept their keys and are stored as the mapped values.
func (s *Store) Insert(ctx context.Context, name string, values map[string]interface{}) (store.Record, error) {
	d, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	attrs := make([]string, 0, len(values))
	for attr := range values {
		if _, ok := d.Column(attr); !ok {
			return nil, fmt.Errorf("insert %s: unknown column %q", d.Name, attr)
		}
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	cols := make([]string, len(attrs))
	vals := make([]interface{}, len(attrs))
	for i, attr := range attrs {
		cols[i] = s.quote(attr)
		vals[i] = storedValue(d, attr, values[attr])
	}

	query, args, err := s.insertSQL(d, cols, vals)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", d.Name, err)
	}

	key := make(map[string]interface{}, len(d.PrimaryKey))
	for _, pk := range d.PrimaryKey {
		if v, ok := values[pk]; ok && v != nil {
			key[pk] = v
		}
	}

	if s.dialect == sqlutil.Postgres && len(d.PrimaryKey) > 0 {
		rows, err := s.exec.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("insert %s: %w", d.Name, err)
		}
		returned, err := scanRecords(rows)
		if err != nil {
			return nil, fmt.Errorf("insert %s: %w", d.Name, err)
		}
		if len(returned) == 1 {
			for _, pk := range d.PrimaryKey {
				key[pk] = returned[0][pk]
			}
		}
	} else {
		res, err := s.exec.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("insert %s: %w", d.Name, err)
		}
		if len(d.PrimaryKey) == 1 {
			if _, given := key[d.PrimaryKey[0]]; !given {
				id, err := res.LastInsertId()
				if err != nil {
					return nil, fmt.Errorf("insert %s: generated key: %w", d.Name, err)
				}
				key[d.PrimaryKey[0]] = id
			}
		}
	}

	if len(key) == 0 || len(key) != len(d.PrimaryKey) {
		return store.Record(copyValues(values)), nil
	}
	return s.newQuery(d).Where(key).First(ctx)
}

func (s *Store) insertSQL(d *model.Descriptor, cols []string, vals []interface{}) (string, []interface{}, error) {
	table := s.quote(d.Name)
	returning := ""
	if s.dialect == sqlutil.Postgres && len(d.PrimaryKey) > 0 {
		quoted := make([]string, len(d.PrimaryKey))
		for i, pk := range d.PrimaryKey {
			quoted[i] = s.quote(pk)
		}
		returning = "RETURNING " + strings.Join(quoted, ", ")
	}

	if len(cols) == 0 {
		stmt := "INSERT INTO " + table + " DEFAULT VALUES"
		if s.dialect == sqlutil.MySQL {
			stmt = "INSERT INTO " + table + " () VALUES ()"
		}
		if returning != "" {
			stmt += " " + returning
		}
		return stmt, nil, nil
	}

	b := sq.Insert(table).Columns(cols...).Values(vals...).PlaceholderFormat(s.dialect.Placeholder())
	if returning != "" {
		b = b.Suffix(returning)
	}
	return b.ToSql()
}

func copyValues(values map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

// storedValue maps enum keys onto stored values. Lists map element-wise and
// anything that is not a known key passes through.
func storedValue(d *model.Descriptor, attr string, value interface{}) interface{} {
	if b, ok := value.([]byte); ok {
		value = string(b)
	}
	values, ok := d.Enums[attr]
	if !ok {
		return value
	}
	switch typed := value.(type) {
	case string:
		if stored, ok := values.ValueFor(typed); ok {
			return stored
		}
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, v := range typed {
			out[i] = storedValue(d, attr, v)
		}
		return out
	}
	return value
}

func scanRecords(rows dbexec.Rows) ([]store.Record, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []store.Record
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(store.Record, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				rec[col] = string(b)
				continue
			}
			rec[col] = values[i]
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func unsupported(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), store.ErrUnsupported)
}

var errNotSQLQuery = errors.New("query was not opened by sqlstore")
