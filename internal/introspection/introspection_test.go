package introspection

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntrospectDatabaseContext(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM INFORMATION_SCHEMA.TABLES").
		WithArgs("app").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "TABLE_COMMENT"}).
			AddRow("posts", "blog posts").
			AddRow("users", nil))

	mock.ExpectQuery("FROM INFORMATION_SCHEMA.COLUMNS").
		WithArgs("app", "posts").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME", "DATA_TYPE", "COLUMN_TYPE", "COLUMN_COMMENT", "IS_NULLABLE"}).
			AddRow("id", "bigint", "bigint(20)", "", "NO").
			AddRow("author_id", "bigint", "bigint(20)", "", "YES").
			AddRow("state", "enum", "enum('draft','live')", "publication state", "NO"))
	mock.ExpectQuery("CONSTRAINT_NAME = 'PRIMARY'").
		WithArgs("app", "posts").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}).AddRow("id"))
	mock.ExpectQuery("REFERENCED_TABLE_NAME IS NOT NULL").
		WithArgs("app", "posts").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME", "CONSTRAINT_NAME", "ORDINAL_POSITION"}).
			AddRow("author_id", "users", "id", "posts_ibfk_1", 1))

	mock.ExpectQuery("FROM INFORMATION_SCHEMA.COLUMNS").
		WithArgs("app", "users").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME", "DATA_TYPE", "COLUMN_TYPE", "COLUMN_COMMENT", "IS_NULLABLE"}).
			AddRow("id", "bigint", "bigint(20)", "", "NO").
			AddRow("name", "varchar", "varchar(255)", nil, "NO"))
	mock.ExpectQuery("CONSTRAINT_NAME = 'PRIMARY'").
		WithArgs("app", "users").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}).AddRow("id"))
	mock.ExpectQuery("REFERENCED_TABLE_NAME IS NOT NULL").
		WithArgs("app", "users").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME", "CONSTRAINT_NAME", "ORDINAL_POSITION"}))

	schema, err := IntrospectDatabaseContext(context.Background(), db, "app")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, schema.Tables, 2)
	posts := schema.Tables[0]
	assert.Equal(t, "posts", posts.Name)
	assert.Equal(t, "blog posts", posts.Comment)
	assert.Equal(t, []string{"id"}, posts.PrimaryKey())
	require.Len(t, posts.Columns, 3)
	assert.True(t, posts.Columns[1].IsNullable)
	assert.Equal(t, []string{"draft", "live"}, posts.Columns[2].EnumValues)
	assert.Equal(t, "publication state", posts.Columns[2].Comment)
	require.Len(t, posts.ForeignKeys, 1)
	assert.Equal(t, "users", posts.ForeignKeys[0].ReferencedTable)
}

func TestIntrospectDatabaseContextError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM INFORMATION_SCHEMA.TABLES").WillReturnError(errors.New("access denied"))

	_, err = IntrospectDatabaseContext(context.Background(), db, "app")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get tables")
}
