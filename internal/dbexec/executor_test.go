package dbexec

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardExecutorNilDB(t *testing.T) {
	exec := NewStandardExecutor(nil)

	_, err := exec.QueryContext(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, sql.ErrConnDone)
	_, err = exec.ExecContext(context.Background(), "DELETE FROM t")
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestStandardExecutorQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id FROM firsts").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))

	rows, err := NewStandardExecutor(db).QueryContext(context.Background(), "SELECT id FROM firsts")
	require.NoError(t, err)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, cols)

	var ids []int
	for rows.Next() {
		var id int
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []int{1, 2}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoggingExecutor(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	exec := NewLoggingExecutor(NewStandardExecutor(db), logger)

	mock.ExpectExec("INSERT INTO firsts").WithArgs("shane").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO firsts").WillReturnError(errors.New("duplicate key"))

	_, err = exec.ExecContext(context.Background(), "INSERT INTO firsts (name) VALUES (?)", "shane")
	require.NoError(t, err)
	_, err = exec.ExecContext(context.Background(), "INSERT INTO firsts (name) VALUES (?)", "shane")
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "sql statement")
	assert.Contains(t, out, "sql statement failed")
	assert.Contains(t, out, "duplicate key")
	assert.NoError(t, mock.ExpectationsWereMet())
}
