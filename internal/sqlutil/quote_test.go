package sqlutil

import (
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"users", "`users`"},
		{"select", "`select`"},
		{"first name", "`first name`"},
		{"user`data", "`user``data`"},
		{"", "``"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, QuoteIdentifier(tt.input))
		})
	}
}

func TestQuoteString(t *testing.T) {
	assert.Equal(t, "'it''s'", QuoteString("it's"))
	assert.Equal(t, "''", QuoteString(""))
}

func TestDialectQuote(t *testing.T) {
	assert.Equal(t, "`firsts`", MySQL.Quote("firsts"))
	assert.Equal(t, `"firsts"`, Postgres.Quote("firsts"))
	assert.Equal(t, `"a""b"`, SQLite.Quote(`a"b`))
}

func TestParseDialect(t *testing.T) {
	tests := []struct {
		driver string
		want   Dialect
	}{
		{"mysql", MySQL},
		{"TiDB", MySQL},
		{"postgres", Postgres},
		{"sqlite", SQLite},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			got, err := ParseDialect(tt.driver)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDialect("oracle")
	assert.Error(t, err)
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, sq.Dollar, Postgres.Placeholder())
	assert.Equal(t, sq.Question, MySQL.Placeholder())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "50!%!_off!!", EscapeLike("50%_off!"))
}
