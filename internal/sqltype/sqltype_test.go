package sqltype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNative(t *testing.T) {
	tests := []struct {
		sqlType string
		want    string
	}{
		{"INT", Integer},
		{"int(11) unsigned", Integer},
		{"smallint", Integer},
		{"BIGINT", BigInt},
		{"bigint(20)", BigInt},
		{"double", Float},
		{"DECIMAL(10,2)", Decimal},
		{"tinyint(1)", Boolean},
		{"tinyint(4)", Integer},
		{"boolean", Boolean},
		{"JSON", JSON},
		{"jsonb", JSON},
		{"date", Date},
		{"datetime(6)", DateTime},
		{"timestamp", Timestamp},
		{"time", Time},
		{"varchar(255)", String},
		{"enum('a','b')", String},
		{"longtext", Text},
		{"varbinary(16)", Binary},
		{"uuid", UUID},
		{"geometry", String},
	}

	for _, tt := range tests {
		t.Run(tt.sqlType, func(t *testing.T) {
			assert.Equal(t, tt.want, Native(tt.sqlType))
		})
	}
}

func TestCategories(t *testing.T) {
	assert.True(t, IsNumeric(Decimal))
	assert.False(t, IsNumeric(String))
	assert.True(t, IsTemporal(Timestamp))
	assert.False(t, IsTemporal(Integer))
}
