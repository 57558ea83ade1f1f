package main

import (
	"testing"

	"modelql/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestReportValidation(t *testing.T) {
	tests := []struct {
		name    string
		result  *config.ValidationResult
		wantErr string
	}{
		{
			name:   "empty",
			result: &config.ValidationResult{},
		},
		{
			name: "warnings only",
			result: &config.ValidationResult{
				Warnings: []config.ValidationWarning{{Field: "schema.manifest", Message: "not set"}},
			},
		},
		{
			name: "errors fail",
			result: &config.ValidationResult{
				Errors: []config.ValidationError{
					{Field: "database.driver", Message: "unsupported"},
					{Field: "server.port", Message: "out of range"},
				},
			},
			wantErr: "configuration validation failed: 2 error(s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reportValidation(tt.result)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "modelql dev (none)", versionString())
}
