package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"modelql/internal/naming"
	"modelql/internal/sqlutil"
	"modelql/internal/typemap"
)

// ValidationError represents a configuration validation error with context.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
	Hint    string
}

// ValidationResult contains the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error returns a combined error message if there are validation errors.
func (r *ValidationResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	var msgs []string
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for errors and returns validation results.
// It returns both errors (fatal) and warnings (non-fatal issues).
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}

	c.Database.validate(result)
	c.Server.validate(result)
	c.Schema.validate(&c.Database, result)
	c.Observability.validate(result)

	return result
}

func (d *DatabaseConfig) validate(result *ValidationResult) {
	dialect, err := d.Dialect()
	if err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.driver",
			Message: err.Error(),
			Hint:    "valid values are: mysql, postgres, sqlite",
		})
		return
	}

	// Port range validation (only for networked drivers without a DSN)
	if dialect != sqlutil.SQLite && d.ConnectionString == "" && (d.Port < 1 || d.Port > 65535) {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.port",
			Message: fmt.Sprintf("port %d is out of valid range (1-65535)", d.Port),
		})
	}

	if dialect == sqlutil.Postgres {
		validModes := map[string]bool{"": true, "disable": true, "allow": true, "prefer": true, "require": true, "verify-ca": true, "verify-full": true}
		if !validModes[d.SSLMode] {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "database.sslmode",
				Message: fmt.Sprintf("invalid sslmode %q", d.SSLMode),
				Hint:    "valid values are: disable, allow, prefer, require, verify-ca, verify-full",
			})
		}
	} else if d.SSLMode != "" {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "database.sslmode",
			Message: "sslmode only applies to the postgres driver",
		})
	}

	// Connection pool validation
	if d.Pool.MaxOpen < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.pool.max_open",
			Message: "max_open cannot be negative",
		})
	}
	if d.Pool.MaxIdle < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.pool.max_idle",
			Message: "max_idle cannot be negative",
		})
	}
	if d.Pool.MaxIdle > d.Pool.MaxOpen && d.Pool.MaxOpen > 0 {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "database.pool.max_idle",
			Message: "max_idle is greater than max_open",
			Hint:    "idle connections will be limited to max_open",
		})
	}

	// Connection retry validation
	if d.ConnectionTimeout > 0 && d.ConnectionRetryInterval > d.ConnectionTimeout {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "database.connection_retry_interval",
			Message: "connection_retry_interval is greater than connection_timeout",
			Hint:    "only one connection attempt will be made",
		})
	}
	if d.ConnectionRetryInterval < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.connection_retry_interval",
			Message: "connection_retry_interval cannot be negative",
		})
	}
	if d.ConnectionTimeout > 0 && d.ConnectionRetryInterval == 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.connection_retry_interval",
			Message: "connection_retry_interval must be greater than 0 when connection_timeout is set",
			Hint:    "set a retry interval such as 2s, or set connection_timeout to 0 to disable retries",
		})
	}
	if d.ConnectionTimeout < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.connection_timeout",
			Message: "connection_timeout cannot be negative",
		})
	}
}

func (s *ServerConfig) validate(result *ValidationResult) {
	if s.Port < 1 || s.Port > 65535 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port %d is out of valid range (1-65535)", s.Port),
		})
	}

	timeouts := map[string]int64{
		"server.read_timeout":                int64(s.ReadTimeout),
		"server.write_timeout":               int64(s.WriteTimeout),
		"server.idle_timeout":                int64(s.IdleTimeout),
		"server.shutdown_timeout":            int64(s.ShutdownTimeout),
		"server.health_check_timeout":        int64(s.HealthCheckTimeout),
		"server.schema_refresh_min_interval": int64(s.SchemaRefreshMinInterval),
	}
	for field, value := range timeouts {
		if value < 0 {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field,
				Message: "duration cannot be negative",
			})
		}
	}
}

func (s *SchemaConfig) validate(db *DatabaseConfig, result *ValidationResult) {
	dialect, _ := db.Dialect()
	if s.Introspect && dialect != "" && dialect != sqlutil.MySQL {
		if strings.TrimSpace(s.Manifest) == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "schema.manifest",
				Message: fmt.Sprintf("the %s driver cannot be introspected and no manifest is configured", dialect),
				Hint:    "set schema.manifest to a YAML model manifest",
			})
		} else {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Field:   "schema.introspect",
				Message: fmt.Sprintf("introspection is only supported for mysql; the %s schema comes from the manifest", dialect),
			})
		}
	}
	if !s.Introspect && strings.TrimSpace(s.Manifest) == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "schema.manifest",
			Message: "no model source configured",
			Hint:    "enable schema.introspect or set schema.manifest",
		})
	}

	known := typemap.New(nil)
	for native, scalar := range s.ScalarMappings {
		if strings.TrimSpace(native) == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "schema.scalar_mappings",
				Message: "native type name cannot be empty",
			})
			continue
		}
		if !known.KnownScalar(scalar) {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "schema.scalar_mappings",
				Message: fmt.Sprintf("type %q maps to unknown scalar %q", native, scalar),
				Hint:    "valid scalars are: String, Int, Float, Boolean, ID, Date, DateTime, JSON, BigInt",
			})
		}
	}

	validateNamingConfig(result, s.Naming)
}

func validateNamingConfig(result *ValidationResult, cfg naming.Config) {
	check := func(field string, overrides map[string]string) {
		for from, to := range overrides {
			if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
				result.Errors = append(result.Errors, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("override %q -> %q cannot have an empty side", from, to),
				})
			}
		}
	}
	check("schema.naming.plural_overrides", cfg.PluralOverrides)
	check("schema.naming.singular_overrides", cfg.SingularOverrides)
}

func (o *ObservabilityConfig) validate(result *ValidationResult) {
	// Log level validation
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[o.Logging.Level] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.logging.level",
			Message: fmt.Sprintf("invalid log level %q", o.Logging.Level),
			Hint:    "valid values are: debug, info, warn, error",
		})
	}

	// Log format validation
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[o.Logging.Format] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.logging.format",
			Message: fmt.Sprintf("invalid log format %q", o.Logging.Format),
			Hint:    "valid values are: json, text",
		})
	}

	if o.TraceSampleRatio < 0 || o.TraceSampleRatio > 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.trace_sample_ratio",
			Message: fmt.Sprintf("trace_sample_ratio %v is outside [0, 1]", o.TraceSampleRatio),
		})
	}

	o.OTLP.validate("observability.otlp", result)
	if o.Traces != nil {
		o.Traces.validate("observability.traces", result)
	}
	if o.Logs != nil {
		o.Logs.validate("observability.logs", result)
	}
}

func (o *OTLPConfig) validate(prefix string, result *ValidationResult) {
	validProtocols := map[string]bool{"": true, "grpc": true, "http/protobuf": true}
	if !validProtocols[o.Protocol] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   prefix + ".protocol",
			Message: fmt.Sprintf("invalid OTLP protocol %q", o.Protocol),
			Hint:    "valid values are: grpc, http/protobuf",
		})
	}

	if o.Protocol == "http/protobuf" && !validOTLPEndpoint(o.Endpoint) {
		result.Errors = append(result.Errors, ValidationError{
			Field:   prefix + ".endpoint",
			Message: fmt.Sprintf("invalid OTLP endpoint %q for http/protobuf", o.Endpoint),
			Hint:    "use host:port or a full URL",
		})
	}

	validCompressions := map[string]bool{"": true, "none": true, "gzip": true}
	if !validCompressions[o.Compression] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   prefix + ".compression",
			Message: fmt.Sprintf("invalid OTLP compression %q", o.Compression),
			Hint:    "valid values are: none, gzip",
		})
	}
}

func validOTLPEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	if strings.Contains(endpoint, "://") {
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return false
		}
		return parsed.Host != ""
	}
	_, _, err := net.SplitHostPort(endpoint)
	return err == nil
}
