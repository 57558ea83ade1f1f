package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"modelql/internal/sqlutil"
)

// Dialect returns the SQL dialect of the configured driver.
func (d *DatabaseConfig) Dialect() (sqlutil.Dialect, error) {
	return sqlutil.ParseDialect(d.Driver)
}

// DriverName returns the database/sql driver name registered for the
// configured dialect.
func (d *DatabaseConfig) DriverName() (string, error) {
	dialect, err := d.Dialect()
	if err != nil {
		return "", err
	}
	switch dialect {
	case sqlutil.Postgres:
		return "postgres", nil
	case sqlutil.SQLite:
		return "sqlite", nil
	default:
		return "mysql", nil
	}
}

// DSN returns the data source name for the configured driver. If
// ConnectionString is set, it is used directly (with parseTime enforced for
// mysql). Otherwise the DSN is built from discrete fields.
func (d *DatabaseConfig) DSN() string {
	dialect, err := d.Dialect()
	if err != nil {
		return d.ConnectionString
	}
	switch dialect {
	case sqlutil.Postgres:
		return d.postgresDSN()
	case sqlutil.SQLite:
		return d.sqliteDSN()
	default:
		return d.mysqlDSN()
	}
}

func (d *DatabaseConfig) mysqlDSN() string {
	if d.ConnectionString != "" {
		dsn := d.ConnectionString
		if !strings.Contains(dsn, "parseTime") {
			if strings.Contains(dsn, "?") {
				dsn += "&parseTime=true"
			} else {
				dsn += "?parseTime=true"
			}
		}
		return dsn
	}

	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	cfg.DBName = d.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

func (d *DatabaseConfig) postgresDSN() string {
	if d.ConnectionString != "" {
		return d.ConnectionString
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Database,
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}

func (d *DatabaseConfig) sqliteDSN() string {
	if d.ConnectionString != "" {
		return d.ConnectionString
	}
	if d.Database == "" {
		return ":memory:"
	}
	return d.Database
}

// EffectiveDatabaseName returns the schema name used for introspection. The
// name comes from database.database or, failing that, from the DSN.
func (d *DatabaseConfig) EffectiveDatabaseName() (string, error) {
	if name := strings.TrimSpace(d.Database); name != "" {
		return name, nil
	}
	if d.ConnectionString == "" {
		return "", fmt.Errorf("database name is not configured")
	}
	dialect, err := d.Dialect()
	if err != nil {
		return "", err
	}
	switch dialect {
	case sqlutil.MySQL:
		cfg, err := mysql.ParseDSN(d.ConnectionString)
		if err != nil {
			return "", fmt.Errorf("database.dsn is invalid: %w", err)
		}
		if cfg.DBName == "" {
			return "", fmt.Errorf("database.dsn does not name a database")
		}
		return cfg.DBName, nil
	case sqlutil.Postgres:
		u, err := url.Parse(d.ConnectionString)
		if err != nil {
			return "", fmt.Errorf("database.dsn is invalid: %w", err)
		}
		name := strings.TrimPrefix(u.Path, "/")
		if name == "" {
			return "", fmt.Errorf("database.dsn does not name a database")
		}
		return name, nil
	default:
		return "main", nil
	}
}
