package providers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	// Drivers selectable through the "driver" setting.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/systmms/secretsprovider/internal/logging"
	"github.com/systmms/secretsprovider/pkg/provider"
)

// TypeSQL is the registry key of SQLProvider.
const TypeSQL = "sql"

// DefaultSQLTable is read when no table is configured.
const DefaultSQLTable = "secrets"

// Stored kinds in the kind column.
const (
	sqlKindText   = "text"
	sqlKindBinary = "binary"
)

var sqlTablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// sqlDrivers maps accepted driver names to registered database/sql drivers.
var sqlDrivers = map[string]string{
	"postgresql": "postgres",
	"postgres":   "postgres",
	"mysql":      "mysql",
	"mariadb":    "mysql",
}

// SQLConfig holds the connection settings of an SQLProvider.
type SQLConfig struct {
	Driver   string
	DSN      string
	Host     string
	Port     string
	Database string
	Username string
	Password string
	SSLMode  string
	Table    string
}

// SQLProvider reads versioned secrets from a table shaped like
//
//	name TEXT, version TEXT, seq INTEGER, kind TEXT, value BYTES
//
// where seq orders the versions of a name and the highest seq is current.
type SQLProvider struct {
	name   string
	config SQLConfig
	db     *sql.DB
	logger *logging.Logger
}

// SQLOption configures an SQLProvider.
type SQLOption func(*SQLProvider)

// WithSQLDB uses db instead of opening a connection pool from the config.
func WithSQLDB(db *sql.DB) SQLOption {
	return func(p *SQLProvider) {
		p.db = db
	}
}

// WithSQLLogger sets the logger used for debug output.
func WithSQLLogger(logger *logging.Logger) SQLOption {
	return func(p *SQLProvider) {
		p.logger = logger
	}
}

// NewSQLProvider creates a provider over a postgres or mysql table. The pool
// is opened lazily; Validate checks connectivity.
func NewSQLProvider(name string, providerConfig map[string]interface{}, opts ...SQLOption) (*SQLProvider, error) {
	cfg, err := parseSQLConfig(providerConfig)
	if err != nil {
		return nil, err
	}

	p := &SQLProvider{name: name, config: cfg, logger: logging.Nop()}
	for _, opt := range opts {
		opt(p)
	}

	if p.db == nil {
		db, err := sql.Open(sqlDrivers[cfg.Driver], cfg.connectionString())
		if err != nil {
			return nil, provider.InitializationError("failed to open database", err)
		}
		p.db = db
	}
	return p, nil
}

func parseSQLConfig(config map[string]interface{}) (SQLConfig, error) {
	cfg := SQLConfig{
		Driver:   strings.ToLower(stringOption(config, "driver")),
		DSN:      stringOption(config, "dsn"),
		Host:     stringOption(config, "host"),
		Port:     stringOption(config, "port"),
		Database: stringOption(config, "database"),
		Username: stringOption(config, "username"),
		Password: stringOption(config, "password"),
		SSLMode:  stringOption(config, "sslmode"),
		Table:    stringOption(config, "table"),
	}
	if port, err := intOption(config, "port"); err == nil && port > 0 {
		cfg.Port = fmt.Sprint(port)
	}

	if _, ok := sqlDrivers[cfg.Driver]; !ok {
		return SQLConfig{}, initError(TypeSQL, "driver", cfg.Driver,
			"unsupported database driver",
			"Use one of: postgres, mysql")
	}
	if cfg.DSN == "" {
		for _, field := range []struct{ key, value string }{
			{"host", cfg.Host},
			{"database", cfg.Database},
			{"username", cfg.Username},
		} {
			if field.value == "" {
				return SQLConfig{}, initError(TypeSQL, field.key, nil,
					fmt.Sprintf("%s is required when dsn is not set", field.key),
					"Set dsn, or host, database and username")
			}
		}
	}
	if cfg.Table == "" {
		cfg.Table = DefaultSQLTable
	}
	if !sqlTablePattern.MatchString(cfg.Table) {
		return SQLConfig{}, initError(TypeSQL, "table", cfg.Table,
			"table must be a plain identifier, optionally schema qualified",
			"Use letters, digits and underscores, e.g. app.secrets")
	}
	return cfg, nil
}

// connectionString returns the configured DSN or builds one for the driver.
func (c SQLConfig) connectionString() string {
	if c.DSN != "" {
		return c.DSN
	}

	switch sqlDrivers[c.Driver] {
	case "postgres":
		parts := []string{
			fmt.Sprintf("host=%s", c.Host),
			fmt.Sprintf("dbname=%s", c.Database),
			fmt.Sprintf("user=%s", c.Username),
		}
		if c.Port != "" {
			parts = append(parts, fmt.Sprintf("port=%s", c.Port))
		}
		if c.Password != "" {
			parts = append(parts, fmt.Sprintf("password=%s", c.Password))
		}
		sslmode := c.SSLMode
		if sslmode == "" {
			sslmode = "require"
		}
		parts = append(parts, fmt.Sprintf("sslmode=%s", sslmode))
		return strings.Join(parts, " ")
	default:
		port := c.Port
		if port == "" {
			port = "3306"
		}
		// username:password@tcp(host:port)/database
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", c.Username, c.Password, c.Host, port, c.Database)
	}
}

// placeholder returns the n-th (1-based) bind parameter for the driver.
func (p *SQLProvider) placeholder(n int) string {
	if sqlDrivers[p.config.Driver] == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Name returns the provider name
func (p *SQLProvider) Name() string {
	return p.name
}

// Fetch reads the highest seq row of name, or the row whose version matches.
func (p *SQLProvider) Fetch(ctx context.Context, name, version string) (provider.Record, bool, error) {
	var (
		query string
		args  = []interface{}{name}
	)
	if version == "" {
		query = fmt.Sprintf("SELECT version, kind, value FROM %s WHERE name = %s ORDER BY seq DESC LIMIT 1",
			p.config.Table, p.placeholder(1))
	} else {
		query = fmt.Sprintf("SELECT version, kind, value FROM %s WHERE name = %s AND version = %s",
			p.config.Table, p.placeholder(1), p.placeholder(2))
		args = append(args, version)
	}

	p.logger.Debug("Fetching secret %s from table %s", name, p.config.Table)

	var (
		ver   sql.NullString
		kind  string
		value []byte
	)
	err := p.db.QueryRowContext(ctx, query, args...).Scan(&ver, &kind, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return provider.Record{}, false, nil
	}
	if err != nil {
		return provider.Record{}, false, provider.ProviderFailedError(name, err)
	}
	return sqlRecord(name, ver, kind, value), true, nil
}

// FetchBatch reads every version of names in one query and keeps the highest
// seq per name.
func (p *SQLProvider) FetchBatch(ctx context.Context, names []string) (map[string]provider.Record, error) {
	out := make(map[string]provider.Record, len(names))
	if len(names) == 0 {
		return out, nil
	}

	marks := make([]string, len(names))
	args := make([]interface{}, len(names))
	for i, n := range names {
		marks[i] = p.placeholder(i + 1)
		args[i] = n
	}
	query := fmt.Sprintf("SELECT name, version, kind, value FROM %s WHERE name IN (%s) ORDER BY name, seq",
		p.config.Table, strings.Join(marks, ", "))

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, provider.ProviderFailedError("", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			name  string
			ver   sql.NullString
			kind  string
			value []byte
		)
		if err := rows.Scan(&name, &ver, &kind, &value); err != nil {
			return nil, provider.ProviderFailedError("", err)
		}
		out[name] = sqlRecord(name, ver, kind, value)
	}
	if err := rows.Err(); err != nil {
		return nil, provider.ProviderFailedError("", err)
	}
	return out, nil
}

// ListVersionIDs returns the versions of name ordered by seq.
func (p *SQLProvider) ListVersionIDs(ctx context.Context, name string) ([]string, bool, error) {
	query := fmt.Sprintf("SELECT version FROM %s WHERE name = %s ORDER BY seq",
		p.config.Table, p.placeholder(1))

	rows, err := p.db.QueryContext(ctx, query, name)
	if err != nil {
		return nil, false, provider.ProviderFailedError(name, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, false, provider.ProviderFailedError(name, err)
		}
		ids = append(ids, sqlVersion(v))
	}
	if err := rows.Err(); err != nil {
		return nil, false, provider.ProviderFailedError(name, err)
	}
	if len(ids) == 0 {
		return nil, false, nil
	}
	return ids, true, nil
}

// Validate pings the database.
func (p *SQLProvider) Validate(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (p *SQLProvider) Close() error {
	return p.db.Close()
}

func sqlRecord(name string, version sql.NullString, kind string, value []byte) provider.Record {
	rec := provider.Record{Name: name, Version: sqlVersion(version)}
	switch strings.ToLower(kind) {
	case sqlKindText:
		rec.Value = provider.Text(string(value))
	case sqlKindBinary:
		rec.Value = provider.Binary(value)
	}
	return rec
}

func sqlVersion(v sql.NullString) string {
	if !v.Valid || v.String == "" {
		return provider.UnknownVersion
	}
	return v.String
}
