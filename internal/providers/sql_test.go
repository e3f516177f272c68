package providers_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretsprovider/internal/providers"
	"github.com/systmms/secretsprovider/pkg/provider"
)

func newSQL(t *testing.T, driver string) (*providers.SQLProvider, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	p, err := providers.NewSQLProvider("sql-test", map[string]interface{}{
		"driver": driver,
		"dsn":    "unused",
		"table":  "app.secrets",
	}, providers.WithSQLDB(db))
	require.NoError(t, err)
	return p, mock
}

func TestSQLFetchCurrent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		driver string
		query  string
	}{
		{driver: "postgres", query: "SELECT version, kind, value FROM app.secrets WHERE name = $1 ORDER BY seq DESC LIMIT 1"},
		{driver: "mysql", query: "SELECT version, kind, value FROM app.secrets WHERE name = ? ORDER BY seq DESC LIMIT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			t.Parallel()

			p, mock := newSQL(t, tt.driver)
			mock.ExpectQuery(tt.query).
				WithArgs("db-password").
				WillReturnRows(sqlmock.NewRows([]string{"version", "kind", "value"}).
					AddRow("v2", "text", []byte("hunter2")))

			s, err := provider.Find(context.Background(), p, provider.String, "db-password")
			require.NoError(t, err)
			require.NotNil(t, s)
			assert.Equal(t, "v2", s.Version())
			value, err := s.Reveal()
			require.NoError(t, err)
			assert.Equal(t, "hunter2", value)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLFetchPinned(t *testing.T) {
	t.Parallel()

	p, mock := newSQL(t, "postgres")
	query := "SELECT version, kind, value FROM app.secrets WHERE name = $1 AND version = $2"
	mock.ExpectQuery(query).
		WithArgs("tls-key", "v1").
		WillReturnRows(sqlmock.NewRows([]string{"version", "kind", "value"}).
			AddRow("v1", "binary", []byte{0x00, 0xff}))
	mock.ExpectQuery(query).
		WithArgs("tls-key", "no-such-version").
		WillReturnRows(sqlmock.NewRows([]string{"version", "kind", "value"}))
	ctx := context.Background()

	s, err := provider.FindWithVersion(ctx, p, provider.Bytes, "tls-key", "v1")
	require.NoError(t, err)
	require.NotNil(t, s)
	data, err := s.Reveal()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff}, data)

	s, err = provider.FindWithVersion(ctx, p, provider.Bytes, "tls-key", "no-such-version")
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLFetchRowShapes(t *testing.T) {
	t.Parallel()

	query := "SELECT version, kind, value FROM app.secrets WHERE name = ? ORDER BY seq DESC LIMIT 1"

	t.Run("null version", func(t *testing.T) {
		t.Parallel()

		p, mock := newSQL(t, "mysql")
		mock.ExpectQuery(query).WithArgs("k").
			WillReturnRows(sqlmock.NewRows([]string{"version", "kind", "value"}).AddRow(nil, "TEXT", []byte("v")))

		s, err := provider.Find(context.Background(), p, provider.String, "k")
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, provider.UnknownVersion, s.Version())
	})

	t.Run("unrecognised kind", func(t *testing.T) {
		t.Parallel()

		p, mock := newSQL(t, "mysql")
		mock.ExpectQuery(query).WithArgs("k").
			WillReturnRows(sqlmock.NewRows([]string{"version", "kind", "value"}).AddRow("1", "json", []byte("{}")))

		_, err := provider.Find(context.Background(), p, provider.String, "k")
		assert.ErrorIs(t, err, provider.ErrUnknownType)
	})

	t.Run("kind mismatch", func(t *testing.T) {
		t.Parallel()

		p, mock := newSQL(t, "mysql")
		mock.ExpectQuery(query).WithArgs("k").
			WillReturnRows(sqlmock.NewRows([]string{"version", "kind", "value"}).AddRow("1", "binary", []byte{1}))

		_, err := provider.Find(context.Background(), p, provider.String, "k")
		assert.ErrorIs(t, err, provider.ErrInvalidType)
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()

		p, mock := newSQL(t, "mysql")
		mock.ExpectQuery(query).WithArgs("k").WillReturnError(sql.ErrNoRows)

		s, err := provider.Find(context.Background(), p, provider.String, "k")
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("database failure", func(t *testing.T) {
		t.Parallel()

		p, mock := newSQL(t, "mysql")
		cause := errors.New("connection reset by peer")
		mock.ExpectQuery(query).WithArgs("k").WillReturnError(cause)

		_, err := provider.Find(context.Background(), p, provider.String, "k")
		assert.ErrorIs(t, err, provider.ErrProviderFailed)
		assert.ErrorIs(t, err, cause)
	})
}

func TestSQLFetchBatch(t *testing.T) {
	t.Parallel()

	p, mock := newSQL(t, "postgres")
	mock.ExpectQuery("SELECT name, version, kind, value FROM app.secrets WHERE name IN ($1, $2, $3) ORDER BY name, seq").
		WithArgs("a", "b", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"name", "version", "kind", "value"}).
			AddRow("a", "1", "text", []byte("a-old")).
			AddRow("a", "2", "text", []byte("a-new")).
			AddRow("b", "1", "text", []byte("b")))

	got, err := provider.BatchFind(context.Background(), p, provider.String, []string{"a", "b", "a", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got["a"].Version())
	value, err := got["a"].Reveal()
	require.NoError(t, err)
	assert.Equal(t, "a-new", value)
	assert.NoError(t, mock.ExpectationsWereMet())

	empty, err := p.FetchBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLFetchBatchFailure(t *testing.T) {
	t.Parallel()

	p, mock := newSQL(t, "mysql")
	mock.ExpectQuery("SELECT name, version, kind, value FROM app.secrets WHERE name IN (?, ?) ORDER BY name, seq").
		WithArgs("a", "b").
		WillReturnError(errors.New("too many connections"))

	_, err := provider.BatchFind(context.Background(), p, provider.String, []string{"a", "b"})
	assert.ErrorIs(t, err, provider.ErrProviderFailed)
}

func TestSQLListVersionIDs(t *testing.T) {
	t.Parallel()

	p, mock := newSQL(t, "postgres")
	query := "SELECT version FROM app.secrets WHERE name = $1 ORDER BY seq"
	mock.ExpectQuery(query).WithArgs("rotated").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("v1").AddRow("v2").AddRow(nil))
	mock.ExpectQuery(query).WithArgs("never-created").
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	ctx := context.Background()

	ids, found, err := provider.ListVersionIDs(ctx, p, "rotated")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"v1", "v2", provider.UnknownVersion}, ids)

	_, found, err = provider.ListVersionIDs(ctx, p, "never-created")
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLValidateAndClose(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	p, err := providers.NewSQLProvider("sql", map[string]interface{}{"driver": "postgres", "dsn": "unused"},
		providers.WithSQLDB(db))
	require.NoError(t, err)

	mock.ExpectPing()
	assert.NoError(t, p.Validate(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("no route to host"))
	assert.ErrorContains(t, p.Validate(context.Background()), "failed to connect to database")

	mock.ExpectClose()
	assert.NoError(t, p.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  map[string]interface{}
		wantErr string
	}{
		{name: "missing driver", config: map[string]interface{}{"dsn": "x"}, wantErr: "unsupported database driver"},
		{name: "unknown driver", config: map[string]interface{}{"driver": "sqlite", "dsn": "x"}, wantErr: "unsupported database driver"},
		{name: "no dsn or host", config: map[string]interface{}{"driver": "postgres"}, wantErr: "host is required"},
		{
			name:    "no username",
			config:  map[string]interface{}{"driver": "mysql", "host": "db", "database": "app"},
			wantErr: "username is required",
		},
		{
			name:    "table injection",
			config:  map[string]interface{}{"driver": "postgres", "dsn": "x", "table": "secrets; DROP TABLE users"},
			wantErr: "table must be a plain identifier",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := providers.NewSQLProvider("sql", tt.config)
			require.Error(t, err)
			assert.ErrorIs(t, err, provider.ErrInitialization)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
