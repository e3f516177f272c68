package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLConnectionString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config map[string]interface{}
		want   string
	}{
		{
			name:   "explicit dsn wins",
			config: map[string]interface{}{"driver": "postgres", "dsn": "postgres://u@h/db", "host": "ignored"},
			want:   "postgres://u@h/db",
		},
		{
			name: "postgres defaults to sslmode require",
			config: map[string]interface{}{
				"driver": "postgresql", "host": "db.internal", "database": "app", "username": "reader",
			},
			want: "host=db.internal dbname=app user=reader sslmode=require",
		},
		{
			name: "postgres with every field",
			config: map[string]interface{}{
				"driver": "postgres", "host": "db", "port": 6543, "database": "app",
				"username": "reader", "password": "pw", "sslmode": "disable",
			},
			want: "host=db dbname=app user=reader port=6543 password=pw sslmode=disable",
		},
		{
			name: "mysql default port",
			config: map[string]interface{}{
				"driver": "mariadb", "host": "db", "database": "app", "username": "reader", "password": "pw",
			},
			want: "reader:pw@tcp(db:3306)/app",
		},
		{
			name: "mysql port as string",
			config: map[string]interface{}{
				"driver": "mysql", "host": "db", "port": "3307", "database": "app", "username": "reader",
			},
			want: "reader:@tcp(db:3307)/app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := parseSQLConfig(tt.config)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.connectionString())
			assert.Equal(t, DefaultSQLTable, cfg.Table)
		})
	}
}

func TestSQLPlaceholders(t *testing.T) {
	t.Parallel()

	pg := &SQLProvider{config: SQLConfig{Driver: "postgresql"}}
	my := &SQLProvider{config: SQLConfig{Driver: "mariadb"}}

	assert.Equal(t, "$3", pg.placeholder(3))
	assert.Equal(t, "?", my.placeholder(3))
}
