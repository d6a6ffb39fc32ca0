package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamesPrial/bed-occupancy-core/pkg/errors"
)

func noEnv(string) (string, bool) { return "", false }

func envOf(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadWithEnv("", noEnv)

	require.NoError(t, err)
	assert.Equal(t, DatabaseSQLite, cfg.DatabaseType)
	assert.Equal(t, "hospital_bed_forecasting.db", cfg.Sqlite.Path)
	assert.Equal(t, 5000, cfg.Sqlite.BusyTimeoutMs)
	assert.True(t, cfg.Sqlite.WALMode)
	assert.Equal(t, "bed_occupancy", cfg.Mongo.Collection)
	assert.Empty(t, cfg.Mongo.URL)
	assert.Equal(t, "0.0.0.0:8000", cfg.HTTP.Addr())
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_Success(t *testing.T) {
	path := writeConfig(t, `
databaseType: "MongoDB"
logLevel: "DEBUG"
logFormat: text
mongo:
  url: "mongodb://localhost:27017"
  database: "hospital"
http:
  port: 9000
  enableCors: true
admin:
  port: 9100
sqlite:
  walMode: false
`)

	cfg, err := LoadWithEnv(path, noEnv)

	require.NoError(t, err)
	assert.Equal(t, DatabaseMongoDB, cfg.DatabaseType)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URL)
	assert.Equal(t, "hospital", cfg.Mongo.Database)
	assert.Equal(t, "bed_occupancy", cfg.Mongo.Collection, "unset keys keep their defaults")
	assert.Equal(t, 9000, cfg.HTTP.Port)
	assert.True(t, cfg.HTTP.EnableCORS)
	assert.Equal(t, 9100, cfg.Admin.Port)
	assert.False(t, cfg.Sqlite.WALMode)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
databaseType: sqlite
sqlite:
  path: /var/data/from-file.db
`)

	cfg, err := LoadWithEnv(path, envOf(map[string]string{
		"DATABASE_TYPE":           "mongodb",
		"MONGODB_URL":             "mongodb://mongo:27017",
		"MONGODB_DB_NAME":         "beds",
		"MONGODB_CONNECT_TIMEOUT": "3",
		"SQLITE_DB_PATH":          "/tmp/env.db",
		"HTTP_PORT":               "8080",
		"METRICS_ENABLED":         "false",
		"LOG_LEVEL":               "warning",
	}))

	require.NoError(t, err)
	assert.Equal(t, DatabaseMongoDB, cfg.DatabaseType)
	assert.Equal(t, "mongodb://mongo:27017", cfg.Mongo.URL)
	assert.Equal(t, "beds", cfg.Mongo.Database)
	assert.Equal(t, 3, cfg.Mongo.ConnectTimeoutSeconds)
	assert.Equal(t, "/tmp/env.db", cfg.Sqlite.Path)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown database type",
			content: `databaseType: postgres`,
			wantErr: "databaseType must be one of [sqlite, mongodb, memory], got 'postgres'",
		},
		{
			name:    "mongodb without url",
			content: "databaseType: mongodb\nmongo:\n  database: beds\n",
			wantErr: "mongo.url is required when databaseType is mongodb",
		},
		{
			name:    "mongodb without database",
			env:     map[string]string{"DATABASE_TYPE": "mongodb", "MONGODB_URL": "mongodb://x"},
			wantErr: "mongo.database is required when databaseType is mongodb",
		},
		{
			name:    "empty sqlite path",
			content: "sqlite:\n  path: \"  \"\n",
			wantErr: "sqlite.path cannot be empty when databaseType is sqlite",
		},
		{
			name:    "invalid log level",
			content: `logLevel: verbose`,
			wantErr: "logLevel must be one of [debug, info, warn, error], got 'verbose'",
		},
		{
			name:    "invalid port",
			content: "http:\n  port: 70000\n",
			wantErr: "http.port must be between 0 and 65535, got 70000",
		},
		{
			name:    "non numeric env port",
			env:     map[string]string{"HTTP_PORT": "eighty"},
			wantErr: "HTTP_PORT must be an integer, got 'eighty'",
		},
		{
			name:    "non boolean env flag",
			env:     map[string]string{"SQLITE_WAL_MODE": "sometimes"},
			wantErr: "SQLITE_WAL_MODE must be a boolean, got 'sometimes'",
		},
		{
			name:    "blank database type env",
			env:     map[string]string{"DATABASE_TYPE": "  "},
			wantErr: "DATABASE_TYPE is set but empty",
		},
		{
			name:    "invalid yaml",
			content: `[invalid yaml - unclosed bracket`,
			wantErr: "cannot parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.content != "" {
				path = writeConfig(t, tt.content)
			}

			_, err := LoadWithEnv(path, envOf(tt.env))

			require.Error(t, err)
			assert.True(t, errors.IsConfiguration(err), "expected configuration error, got %v", err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := LoadWithEnv("non_existent_file.yaml", noEnv)
	assert.True(t, errors.IsConfiguration(err))
}

func TestValidate_EmptyDatabaseTypeMeansSQLite(t *testing.T) {
	cfg := Default()
	cfg.DatabaseType = ""
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DatabaseSQLite, cfg.DatabaseType)

	cfg.DatabaseType = " Memory "
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DatabaseMemory, cfg.DatabaseType)
}

func TestLoggingConfig(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"
	cfg.LogFormat = "text"
	cfg.Metrics.Enabled = false

	lc := cfg.LoggingConfig()
	assert.Equal(t, "debug", string(lc.Level))
	assert.Equal(t, "text", string(lc.Format))
	assert.False(t, lc.Metrics.Enabled)
	assert.NoError(t, lc.Validate())
}
