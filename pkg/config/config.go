package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JamesPrial/bed-occupancy-core/pkg/errors"
	"github.com/JamesPrial/bed-occupancy-core/pkg/logging"
)

// Supported values of DatabaseType
const (
	DatabaseSQLite  = "sqlite"
	DatabaseMongoDB = "mongodb"
	DatabaseMemory  = "memory"
)

type Settings struct {
	DatabaseType string          `yaml:"databaseType"`
	LogLevel     string          `yaml:"logLevel"`
	LogFormat    string          `yaml:"logFormat"`
	Sqlite       SqliteSettings  `yaml:"sqlite"`
	Mongo        MongoSettings   `yaml:"mongo"`
	HTTP         HTTPSettings    `yaml:"http"`
	Admin        AdminSettings   `yaml:"admin"`
	Metrics      MetricsSettings `yaml:"metrics"`
}

type SqliteSettings struct {
	Path          string `yaml:"path"`
	WALMode       bool   `yaml:"walMode"`
	BusyTimeoutMs int    `yaml:"busyTimeoutMs"`
}

type MongoSettings struct {
	URL                   string `yaml:"url"`
	Database              string `yaml:"database"`
	Collection            string `yaml:"collection"`
	ConnectTimeoutSeconds int    `yaml:"connectTimeoutSeconds"`
}

type HTTPSettings struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	EnableCORS            bool   `yaml:"enableCors"`
	RequestTimeoutSeconds int    `yaml:"requestTimeoutSeconds"`
}

type AdminSettings struct {
	Port int `yaml:"port"`
}

type MetricsSettings struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the settings used when neither the file nor the
// environment says otherwise. Mongo connection parameters have no default.
func Default() *Settings {
	return &Settings{
		DatabaseType: DatabaseSQLite,
		LogLevel:     "info",
		LogFormat:    "json",
		Sqlite: SqliteSettings{
			Path:          "hospital_bed_forecasting.db",
			WALMode:       true,
			BusyTimeoutMs: 5000,
		},
		Mongo: MongoSettings{
			Collection:            "bed_occupancy",
			ConnectTimeoutSeconds: 10,
		},
		HTTP: HTTPSettings{
			Host:                  "0.0.0.0",
			Port:                  8000,
			RequestTimeoutSeconds: 30,
		},
		Metrics: MetricsSettings{Enabled: true},
	}
}

// Validate validates the configuration settings and normalizes enum values
// to lower case. Every failure is a CONFIGURATION_ERROR.
func (s *Settings) Validate() error {
	if s.LogLevel != "" {
		level, err := logging.ParseLevel(s.LogLevel)
		if err != nil {
			return errors.Configurationf("logLevel must be one of [debug, info, warn, error], got '%s'", s.LogLevel)
		}
		s.LogLevel = string(level)
	}

	if s.LogFormat != "" {
		format := strings.ToLower(strings.TrimSpace(s.LogFormat))
		if format != string(logging.LogFormatJSON) && format != string(logging.LogFormatText) {
			return errors.Configurationf("logFormat must be one of [json, text], got '%s'", s.LogFormat)
		}
		s.LogFormat = format
	}

	normalizedType := strings.ToLower(strings.TrimSpace(s.DatabaseType))
	switch normalizedType {
	case "":
		normalizedType = DatabaseSQLite
	case DatabaseSQLite, DatabaseMongoDB, DatabaseMemory:
	default:
		return errors.Configurationf("databaseType must be one of [sqlite, mongodb, memory], got '%s'", s.DatabaseType)
	}
	s.DatabaseType = normalizedType

	switch normalizedType {
	case DatabaseSQLite:
		if strings.TrimSpace(s.Sqlite.Path) == "" {
			return errors.Configuration("sqlite.path cannot be empty when databaseType is sqlite")
		}
		if s.Sqlite.BusyTimeoutMs < 0 {
			return errors.Configurationf("sqlite.busyTimeoutMs must be non-negative, got %d", s.Sqlite.BusyTimeoutMs)
		}
	case DatabaseMongoDB:
		if strings.TrimSpace(s.Mongo.URL) == "" {
			return errors.Configuration("mongo.url is required when databaseType is mongodb")
		}
		if strings.TrimSpace(s.Mongo.Database) == "" {
			return errors.Configuration("mongo.database is required when databaseType is mongodb")
		}
		if strings.TrimSpace(s.Mongo.Collection) == "" {
			return errors.Configuration("mongo.collection cannot be empty")
		}
		if s.Mongo.ConnectTimeoutSeconds <= 0 {
			return errors.Configurationf("mongo.connectTimeoutSeconds must be positive, got %d", s.Mongo.ConnectTimeoutSeconds)
		}
	}

	if s.HTTP.Port < 0 || s.HTTP.Port > 65535 {
		return errors.Configurationf("http.port must be between 0 and 65535, got %d", s.HTTP.Port)
	}
	if s.Admin.Port < 0 || s.Admin.Port > 65535 {
		return errors.Configurationf("admin.port must be between 0 and 65535, got %d", s.Admin.Port)
	}
	if s.HTTP.RequestTimeoutSeconds < 0 {
		return errors.Configurationf("http.requestTimeoutSeconds must be non-negative, got %d", s.HTTP.RequestTimeoutSeconds)
	}

	return nil
}

// Addr returns the host:port the API server listens on
func (h HTTPSettings) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// LoggingConfig translates the settings into a logging factory config
func (s *Settings) LoggingConfig() *logging.Config {
	cfg := logging.DefaultConfig()
	if s.LogLevel != "" {
		cfg.Level = logging.LogLevel(s.LogLevel)
	}
	if s.LogFormat != "" {
		cfg.Format = logging.LogFormat(s.LogFormat)
	}
	cfg.Metrics.Enabled = s.Metrics.Enabled
	return cfg
}

// Load reads the YAML file at path (skipped when path is empty) over the
// defaults, applies environment overrides and validates the result.
func Load(path string) (*Settings, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment lookup
func LoadWithEnv(path string, lookup func(string) (string, bool)) (*Settings, error) {
	settings := Default()

	if path != "" {
		bytes, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeConfiguration, "cannot read config file %s", path)
		}
		if err := yaml.Unmarshal(bytes, settings); err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeConfiguration, "cannot parse config file %s", path)
		}
	}

	if err := settings.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// applyEnv overlays the environment variables the deployment uses
func (s *Settings) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("DATABASE_TYPE"); ok && strings.TrimSpace(v) == "" {
		return errors.Configuration("DATABASE_TYPE is set but empty; unset it to use sqlite or name a backend")
	}

	strVars := map[string]*string{
		"DATABASE_TYPE":      &s.DatabaseType,
		"SQLITE_DB_PATH":     &s.Sqlite.Path,
		"MONGODB_URL":        &s.Mongo.URL,
		"MONGODB_DB_NAME":    &s.Mongo.Database,
		"MONGODB_COLLECTION": &s.Mongo.Collection,
		"HTTP_HOST":          &s.HTTP.Host,
		"LOG_LEVEL":          &s.LogLevel,
		"LOG_FORMAT":         &s.LogFormat,
	}
	for name, target := range strVars {
		if v, ok := lookup(name); ok {
			*target = v
		}
	}

	intVars := map[string]*int{
		"SQLITE_BUSY_TIMEOUT_MS":  &s.Sqlite.BusyTimeoutMs,
		"MONGODB_CONNECT_TIMEOUT": &s.Mongo.ConnectTimeoutSeconds,
		"HTTP_PORT":               &s.HTTP.Port,
		"ADMIN_PORT":              &s.Admin.Port,
	}
	for name, target := range intVars {
		v, ok := lookup(name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.Configurationf("%s must be an integer, got '%s'", name, v)
		}
		*target = n
	}

	boolVars := map[string]*bool{
		"SQLITE_WAL_MODE":  &s.Sqlite.WALMode,
		"HTTP_ENABLE_CORS": &s.HTTP.EnableCORS,
		"METRICS_ENABLED":  &s.Metrics.Enabled,
	}
	for name, target := range boolVars {
		v, ok := lookup(name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return errors.Configurationf("%s must be a boolean, got '%s'", name, v)
		}
		*target = b
	}

	return nil
}
