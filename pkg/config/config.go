package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	FeatureFlags FeatureFlagsConfig
	Ledger       LedgerConfig
	Search       SearchConfig
	Metrics      MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"AUDITMAGIC_APP_ENV" default:"dev"`
	Port         string `envconfig:"AUDITMAGIC_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"AUDITMAGIC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AUDITMAGIC_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"AUDITMAGIC_LOG_FORMAT"`

	// CORSOrigins lists browser origins allowed to call the HTTP API.
	CORSOrigins []string `envconfig:"AUDITMAGIC_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

// ResolvedLogFormat is the explicit log format, else console in dev and JSON
// everywhere else.
func (a AppConfig) ResolvedLogFormat() string {
	if format := strings.ToLower(strings.TrimSpace(a.LogFormat)); format != "" {
		return format
	}
	if a.IsDev() {
		return "console"
	}
	return "json"
}

type DBConfig struct {
	Driver string `envconfig:"AUDITMAGIC_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"AUDITMAGIC_DB_DSN"`
	// Path is the sqlite database file used when no DSN is given.
	Path string `envconfig:"AUDITMAGIC_DB" default:"auditmagic.db"`

	BusyTimeout     time.Duration `envconfig:"AUDITMAGIC_DB_BUSY_TIMEOUT" default:"5s"`
	MaxOpenConns    int           `envconfig:"AUDITMAGIC_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"AUDITMAGIC_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"AUDITMAGIC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AUDITMAGIC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is one of the sqlite drivers.
func (db DBConfig) IsSQLite() bool {
	switch strings.ToLower(strings.TrimSpace(db.Driver)) {
	case DriverSQLite, DriverSQLite3:
		return true
	}
	return false
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"AUDITMAGIC_AUTO_MIGRATE" default:"true"`
}

type LedgerConfig struct {
	QueryLimit int `envconfig:"AUDITMAGIC_LEDGER_QUERY_LIMIT" default:"1000"`
}

type SearchConfig struct {
	HistorySize     int `envconfig:"AUDITMAGIC_SEARCH_HISTORY_SIZE" default:"5"`
	ResultLimit     int `envconfig:"AUDITMAGIC_SEARCH_RESULT_LIMIT" default:"200"`
	SuggestionLimit int `envconfig:"AUDITMAGIC_SEARCH_SUGGESTION_LIMIT" default:"10"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"AUDITMAGIC_METRICS_ENABLED" default:"true"`
	Path    string `envconfig:"AUDITMAGIC_METRICS_PATH" default:"/metrics"`
}

func (db *DBConfig) ensureDSN() error {
	driver := strings.ToLower(strings.TrimSpace(db.Driver))
	switch driver {
	case DriverSQLite, DriverSQLite3:
	case DriverPostgres:
		if db.DSN == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvDBDSN, EnvDBDriver, DriverPostgres)
		}
	default:
		return fmt.Errorf("unsupported %s %q", EnvDBDriver, db.Driver)
	}
	db.Driver = driver

	if db.DSN != "" {
		return nil
	}
	if strings.TrimSpace(db.Path) == "" {
		return fmt.Errorf("either %s or %s is required", EnvDBDSN, EnvDBPath)
	}
	db.DSN = db.Path
	return nil
}
