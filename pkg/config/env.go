package config

const EnvPrefix = "AUDITMAGIC"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DriverSQLite   = "sqlite"
	DriverSQLite3  = "sqlite3"
	DriverPostgres = "postgres"
)

const (
	EnvAppEnv       = "AUDITMAGIC_APP_ENV"
	EnvPort         = "AUDITMAGIC_APP_PORT"
	EnvLogLevel     = "AUDITMAGIC_LOG_LEVEL"
	EnvDBDriver     = "AUDITMAGIC_DB_DRIVER"
	EnvDBDSN        = "AUDITMAGIC_DB_DSN"
	EnvDBPath       = "AUDITMAGIC_DB"
	EnvAutoMigrate  = "AUDITMAGIC_AUTO_MIGRATE"
	EnvLedgerLimit  = "AUDITMAGIC_LEDGER_QUERY_LIMIT"
	EnvHistorySize  = "AUDITMAGIC_SEARCH_HISTORY_SIZE"
	EnvMetricsPath  = "AUDITMAGIC_METRICS_PATH"
	EnvBusyTimeout  = "AUDITMAGIC_DB_BUSY_TIMEOUT"
	EnvMaxOpenConns = "AUDITMAGIC_DB_MAX_OPEN_CONNS"
)
