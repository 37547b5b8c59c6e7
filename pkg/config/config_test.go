package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvDBPath, "inventory.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != AppEnvDev {
		t.Fatalf("expected App.Env to default to dev, got %q", cfg.App.Env)
	}
	if cfg.DB.Driver != DriverSQLite {
		t.Fatalf("expected sqlite driver, got %q", cfg.DB.Driver)
	}
	if cfg.DB.DSN != "inventory.db" {
		t.Fatalf("expected DSN to fall back to the db path, got %q", cfg.DB.DSN)
	}
	if cfg.DB.BusyTimeout != 5*time.Second {
		t.Fatalf("expected busy timeout 5s, got %v", cfg.DB.BusyTimeout)
	}
	if cfg.Ledger.QueryLimit != 1000 {
		t.Fatalf("expected ledger limit 1000, got %d", cfg.Ledger.QueryLimit)
	}
	if cfg.Search.HistorySize != 5 {
		t.Fatalf("expected history size 5, got %d", cfg.Search.HistorySize)
	}
	if !cfg.FeatureFlags.AutoMigrate {
		t.Fatal("expected auto migrate to default on")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv(EnvAppEnv, "prod")
	t.Setenv(EnvDBDriver, "SQLite3")
	t.Setenv(EnvDBDSN, "file:custom.db")
	t.Setenv(EnvLedgerLimit, "50")
	t.Setenv(EnvBusyTimeout, "250ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.App.Env != AppEnvProd || cfg.App.IsDev() {
		t.Fatalf("expected prod env, got %q", cfg.App.Env)
	}
	if got := cfg.App.ResolvedLogFormat(); got != "json" {
		t.Fatalf("expected json logs outside dev, got %q", got)
	}
	if cfg.DB.Driver != DriverSQLite3 {
		t.Fatalf("expected normalized sqlite3 driver, got %q", cfg.DB.Driver)
	}
	if cfg.DB.DSN != "file:custom.db" {
		t.Fatalf("expected explicit DSN to win, got %q", cfg.DB.DSN)
	}
	if cfg.Ledger.QueryLimit != 50 {
		t.Fatalf("expected ledger limit 50, got %d", cfg.Ledger.QueryLimit)
	}
	if cfg.DB.BusyTimeout != 250*time.Millisecond {
		t.Fatalf("expected busy timeout 250ms, got %v", cfg.DB.BusyTimeout)
	}
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	t.Setenv(EnvDBDriver, DriverPostgres)
	t.Setenv(EnvDBDSN, "")

	if _, err := Load(); err == nil {
		t.Fatal("expected postgres without DSN to return an error")
	}
}

func TestLoad_UnknownDriver(t *testing.T) {
	t.Setenv(EnvDBDriver, "oracle")

	if _, err := Load(); err == nil {
		t.Fatal("expected unsupported driver to return an error")
	}
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if got := devConfig.ResolvedLogFormat(); got != "console" {
		t.Fatalf("expected console logs in dev, got %q", got)
	}

	prodConfig := AppConfig{Env: "prod"}
	if prodConfig.IsDev() {
		t.Fatalf("expected IsDev false for %q", prodConfig.Env)
	}
	if got := prodConfig.ResolvedLogFormat(); got != "json" {
		t.Fatalf("expected json logs in prod, got %q", got)
	}

	explicit := AppConfig{Env: "dev", LogFormat: " JSON "}
	if got := explicit.ResolvedLogFormat(); got != "json" {
		t.Fatalf("expected explicit format to win, got %q", got)
	}
}

func TestDBConfigIsSQLite(t *testing.T) {
	if !(DBConfig{Driver: "sqlite"}).IsSQLite() {
		t.Fatal("sqlite should be recognized")
	}
	if !(DBConfig{Driver: " SQLITE3 "}).IsSQLite() {
		t.Fatal("sqlite3 should be recognized")
	}
	if (DBConfig{Driver: "postgres"}).IsSQLite() {
		t.Fatal("postgres is not sqlite")
	}
}
