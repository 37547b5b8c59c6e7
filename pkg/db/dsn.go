package db

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/auditmagic/pkg/config"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

const defaultBusyTimeout = 5 * time.Second

// SQLiteDSN decorates a sqlite DSN with the connection options the store
// relies on: foreign keys on, a busy timeout, and immediate transactions.
// Options already present in dsn are left untouched.
//
// The option syntax differs between modernc ("sqlite") and mattn ("sqlite3").
func SQLiteDSN(driver, dsn string, busyTimeout time.Duration) string {
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}

	base, rawQuery, _ := strings.Cut(dsn, "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		query = url.Values{}
	}

	setDefault := func(key, value string) {
		if _, ok := query[key]; !ok {
			query.Set(key, value)
		}
	}

	switch driver {
	case config.DriverSQLite3:
		setDefault("_foreign_keys", "1")
		setDefault("_busy_timeout", fmt.Sprint(busyTimeout.Milliseconds()))
		setDefault("_txlock", "immediate")
	default:
		pragmas := query["_pragma"]
		if !hasPragma(pragmas, "foreign_keys") {
			pragmas = append(pragmas, "foreign_keys(1)")
		}
		if !hasPragma(pragmas, "busy_timeout") {
			pragmas = append(pragmas, fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
		}
		query["_pragma"] = pragmas
		setDefault("_txlock", "immediate")
		setDefault("_time_format", "sqlite")
	}

	return base + "?" + query.Encode()
}

func hasPragma(pragmas []string, name string) bool {
	for _, p := range pragmas {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(p)), name) {
			return true
		}
	}
	return false
}

// IsMemoryDSN reports whether the sqlite DSN points at an in-memory database.
func IsMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
