// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/auditmagic/pkg/config"
	"github.com/angelmondragon/auditmagic/pkg/db"
	"github.com/angelmondragon/auditmagic/pkg/migrate"
)

// New returns a client bound to a private in-memory sqlite database with the
// full schema applied. The database is closed when the test ends.
func New(t testing.TB) *db.Client {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	client, err := db.New(context.Background(), config.DBConfig{
		Driver: config.DriverSQLite,
		DSN:    "file:" + name + "_" + uuid.NewString() + "?mode=memory&cache=shared",
	}, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := migrate.Up(context.Background(), client); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return client
}
