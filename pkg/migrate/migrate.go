package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/auditmagic/pkg/db"
)

const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var embedded embed.FS

// Source returns the migration files for dialect. An empty dir selects the
// embedded set; otherwise <dir>/<dialect> on disk is used.
func Source(dialect, dir string) (fs.FS, error) {
	if dialect != db.DialectSQLite && dialect != db.DialectPostgres {
		return nil, fmt.Errorf("unsupported migration dialect %q", dialect)
	}
	if dir == "" {
		return fs.Sub(embedded, path.Join("migrations", dialect))
	}
	return os.DirFS(path.Join(dir, dialect)), nil
}

func gooseDialect(dialect string) (goose.Dialect, error) {
	switch dialect {
	case db.DialectSQLite:
		return goose.DialectSQLite3, nil
	case db.DialectPostgres:
		return goose.DialectPostgres, nil
	}
	return "", fmt.Errorf("unsupported migration dialect %q", dialect)
}

// NewProvider builds a goose provider for the dialect's migrations.
func NewProvider(sqlDB *sql.DB, dialect, dir string) (*goose.Provider, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("db is required")
	}
	d, err := gooseDialect(dialect)
	if err != nil {
		return nil, err
	}
	fsys, err := Source(dialect, dir)
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(d, sqlDB, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return provider, nil
}

// Up applies every pending embedded migration to the client's database.
func Up(ctx context.Context, client *db.Client) error {
	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	return Run(ctx, sqlDB, client.Dialect(), "", "up")
}

// Run executes a goose command that requires a DB connection.
func Run(ctx context.Context, sqlDB *sql.DB, dialect, dir, command string, args ...string) error {
	provider, err := NewProvider(sqlDB, dialect, dir)
	if err != nil {
		return err
	}

	switch command {
	case "up":
		_, err = provider.Up(ctx)
	case "up-by-one":
		_, err = provider.UpByOne(ctx)
	case "down":
		_, err = provider.Down(ctx)
	case "status":
		var statuses []*goose.MigrationStatus
		statuses, err = provider.Status(ctx)
		for _, st := range statuses {
			fmt.Printf("%-10s %s\n", st.State, st.Source.Path)
		}
	case "current":
		var version int64
		version, err = provider.GetDBVersion(ctx)
		if err == nil {
			fmt.Println(version)
		}
	default:
		return fmt.Errorf("unknown goose command %q (args %v)", command, args)
	}
	if err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion migrates up/down to the requested version by comparing current DB version.
func MigrateToVersion(ctx context.Context, sqlDB *sql.DB, dialect, dir, targetVersion string) error {
	if targetVersion == "" {
		return fmt.Errorf("targetVersion is required")
	}

	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}

	provider, err := NewProvider(sqlDB, dialect, dir)
	if err != nil {
		return err
	}

	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil

	case current < target:
		if _, err := provider.UpTo(ctx, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
		return nil

	default:
		if _, err := provider.DownTo(ctx, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
		return nil
	}
}
