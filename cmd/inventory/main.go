package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/auditmagic/internal/app"
	"github.com/angelmondragon/auditmagic/pkg/config"
	"github.com/angelmondragon/auditmagic/pkg/db"
	"github.com/angelmondragon/auditmagic/pkg/logger"
	"github.com/angelmondragon/auditmagic/pkg/migrate"
)

func main() {
	_ = godotenv.Load()

	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := newRootCommand(openStore)
	if err := root.Run(context.Background(), args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openStore connects to the configured database and applies pending
// migrations. Logs go to stderr so command output stays parseable.
func openStore(ctx context.Context) (*app.Services, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "inventory",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.ResolvedLogFormat(),
		Output:      os.Stderr,
	})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.MaybeAutoRun(ctx, cfg, logg, client); err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	svcs, err := app.NewServices(cfg, logg, client, nil)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return svcs, client.Close, nil
}
