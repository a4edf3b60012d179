package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/config"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/db"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/storage"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/version"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xslog"
)

func main() {
	_ = godotenv.Load()

	logger := xslog.NewLoggerFromEnv(os.Stderr)
	slog.SetDefault(logger)

	rootCmd := &cobra.Command{
		Use:   "ctl",
		Short: "Operator commands for the Salla FunnerLife integration",
	}
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(tokenCmd())

	ctx := xslog.WithLogger(context.Background(), logger)
	if err := fang.Execute(ctx, rootCmd,
		fang.WithVersion(version.Get()),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}

// openStore reads the configuration and opens the store it names,
// applying pending migrations.
func openStore(ctx context.Context) (config.Config, storage.Store, []string, error) {
	cfg, err := config.Read()
	if err != nil {
		return config.Config{}, nil, nil, err
	}

	store, applied, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return cfg, store, applied, nil
}
