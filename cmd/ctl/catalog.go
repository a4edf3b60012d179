package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/client/funnerlife"
	xredis "github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/redis"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/service/catalog"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/storage"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the local FunnerLife service catalog",
	}
	cmd.AddCommand(catalogSyncCmd())
	return cmd
}

func catalogSyncCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch the provider catalog and replace the local copy",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, store, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()

			client := funnerlife.New(cfg.FunnerLife.APIBaseURL, cfg.FunnerLife.APIKey,
				funnerlife.WithTimeout(cfg.FunnerLife.Timeout),
			)

			var opts []catalog.Option
			if cfg.Redis.URL != "" {
				rdb, err := xredis.Open(ctx, cfg.Redis.URL)
				if err != nil {
					return fmt.Errorf("failed to connect to redis: %w", err)
				}
				defer func() {
					_ = rdb.Close()
				}()
				opts = append(opts, catalog.WithCache(storage.NewRedisCatalogCache(rdb)))
			}

			manager := catalog.NewManager(store, client, catalog.Config{
				AllowedCategories: cfg.Catalog.AllowedCategories,
				TTL:               cfg.Catalog.TTL,
			}, opts...)

			result, err := manager.Sync(ctx, force)
			if err != nil {
				return err
			}

			if result.Skipped {
				fmt.Println("Catalog is fresh, nothing to do (use --force to sync anyway)")
				return nil
			}
			fmt.Printf("Fetched: %d\n", result.Fetched)
			fmt.Printf("Kept:    %d\n", result.Kept)
			fmt.Printf("Removed: %d\n", result.Removed)
			fmt.Printf("Synced:  %s\n", result.SyncedAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "sync even if the catalog is younger than CATALOG_TTL")
	return cmd
}
