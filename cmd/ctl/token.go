package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/oauth"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/storage"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect or install the Salla storefront token",
	}
	cmd.AddCommand(tokenShowCmd())
	cmd.AddCommand(tokenSetCmd())
	return cmd
}

func tokenShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the stored storefront token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			_, store, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()

			token, err := store.GetToken(ctx, storage.ProviderSalla)
			if errors.Is(err, storage.ErrNotFound) {
				fmt.Println("No storefront token stored; install the app or run `ctl token set`")
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to get token: %w", err)
			}

			fmt.Printf("Access Token:  %s\n", mask(token.AccessToken))
			if token.RefreshToken != "" {
				fmt.Printf("Refresh Token: %s\n", mask(token.RefreshToken))
			}
			fmt.Printf("Updated:       %s\n", token.UpdatedAt.Format(time.RFC3339))

			switch {
			case token.ExpiresAt.IsZero():
				fmt.Printf("Status:        Valid (no expiry reported)\n")
			case token.ExpiresAt.Before(time.Now()):
				fmt.Printf("Status:        EXPIRED\n")
			default:
				fmt.Printf("Status:        Valid (expires in %s)\n", time.Until(token.ExpiresAt).Round(time.Second))
			}
			return nil
		},
	}
}

func tokenSetCmd() *cobra.Command {
	var (
		access    string
		refresh   string
		expiresIn time.Duration
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Install a storefront token by hand",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, store, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()

			token := &oauth2.Token{AccessToken: access, RefreshToken: refresh}
			if expiresIn > 0 {
				token.Expiry = time.Now().Add(expiresIn)
			}

			source := oauth.NewStoreTokenSource(oauth.NewConfig(cfg.Salla), store)
			if err := source.Save(ctx, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			fmt.Println("Storefront token saved")
			return nil
		},
	}
	cmd.Flags().StringVar(&access, "access", "", "access token")
	cmd.Flags().StringVar(&refresh, "refresh", "", "refresh token")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "lifetime of the access token, e.g. 336h")
	_ = cmd.MarkFlagRequired("access")
	return cmd
}

// mask keeps the first and last four characters of a secret.
func mask(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "…" + s[len(s)-4:]
}
