package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/content"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/kvstore"
	"github.com/AmoghRisbud/TCC-frontend-sub000/pkg/client"
)

var remoteURL string

func init() {
	migrateCmd.Flags().StringVar(&remoteURL, "remote", "", "run the migration on a running site instead of the local store (session from TCC_SESSION_COOKIE)")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy markdown content into the store",
	Long: `Migrate reads every markdown content directory and writes each
non-empty type to the store, replacing what is there. Empty types are
left untouched.

With --remote the running site performs the migration against its own
content directory and store.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if remoteURL != "" {
			c, err := client.New(client.Config{BaseURL: remoteURL, SessionCookie: os.Getenv("TCC_SESSION_COOKIE")})
			if err != nil {
				return err
			}
			result, err := c.Migrate(ctx)
			if err != nil {
				return err
			}
			printCounts(cmd, result.Counts)
			return nil
		}

		st, err := kvstore.Open(ctx, cfg.StoreURL)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer st.Close()

		publisher, closePublisher := openPublisher(cfg.NATSURL)
		defer closePublisher()

		counts, err := content.NewCatalog(st, cfg.ContentDir, publisher).Migrate(ctx)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		printCounts(cmd, counts)
		log.Info().Str("component", "main").Msg("migration complete")
		return nil
	},
}

func printCounts(cmd *cobra.Command, counts map[string]int) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(cmd.OutOrStdout(), "%-14s %d\n", name, counts[name])
	}
}
