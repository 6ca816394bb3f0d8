// Package cmd implements the stimmo CLI commands.
package cmd

import (
	"fmt"
	"strings"

	"github.com/sgdevreal/stimmo/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	_ = config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.Path())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [Datastore]")
	fmt.Printf("    Driver:  %s\n", cfg.Datastore.Driver)
	fmt.Printf("    DSN:     %s\n", cfg.Datastore.DSN)
	if tok := config.GetToken(cfg); tok != "" {
		fmt.Printf("    Token:   %s\n", maskToken(tok))
	} else {
		fmt.Printf("    Token:   not configured (set %s)\n", tokenEnvName(cfg))
	}
	fmt.Printf("    Timeout: %s\n", cfg.Datastore.ConnectTimeout())
	fmt.Println()

	fmt.Println("  [Cache]")
	fmt.Printf("    TTL:       %s\n", cfg.Cache.TTL())
	fmt.Printf("    Snapshots: %v\n", !cfg.Cache.NoSnapshot)
	fmt.Println()

	fmt.Println("  [Trend]")
	fmt.Printf("    Table:         %s\n", cfg.Trend.Table)
	fmt.Printf("    Cutoff:        %s\n", orNone(cfg.Trend.Cutoff))
	fmt.Printf("    Postal codes:  %s\n", orNone(strings.Join(cfg.Trend.DefaultPostalCodes, ", ")))
	fmt.Printf("    Bedrooms:      %s\n", orNone(strings.Join(cfg.Trend.DefaultBedrooms, ", ")))
	fmt.Println()

	fmt.Println("  [Explore]")
	fmt.Printf("    Table:   %s\n", cfg.Explore.Table)
	fmt.Printf("    Cutoff:  %s\n", orNone(cfg.Explore.Cutoff))
	fmt.Printf("    Ignored: %d columns\n", len(cfg.Explore.Ignore))
	fmt.Println()

	fmt.Println("  [Listings]")
	fmt.Printf("    Table:      %s\n", cfg.Listings.Table)
	fmt.Printf("    URL prefix: %s\n", cfg.Listings.URLPrefix)
	fmt.Printf("    Sample:     %d shown of %d fetched\n", cfg.Listings.DisplayLimit, cfg.Listings.FetchLimit)
	fmt.Println()

	fmt.Println("  [Server]")
	fmt.Printf("    Address: %s\n", cfg.Server.Addr)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Run `stimmo setup` to reconfigure.")
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
