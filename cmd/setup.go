package cmd

import (
	"errors"
	"fmt"

	"github.com/sgdevreal/stimmo/internal/config"
	"github.com/sgdevreal/stimmo/internal/tui"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	vals := tui.SetupValuesFrom(cfg)
	if err := tui.NewSetupForm(vals).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup canceled, nothing saved.")
			return nil
		}
		return fmt.Errorf("setup: %w", err)
	}
	tui.ApplySetup(&cfg, *vals)

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.Path())
	if config.GetToken(cfg) == "" {
		fmt.Printf("  No token stored; export %s before querying.\n", tokenEnvName(cfg))
	}
	fmt.Println("  Run `stimmo setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}

func tokenEnvName(cfg config.Config) string {
	if cfg.Datastore.TokenEnv != "" {
		return cfg.Datastore.TokenEnv
	}
	return config.DefaultTokenEnv
}

func maskToken(key string) string {
	if len(key) > 16 {
		return key[:8] + "..." + key[len(key)-4:]
	}
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return "****"
}
