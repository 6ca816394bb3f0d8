package cmd

import (
	"fmt"

	"github.com/sgdevreal/stimmo/internal/tui"
	"github.com/sgdevreal/stimmo/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"tui"},
	Short:   "Launch the interactive dashboard",
	RunE:    runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(_ *cobra.Command, _ []string) error {
	// Progress lines would tear the alternate screen, so the loader stays silent.
	e, err := openEngine(nil)
	if err != nil {
		return err
	}
	defer e.Close()
	theme.SetActive(e.cfg.Appearance.Theme)

	// Force TrueColor so card backgrounds render even when the profile
	// detection falls back to Ascii.
	lipgloss.SetColorProfile(termenv.TrueColor)

	p := tea.NewProgram(tui.NewApp(e), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
