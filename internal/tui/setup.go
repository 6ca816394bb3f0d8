package tui

import (
	"errors"
	"strings"

	"github.com/sgdevreal/stimmo/internal/config"
	"github.com/sgdevreal/stimmo/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// SetupValues holds what the setup wizard collects.
type SetupValues struct {
	Driver    string
	DSN       string
	Token     string
	URLPrefix string
	Theme     string
}

// SetupValuesFrom seeds the wizard with the current configuration. The
// stored token is never echoed back; leaving the field blank keeps it.
func SetupValuesFrom(cfg config.Config) *SetupValues {
	return &SetupValues{
		Driver:    cfg.Datastore.Driver,
		DSN:       cfg.Datastore.DSN,
		URLPrefix: cfg.Listings.URLPrefix,
		Theme:     cfg.Appearance.Theme,
	}
}

// NewSetupForm builds the first-run wizard bound to vals.
func NewSetupForm(vals *SetupValues) *huh.Form {
	themes := make([]huh.Option[string], 0, len(theme.All))
	for _, name := range theme.Names() {
		themes = append(themes, huh.NewOption(name, name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to stimmo").
				Description("Point stimmo at the analytical database holding the aggregated listings."),
			huh.NewSelect[string]().
				Title("Datastore driver").
				Options(
					huh.NewOption("PostgreSQL", "postgres"),
					huh.NewOption("SQLite file", "sqlite"),
				).
				Value(&vals.Driver),
			huh.NewInput().
				Title("Connection string").
				Description(`"{token}" is replaced by the token below`).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("required")
					}
					return nil
				}).
				Value(&vals.DSN),
			huh.NewInput().
				Title("Access token").
				Description("Leave blank to keep the current one or use $"+config.DefaultTokenEnv).
				EchoMode(huh.EchoModePassword).
				Value(&vals.Token),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Listing URL prefix").
				Description("Listing links are this prefix followed by the listing id").
				Value(&vals.URLPrefix),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themes...).
				Value(&vals.Theme),
		),
	)
}

// ApplySetup copies the wizard's answers into cfg.
func ApplySetup(cfg *config.Config, vals SetupValues) {
	if vals.Driver != "" {
		cfg.Datastore.Driver = vals.Driver
	}
	if dsn := strings.TrimSpace(vals.DSN); dsn != "" {
		cfg.Datastore.DSN = dsn
	}
	if tok := strings.TrimSpace(vals.Token); tok != "" {
		cfg.Datastore.Token = tok
	}
	cfg.Listings.URLPrefix = strings.TrimSpace(vals.URLPrefix)
	if vals.Theme != "" {
		cfg.Appearance.Theme = vals.Theme
		theme.SetActive(vals.Theme)
	}
}
