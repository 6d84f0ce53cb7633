package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// WizardAnswers is the subset of Config collected by `taxa init`.
type WizardAnswers struct {
	BaseURL     string
	Driver      string
	DSN         string
	PageSize    string
	DefaultView string
}

// answersFrom seeds the form with the values currently in cfg.
func answersFrom(cfg Config) WizardAnswers {
	return WizardAnswers{
		BaseURL:     cfg.API.BaseURL,
		Driver:      cfg.Store.Driver,
		DSN:         cfg.Store.DSN,
		PageSize:    strconv.Itoa(cfg.Listing.PageSize),
		DefaultView: cfg.UI.DefaultView,
	}
}

// Apply copies the answers onto cfg and validates the result.
func (a WizardAnswers) Apply(cfg Config) (Config, error) {
	if err := validateURL(a.BaseURL); err != nil {
		return cfg, err
	}
	size, err := strconv.Atoi(a.PageSize)
	if err != nil {
		return cfg, fmt.Errorf("page size: %w", err)
	}
	cfg.API.BaseURL = a.BaseURL
	cfg.Store.Driver = a.Driver
	cfg.Store.DSN = expandHome(a.DSN)
	cfg.Listing.PageSize = size
	cfg.UI.DefaultView = a.DefaultView
	return cfg, cfg.Validate()
}

func validateURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must start with http:// or https://")
	}
	return nil
}

func validatePageSize(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a positive number")
	}
	return nil
}

// IsTerminal reports whether stdin is connected to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !IsTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// RunWizard asks for the common settings, starting from cfg, and returns
// the updated config. The caller decides where to save it.
func RunWizard(cfg Config, out io.Writer) (Config, error) {
	a := answersFrom(cfg)

	fmt.Fprintln(out, "taxa setup")
	fmt.Fprintln(out, "──────────")

	form := newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listing service URL").
				Description("Base URL serving /collections and /items").
				Value(&a.BaseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Page size").
				Value(&a.PageSize).
				Validate(validatePageSize),
			huh.NewSelect[string]().
				Title("Default listing view").
				Options(
					huh.NewOption("Table", "table"),
					huh.NewOption("Gallery", "gallery"),
				).
				Value(&a.DefaultView),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Store backend for import and serve").
				Options(
					huh.NewOption("SQLite file", "sqlite"),
					huh.NewOption("PostgreSQL", "postgres"),
				).
				Value(&a.Driver),
			huh.NewInput().
				Title("Store DSN").
				Description("A file path for SQLite, a postgres:// URL for PostgreSQL").
				Value(&a.DSN),
		),
	)

	if err := form.Run(); err != nil {
		return cfg, err
	}
	return a.Apply(cfg)
}
