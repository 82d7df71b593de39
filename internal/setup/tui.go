// Package setup hosts the terminal wizard that picks the default country before startup.
package setup

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/sitepulse/config"
	"github.com/vadiminshakov/sitepulse/internal/domain"
	"github.com/vadiminshakov/sitepulse/internal/services/currency"
	"gopkg.in/yaml.v3"
)

// GeneratedConfig is where the wizard saves its answers.
const GeneratedConfig = "config.gen.yaml"

// ErrCancelled is returned when the user declines to save.
var ErrCancelled = errors.New("setup cancelled by user")

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(highlight).
			Padding(1)
)

// previewAmounts are the plan prices shown in the summary panel.
var previewAmounts = []string{"49", "300-1200", "1500-4000"}

// RunTUI asks for the default country and rate source, previews prices and saves the result.
// The returned config carries the chosen values.
func RunTUI(cfg config.Config) (config.Config, error) {
	country, _ := domain.CountryForLocale(cfg.DefaultLocale)
	if country == "" {
		country, _ = domain.CountryForLocale(domain.DefaultLocale)
	}
	source := cfg.RateSource
	var confirm bool

	clearScreen()
	fmt.Println(headerStyle.Render("SITEPULSE SETUP"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Pick where your prices should be shown.\n"))

	fmt.Println(stepStyle.Render("STEP 1: COUNTRY"))
	options := make([]huh.Option[string], 0, len(domain.SupportedCountries()))
	for _, name := range domain.SupportedCountries() {
		options = append(options, huh.NewOption(name, name))
	}
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Default country").
				Description("Used until the visitor's location is detected").
				Options(options...).
				Value(&country),
		),
	).Run()
	if err != nil {
		return cfg, err
	}

	clearScreen()
	fmt.Println(headerStyle.Render("SITEPULSE SETUP"))
	fmt.Println(stepStyle.Render("STEP 2: RATE SOURCE"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where should live exchange rates come from?").
				Options(
					huh.NewOption("exchangerate-api.com", config.SourceExchangeRate),
					huh.NewOption("Binance spot tickers", config.SourceBinance),
				).
				Value(&source),
		),
	).Run()
	if err != nil {
		return cfg, err
	}

	key, ok := domain.LocaleForCountry(country)
	if !ok {
		return cfg, errors.Errorf("unsupported country %q", country)
	}

	clearScreen()
	fmt.Println(headerStyle.Render("SITEPULSE SETUP"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))
	fmt.Println(panelStyle.Render(Summary(key, source)))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return cfg, err
	}
	if !confirm {
		return cfg, ErrCancelled
	}

	cfg.DefaultLocale = key
	cfg.RateSource = source
	if err := Save(cfg, GeneratedConfig); err != nil {
		return cfg, err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(
		fmt.Sprintf("\n✓ Configuration saved to %s\nStarting sitepulse...", GeneratedConfig)))
	time.Sleep(1500 * time.Millisecond)
	return cfg, nil
}

// Summary renders the chosen locale and sample prices at fallback rates.
func Summary(key domain.LocaleKey, source string) string {
	d, ok := domain.Locales()[key]
	if !ok {
		return fmt.Sprintf("Unknown locale %s", key)
	}
	country, _ := domain.CountryForLocale(key)

	var b strings.Builder
	fmt.Fprintf(&b, "Country:  %s (%s)\n", country, key)
	fmt.Fprintf(&b, "Currency: %s %s, %s market\n", d.Code, d.Symbol, d.Tier)
	if d.PPPAdjustment.Valid {
		fmt.Fprintf(&b, "PPP:      x%s\n", d.PPPAdjustment.Decimal.String())
	}
	fmt.Fprintf(&b, "Rates:    %s\n\n", source)
	for _, amount := range previewAmounts {
		opts := []currency.ConvertOption{currency.WithCode()}
		if strings.Contains(amount, "-") {
			opts = append(opts, currency.AsRange())
		}
		fmt.Fprintf(&b, "$%-10s -> %s\n", amount, currency.FormatString(d, amount, opts...))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Save writes cfg as yaml to path.
func Save(cfg config.Config, path string) error {
	data, err := yaml.Marshal(cfg.Tmp())
	if err != nil {
		return errors.Wrap(err, "failed to generate yaml")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to save config file")
	}
	return nil
}

func clearScreen() {
	fmt.Print("\033[H\033[2J")
}
