// Package config loads sitepulse settings from a yaml file or command-line flags.
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/sitepulse/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	SourceExchangeRate = "exchangerate"
	SourceBinance      = "binance"

	DefaultRefreshInterval    = 30 * time.Minute
	DefaultRegenerateInterval = 30 * time.Second
	DefaultJitterInterval     = 5 * time.Second
	DefaultHTTPTimeout        = 10 * time.Second
	DefaultWebAddr            = ":8090"
	DefaultJournalDir         = "./wal/rates"
)

// Config is the validated runtime configuration.
type Config struct {
	DefaultLocale domain.LocaleKey
	Timezone      string
	DetectLocale  bool
	GeoURL        string

	RateSource      string
	RatesURL        string
	BinanceURL      string
	RefreshInterval time.Duration
	HTTPTimeout     time.Duration

	RegenerateInterval time.Duration
	JitterInterval     time.Duration
	Seed               int64

	WebAddr    string
	TLSDomains []string
	CertCache  string
	JournalDir string
	Debug      bool

	// Pick runs the terminal locale picker before starting.
	Pick bool
}

// ConfigTmp mirrors the yaml layout before validation.
type ConfigTmp struct {
	Locale   LocaleTmp   `yaml:"locale"`
	Rates    RatesTmp    `yaml:"rates"`
	Visitors VisitorsTmp `yaml:"visitors"`
	HTTP     HTTPTmp     `yaml:"http"`
	Web      WebTmp      `yaml:"web"`
	Journal  JournalTmp  `yaml:"journal"`
	Log      LogTmp      `yaml:"log"`
}

type LocaleTmp struct {
	Default  string `yaml:"default"`
	Timezone string `yaml:"timezone,omitempty"`
	Detect   *bool  `yaml:"detect,omitempty"`
	GeoURL   string `yaml:"geo_url,omitempty"`
}

type RatesTmp struct {
	Source          string        `yaml:"source"`
	URL             string        `yaml:"url,omitempty"`
	BinanceURL      string        `yaml:"binance_url,omitempty"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

type VisitorsTmp struct {
	RegenerateInterval time.Duration `yaml:"regenerate_interval"`
	JitterInterval     time.Duration `yaml:"jitter_interval"`
	Seed               int64         `yaml:"seed,omitempty"`
}

type HTTPTmp struct {
	Timeout time.Duration `yaml:"timeout"`
}

type WebTmp struct {
	Addr       *string  `yaml:"addr,omitempty"`
	TLSDomains []string `yaml:"tls_domains,omitempty"`
	CertCache  string   `yaml:"cert_cache,omitempty"`
}

type JournalTmp struct {
	Dir string `yaml:"dir"`
}

type LogTmp struct {
	Debug bool `yaml:"debug"`
}

// Get reads os.Args.
func Get() (Config, error) {
	return Parse(os.Args[1:], io.Discard)
}

// Parse reads flags from args. When -config is given the yaml file is the source of truth
// and only -pick is honored from the command line.
func Parse(args []string, output io.Writer) (Config, error) {
	fs := flag.NewFlagSet("sitepulse", flag.ContinueOnError)
	fs.SetOutput(output)

	path := fs.String("config", "", "path to yaml config")
	pick := fs.Bool("pick", false, "choose the default country in a terminal picker")
	locale := fs.String("locale", string(domain.DefaultLocale), "default locale key, example: GB")
	tz := fs.String("timezone", "", "IANA timezone used for detection, defaults to the host timezone")
	detect := fs.Bool("detect", true, "detect the locale via geolocation and timezone")
	source := fs.String("source", SourceExchangeRate, "rate source: exchangerate or binance")
	refresh := fs.Duration("refresh", DefaultRefreshInterval, "exchange rate refresh interval")
	timeout := fs.Duration("timeout", DefaultHTTPTimeout, "outbound HTTP timeout")
	seed := fs.Int64("seed", 0, "visitor simulation seed, 0 means time-based")
	addr := fs.String("addr", DefaultWebAddr, "dashboard listen address, empty disables it")
	journal := fs.String("journal", DefaultJournalDir, "rate journal directory")
	debug := fs.Bool("debug", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	var cfg Config
	if *path != "" {
		var err error
		cfg, err = getYaml(*path)
		if err != nil {
			return Config{}, err
		}
	} else {
		tmp := ConfigTmp{
			Locale: LocaleTmp{Default: *locale, Timezone: *tz, Detect: detect},
			Rates:  RatesTmp{Source: *source, RefreshInterval: *refresh},
			Visitors: VisitorsTmp{
				RegenerateInterval: DefaultRegenerateInterval,
				JitterInterval:     DefaultJitterInterval,
				Seed:               *seed,
			},
			HTTP:    HTTPTmp{Timeout: *timeout},
			Web:     WebTmp{Addr: addr},
			Journal: JournalTmp{Dir: *journal},
			Log:     LogTmp{Debug: *debug},
		}
		var err error
		cfg, err = tmp.Validate()
		if err != nil {
			return Config{}, err
		}
	}

	cfg.Pick = *pick
	return cfg, nil
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}

	return tmp.Validate()
}

// Validate fills defaults and checks every field.
func (c ConfigTmp) Validate() (Config, error) {
	cfg := Config{
		DefaultLocale:      domain.LocaleKey(strings.ToUpper(strings.TrimSpace(c.Locale.Default))),
		Timezone:           c.Locale.Timezone,
		DetectLocale:       true,
		GeoURL:             c.Locale.GeoURL,
		RateSource:         strings.ToLower(strings.TrimSpace(c.Rates.Source)),
		RatesURL:           c.Rates.URL,
		BinanceURL:         c.Rates.BinanceURL,
		RefreshInterval:    orDefault(c.Rates.RefreshInterval, DefaultRefreshInterval),
		HTTPTimeout:        orDefault(c.HTTP.Timeout, DefaultHTTPTimeout),
		RegenerateInterval: orDefault(c.Visitors.RegenerateInterval, DefaultRegenerateInterval),
		JitterInterval:     orDefault(c.Visitors.JitterInterval, DefaultJitterInterval),
		Seed:               c.Visitors.Seed,
		WebAddr:            DefaultWebAddr,
		TLSDomains:         c.Web.TLSDomains,
		CertCache:          c.Web.CertCache,
		JournalDir:         c.Journal.Dir,
		Debug:              c.Log.Debug,
	}

	if c.Locale.Detect != nil {
		cfg.DetectLocale = *c.Locale.Detect
	}
	if c.Web.Addr != nil {
		cfg.WebAddr = *c.Web.Addr
	}
	if cfg.DefaultLocale == "" {
		cfg.DefaultLocale = domain.DefaultLocale
	}
	if _, ok := domain.Locales()[cfg.DefaultLocale]; !ok {
		return Config{}, fmt.Errorf("incorrect 'locale.default' param: unknown locale %q", c.Locale.Default)
	}

	switch cfg.RateSource {
	case "":
		cfg.RateSource = SourceExchangeRate
	case SourceExchangeRate, SourceBinance:
	default:
		return Config{}, fmt.Errorf("incorrect 'rates.source' param: %q (must be %s or %s)",
			c.Rates.Source, SourceExchangeRate, SourceBinance)
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"rates.refresh_interval", cfg.RefreshInterval},
		{"http.timeout", cfg.HTTPTimeout},
		{"visitors.regenerate_interval", cfg.RegenerateInterval},
		{"visitors.jitter_interval", cfg.JitterInterval},
	}
	for _, d := range durations {
		if d.value < 0 {
			return Config{}, fmt.Errorf("incorrect '%s' param: %s must be positive", d.name, d.value)
		}
	}

	if cfg.JournalDir == "" {
		cfg.JournalDir = DefaultJournalDir
	}

	return cfg, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d == 0 {
		return def
	}
	return d
}

// Tmp converts a validated config back to its yaml layout.
func (c Config) Tmp() ConfigTmp {
	detect := c.DetectLocale
	addr := c.WebAddr
	return ConfigTmp{
		Locale: LocaleTmp{
			Default:  c.DefaultLocale.String(),
			Timezone: c.Timezone,
			Detect:   &detect,
			GeoURL:   c.GeoURL,
		},
		Rates: RatesTmp{
			Source:          c.RateSource,
			URL:             c.RatesURL,
			BinanceURL:      c.BinanceURL,
			RefreshInterval: c.RefreshInterval,
		},
		Visitors: VisitorsTmp{
			RegenerateInterval: c.RegenerateInterval,
			JitterInterval:     c.JitterInterval,
			Seed:               c.Seed,
		},
		HTTP:    HTTPTmp{Timeout: c.HTTPTimeout},
		Web:     WebTmp{Addr: &addr, TLSDomains: c.TLSDomains, CertCache: c.CertCache},
		Journal: JournalTmp{Dir: c.JournalDir},
		Log:     LogTmp{Debug: c.Debug},
	}
}
