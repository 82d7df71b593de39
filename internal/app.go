package internal

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/sitepulse/config"
	"github.com/vadiminshakov/sitepulse/internal/clients"
	"github.com/vadiminshakov/sitepulse/internal/domain"
	"github.com/vadiminshakov/sitepulse/internal/services/currency"
	"github.com/vadiminshakov/sitepulse/internal/services/rates"
	"github.com/vadiminshakov/sitepulse/internal/services/visitors"
	"github.com/vadiminshakov/sitepulse/internal/storage/ratejournal"
	"github.com/vadiminshakov/sitepulse/internal/web"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// App wires the currency service, the visitor feed and the dashboard together.
type App struct {
	Config   config.Config
	Currency *currency.Service
	Visitors *visitors.Feed

	l       *zap.Logger
	journal *ratejournal.WALStore
	web     *web.Server
}

// NewApp builds every component from cfg. Nothing runs until Run is called.
func NewApp(cfg config.Config, l *zap.Logger) (*App, error) {
	source, err := newRateSource(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create rate source")
	}

	journal, err := ratejournal.NewWALStore(cfg.JournalDir, ratejournal.WithLogger(l.Named("ratejournal")))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open rate journal")
	}

	var detector interface {
		Detect(ctx context.Context) currency.Detection
	}
	if cfg.DetectLocale {
		timezone := currency.HostTimezone
		if cfg.Timezone != "" {
			timezone = currency.FixedTimezone(cfg.Timezone)
		}
		geo := clients.NewGeoClient(cfg.GeoURL, cfg.HTTPTimeout)
		detector = currency.NewDetector(l.Named("detector"), geo, timezone)
	}

	opts := []currency.Option{
		currency.WithDefaultLocale(cfg.DefaultLocale),
		currency.WithRefreshInterval(cfg.RefreshInterval),
		currency.WithJournal(journal),
	}
	cur := currency.NewService(l.Named("currency").With(zap.String("source", source.Name())), source, detector, opts...)

	feed := visitors.NewFeed(
		l.Named("visitors"),
		visitors.NewRandom(cfg.Seed),
		visitors.WithIntervals(cfg.RegenerateInterval, cfg.JitterInterval),
	)

	app := &App{
		Config:   cfg,
		Currency: cur,
		Visitors: feed,
		l:        l,
		journal:  journal,
	}
	if cfg.WebAddr != "" {
		app.web = web.NewServer(cfg.WebAddr, l.Named("web"), cur, feed, journal)
	}
	return app, nil
}

func newRateSource(cfg config.Config) (rates.Source, error) {
	switch cfg.RateSource {
	case config.SourceExchangeRate, "":
		return rates.NewExchangeRateSource(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.RatesURL), nil
	case config.SourceBinance:
		client := clients.NewPublicBinanceClient(cfg.HTTPTimeout)
		if cfg.BinanceURL != "" {
			client.BaseURL = cfg.BinanceURL
		}
		return rates.NewBinanceSource(client, domain.LiveRateCodes()), nil
	default:
		return nil, errors.Errorf("unsupported rate source %q", cfg.RateSource)
	}
}

// Run initializes the currency service, then runs the refresh loop, the visitor feed
// and the dashboard until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	res := a.Currency.Initialize(ctx)
	a.l.Info("startup complete",
		zap.String("locale", a.Currency.State().Key.String()),
		zap.String("detection", string(res.Detection.Source)),
		zap.Strings("live_rates", res.Refresh.Applied))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCancel(a.Currency.Run(ctx))
	})
	g.Go(func() error {
		return ignoreCancel(a.Visitors.Run(ctx))
	})
	if a.web != nil {
		g.Go(func() error {
			if len(a.Config.TLSDomains) > 0 {
				return a.web.StartWithAutoTLS(ctx, a.Config.TLSDomains, a.Config.CertCache)
			}
			return a.web.Start(ctx)
		})
	}

	return g.Wait()
}

// Close releases the rate journal.
func (a *App) Close() error {
	return a.journal.Close()
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
