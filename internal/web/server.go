// Package web serves the dashboard page, JSON endpoints and SSE streams.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/sitepulse/internal/domain"
	"github.com/vadiminshakov/sitepulse/internal/services/currency"
	"github.com/vadiminshakov/sitepulse/internal/services/visitors"
	"go.uber.org/zap"
)

type currencyService interface {
	State() domain.CurrencyState
	RateStatus() domain.RateStatus
	SupportedCountries() []string
	SelectLocale(key domain.LocaleKey) bool
	SelectCountry(name string) bool
	RefreshRates(ctx context.Context) currency.RefreshResult
	ConvertString(usd string, opts ...currency.ConvertOption) string
	Subscribe() chan domain.CurrencyState
	Unsubscribe(ch chan domain.CurrencyState)
}

type visitorFeed interface {
	Snapshot() domain.VisitorSnapshot
	TopEntries(limit int) []domain.VisitorEntry
	RegionalBreakdown() []domain.RegionTotal
	IsLive() bool
	ToggleLive() bool
	Refresh() domain.VisitorSnapshot
	Trend(period int) (visitors.TrendReading, error)
	Subscribe() chan domain.VisitorSnapshot
	Unsubscribe(ch chan domain.VisitorSnapshot)
}

type rateJournalReader interface {
	EventsAfter(index uint64) ([]domain.RateRefreshRecord, error)
	Recent(limit int) ([]domain.RateRefreshRecord, error)
}

// Server exposes the dashboard over HTTP.
type Server struct {
	Addr     string
	l        *zap.Logger
	currency currencyService
	visitors visitorFeed
	journal  rateJournalReader
}

// NewServer creates a server. journal may be nil, in which case /rates/stream answers 503.
func NewServer(addr string, l *zap.Logger, cur currencyService, feed visitorFeed, journal rateJournalReader) *Server {
	return &Server{
		Addr:     addr,
		l:        l,
		currency: cur,
		visitors: feed,
		journal:  journal,
	}
}

// Handler returns the routed mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)

	mux.HandleFunc("GET /currency", s.handleCurrency)
	mux.HandleFunc("POST /currency/select", s.handleSelect)
	mux.HandleFunc("POST /currency/refresh", s.handleRefresh)
	mux.HandleFunc("GET /currency/stream", s.handleCurrencyStream)
	mux.HandleFunc("GET /convert", s.handleConvert)

	mux.HandleFunc("GET /visitors", s.handleVisitors)
	mux.HandleFunc("POST /visitors/toggle", s.handleToggle)
	mux.HandleFunc("POST /visitors/refresh", s.handleVisitorsRefresh)
	mux.HandleFunc("GET /visitors/stream", s.handleVisitorsStream)

	mux.HandleFunc("GET /rates", s.handleRates)
	mux.HandleFunc("GET /rates/stream", s.handleRatesStream)
	return mux
}

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := s.newHTTPServer(ctx, s.Addr, s.Handler())

	s.l.Info("web dashboard listening", zap.String("addr", s.Addr))
	return serve(ctx, server, server.ListenAndServe)
}

// newHTTPServer derives request contexts from ctx so open streams end on shutdown.
func (s *Server) newHTTPServer(ctx context.Context, addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
}

// serve blocks in listen until ctx is cancelled, then waits for a graceful shutdown.
func serve(ctx context.Context, server *http.Server, listen func() error) error {
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- listen()
	}()

	select {
	case err := <-listenErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "graceful shutdown")
	}

	if err := <-listenErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
