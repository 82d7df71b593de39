package web

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/vadiminshakov/sitepulse/internal/domain"
	"github.com/vadiminshakov/sitepulse/internal/services/currency"
	"github.com/vadiminshakov/sitepulse/internal/services/visitors"
	"go.uber.org/zap"
)

const (
	trendPeriod       = 10
	defaultRateEvents = 20
	maxRateEvents     = 500
)

type currencyResponse struct {
	State     domain.CurrencyState `json:"state"`
	Status    domain.RateStatus    `json:"status"`
	Countries []string             `json:"countries"`
}

type refreshResponse struct {
	OK      bool     `json:"ok"`
	Source  string   `json:"source"`
	Applied []string `json:"applied,omitempty"`
	Missing []string `json:"missing,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type convertResponse struct {
	Amount string `json:"amount"`
	Result string `json:"result"`
}

type visitorsResponse struct {
	Snapshot  domain.VisitorSnapshot `json:"snapshot"`
	Top       []domain.VisitorEntry  `json:"top"`
	Breakdown []domain.RegionTotal   `json:"breakdown"`
	Live      bool                   `json:"live"`
	Trend     *visitors.TrendReading `json:"trend,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Add("Vary", "Accept-Encoding")
	if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		fmt.Fprint(w, indexHTML)
		return
	}

	w.Header().Set("Content-Encoding", "gzip")
	gz := gzip.NewWriter(w)
	defer gz.Close()
	if _, err := io.WriteString(gz, indexHTML); err != nil {
		s.l.Debug("failed to write index page", zap.Error(err))
	}
}

func (s *Server) handleCurrency(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.currencySummary())
}

func (s *Server) currencySummary() currencyResponse {
	return currencyResponse{
		State:     s.currency.State(),
		Status:    s.currency.RateStatus(),
		Countries: s.currency.SupportedCountries(),
	}
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	country := r.URL.Query().Get("country")

	var ok bool
	switch {
	case key != "":
		ok = s.currency.SelectLocale(domain.LocaleKey(key))
	case country != "":
		ok = s.currency.SelectCountry(country)
	default:
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "key or country is required"})
		return
	}

	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "unsupported locale"})
		return
	}
	s.writeJSON(w, http.StatusOK, s.currencySummary())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res := s.currency.RefreshRates(r.Context())

	resp := refreshResponse{
		OK:      res.OK(),
		Source:  res.Source,
		Applied: res.Applied,
		Missing: res.Missing,
	}
	status := http.StatusOK
	if res.Err != nil {
		resp.Error = res.Err.Error()
		status = http.StatusBadGateway
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount := q.Get("amount")

	opts, err := convertOptions(q.Get("range"), q.Get("code"), q.Get("symbol"), q.Get("decimals"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	s.writeJSON(w, http.StatusOK, convertResponse{
		Amount: amount,
		Result: s.currency.ConvertString(amount, opts...),
	})
}

func convertOptions(asRange, code, symbol, decimals string) ([]currency.ConvertOption, error) {
	var opts []currency.ConvertOption

	flag := func(name, v string) (bool, error) {
		if v == "" {
			return false, nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("invalid %s value %q", name, v)
		}
		return b, nil
	}

	if on, err := flag("range", asRange); err != nil {
		return nil, err
	} else if on {
		opts = append(opts, currency.AsRange())
	}
	if on, err := flag("code", code); err != nil {
		return nil, err
	} else if on {
		opts = append(opts, currency.WithCode())
	}
	if symbol != "" {
		show, err := flag("symbol", symbol)
		if err != nil {
			return nil, err
		}
		if !show {
			opts = append(opts, currency.WithoutSymbol())
		}
	}
	if decimals != "" {
		n, err := strconv.Atoi(decimals)
		if err != nil || n < 0 || n > 8 {
			return nil, fmt.Errorf("invalid decimals value %q", decimals)
		}
		opts = append(opts, currency.WithDecimals(n))
	}

	return opts, nil
}

func (s *Server) handleVisitors(w http.ResponseWriter, _ *http.Request) {
	resp := visitorsResponse{
		Snapshot:  s.visitors.Snapshot(),
		Top:       s.visitors.TopEntries(0),
		Breakdown: s.visitors.RegionalBreakdown(),
		Live:      s.visitors.IsLive(),
	}
	if reading, err := s.visitors.Trend(trendPeriod); err == nil {
		resp.Trend = &reading
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleToggle(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]bool{"live": s.visitors.ToggleLive()})
}

func (s *Server) handleVisitorsRefresh(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.visitors.Refresh())
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "rate journal not available"})
		return
	}

	limit := defaultRateEvents
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxRateEvents {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("limit must be between 1 and %d", maxRateEvents)})
			return
		}
		limit = n
	}

	records, err := s.journal.Recent(limit)
	if err != nil {
		s.l.Warn("failed to read rate journal", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "rate journal read failed"})
		return
	}
	if records == nil {
		records = []domain.RateRefreshRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.l.Warn("failed to write response", zap.Error(err))
	}
}
