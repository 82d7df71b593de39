package web

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/sitepulse/internal/domain"
	"github.com/vadiminshakov/sitepulse/internal/services/currency"
	"github.com/vadiminshakov/sitepulse/internal/services/visitors"
	"go.uber.org/zap"
)

type stubSource struct {
	rates domain.RateTable
	err   error
}

func (s stubSource) Name() string { return "stub" }

func (s stubSource) FetchRates(context.Context) (domain.RateTable, error) {
	return s.rates, s.err
}

type stubJournal struct {
	records []domain.RateRefreshRecord
}

func (s stubJournal) EventsAfter(index uint64) ([]domain.RateRefreshRecord, error) {
	var out []domain.RateRefreshRecord
	for _, r := range s.records {
		if r.Index > index {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s stubJournal) Recent(limit int) ([]domain.RateRefreshRecord, error) {
	if limit >= len(s.records) {
		return s.records, nil
	}
	return s.records[len(s.records)-limit:], nil
}

func newTestServer(t *testing.T, source stubSource, journal rateJournalReader) (*httptest.Server, *currency.Service, *visitors.Feed) {
	t.Helper()

	cur := currency.NewService(zap.NewNop(), source, nil)
	feed := visitors.NewFeed(zap.NewNop(), rand.New(rand.NewSource(1)))
	srv := NewServer("", zap.NewNop(), cur, feed, journal)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, cur, feed
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestServer_Index(t *testing.T) {
	ts, _, _ := newTestServer(t, stubSource{}, nil)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp, err = http.Get(ts.URL + "/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_IndexGzip(t *testing.T) {
	ts, _, _ := newTestServer(t, stubSource{}, nil)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")

	client := &http.Client{Transport: &http.Transport{DisableCompression: true}}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))

	gz, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, indexHTML, string(body))
}

func TestServer_Currency(t *testing.T) {
	ts, _, _ := newTestServer(t, stubSource{}, nil)

	resp, err := http.Get(ts.URL + "/currency")
	require.NoError(t, err)
	body := decode[currencyResponse](t, resp)

	assert.Equal(t, domain.DefaultLocale, body.State.Key)
	assert.Equal(t, "USD", body.State.Descriptor.Code)
	assert.False(t, body.Status.IsLive)
	assert.Len(t, body.Countries, 21)
}

func TestServer_Select(t *testing.T) {
	ts, cur, _ := newTestServer(t, stubSource{}, nil)

	tests := []struct {
		name   string
		query  string
		status int
		key    domain.LocaleKey
	}{
		{"by key", "?key=KE", http.StatusOK, "KE"},
		{"by country", "?country=Japan", http.StatusOK, "JP"},
		{"unknown key", "?key=XX", http.StatusNotFound, "JP"},
		{"unknown country", "?country=Atlantis", http.StatusNotFound, "JP"},
		{"missing params", "", http.StatusBadRequest, "JP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/currency/select"+tt.query, "", nil)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.key, cur.State().Key)
		})
	}
}

func TestServer_SelectRequiresPost(t *testing.T) {
	ts, _, _ := newTestServer(t, stubSource{}, nil)

	resp, err := http.Get(ts.URL + "/currency/select?key=KE")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_Refresh(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		source := stubSource{rates: domain.RateTable{"USD": decimal.NewFromInt(1)}}
		ts, cur, _ := newTestServer(t, source, nil)

		resp, err := http.Post(ts.URL+"/currency/refresh", "", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := decode[refreshResponse](t, resp)
		assert.True(t, body.OK)
		assert.Equal(t, []string{"USD"}, body.Applied)
		assert.True(t, cur.RateStatus().IsLive)
	})

	t.Run("failure", func(t *testing.T) {
		ts, _, _ := newTestServer(t, stubSource{err: errors.New("offline")}, nil)

		resp, err := http.Post(ts.URL+"/currency/refresh", "", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		body := decode[refreshResponse](t, resp)
		assert.False(t, body.OK)
		assert.Contains(t, body.Error, "offline")
	})
}

func TestServer_Convert(t *testing.T) {
	ts, cur, _ := newTestServer(t, stubSource{}, nil)

	tests := []struct {
		name     string
		locale   domain.LocaleKey
		query    string
		status   int
		expected string
	}{
		{"default", "US", "amount=100", http.StatusOK, "$100.00"},
		{"range", "US", "amount=300-1200&range=true", http.StatusOK, "$300.00-$1200.00"},
		{"code no symbol", "CA", "amount=100&code=true&symbol=false", http.StatusOK, "135.00 CAD"},
		{"decimals", "CA", "amount=100&decimals=0", http.StatusOK, "C$135"},
		{"integer currency", "NG", "amount=100", http.StatusOK, "₦82,550"},
		{"bad flag", "US", "amount=100&range=maybe", http.StatusBadRequest, ""},
		{"bad decimals", "US", "amount=100&decimals=-1", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, cur.SelectLocale(tt.locale))

			resp, err := http.Get(ts.URL + "/convert?" + tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status != http.StatusOK {
				resp.Body.Close()
				return
			}
			body := decode[convertResponse](t, resp)
			assert.Equal(t, tt.expected, body.Result)
		})
	}
}

func TestServer_Visitors(t *testing.T) {
	ts, _, feed := newTestServer(t, stubSource{}, nil)

	resp, err := http.Get(ts.URL + "/visitors")
	require.NoError(t, err)
	body := decode[visitorsResponse](t, resp)

	assert.True(t, body.Live)
	assert.Equal(t, feed.Snapshot().TotalVisitors, body.Snapshot.TotalVisitors)
	assert.Len(t, body.Top, visitors.DefaultTopEntries)
	assert.NotEmpty(t, body.Breakdown)
	assert.Nil(t, body.Trend)

	resp, err = http.Post(ts.URL+"/visitors/toggle", "", nil)
	require.NoError(t, err)
	toggled := decode[map[string]bool](t, resp)
	assert.False(t, toggled["live"])
	assert.False(t, feed.IsLive())

	resp, err = http.Post(ts.URL+"/visitors/refresh", "", nil)
	require.NoError(t, err)
	refreshed := decode[domain.VisitorSnapshot](t, resp)
	assert.Equal(t, feed.Snapshot().TotalVisitors, refreshed.TotalVisitors)
}

func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && event != "":
			return event, data
		}
	}
}

func openStream(t *testing.T, url string) (*bufio.Reader, func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	return bufio.NewReader(resp.Body), func() {
		cancel()
		resp.Body.Close()
	}
}

func TestServer_CurrencyStream(t *testing.T) {
	ts, cur, _ := newTestServer(t, stubSource{}, nil)

	r, closeStream := openStream(t, ts.URL+"/currency/stream")
	defer closeStream()

	event, data := readEvent(t, r)
	assert.Equal(t, "currency", event)
	var state domain.CurrencyState
	require.NoError(t, json.Unmarshal([]byte(data), &state))
	assert.Equal(t, domain.LocaleKey("US"), state.Key)

	// the subscription is registered before the initial event is written
	require.True(t, cur.SelectLocale("GB"))
	_, data = readEvent(t, r)
	require.NoError(t, json.Unmarshal([]byte(data), &state))
	assert.Equal(t, domain.LocaleKey("GB"), state.Key)
}

func TestServer_ShutdownEndsOpenStreams(t *testing.T) {
	cur := currency.NewService(zap.NewNop(), stubSource{}, nil)
	feed := visitors.NewFeed(zap.NewNop(), rand.New(rand.NewSource(1)))
	srv := NewServer("", zap.NewNop(), cur, feed, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	server := srv.newHTTPServer(ctx, "", srv.Handler())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, server, func() error { return server.Serve(ln) })
	}()

	r, closeStream := openStream(t, "http://"+ln.Addr().String()+"/currency/stream")
	defer closeStream()
	event, _ := readEvent(t, r)
	require.Equal(t, "currency", event)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_VisitorsStream(t *testing.T) {
	ts, _, feed := newTestServer(t, stubSource{}, nil)

	r, closeStream := openStream(t, ts.URL+"/visitors/stream")
	defer closeStream()

	event, _ := readEvent(t, r)
	assert.Equal(t, "visitors", event)

	refreshed := feed.Refresh()
	_, data := readEvent(t, r)
	var snapshot domain.VisitorSnapshot
	require.NoError(t, json.Unmarshal([]byte(data), &snapshot))
	assert.Equal(t, refreshed.TotalVisitors, snapshot.TotalVisitors)
}

func TestServer_Rates(t *testing.T) {
	journal := stubJournal{records: []domain.RateRefreshRecord{
		{Index: 1, Event: domain.RateRefreshEvent{ID: "a", Success: true}},
		{Index: 2, Event: domain.RateRefreshEvent{ID: "b", Error: "timeout"}},
		{Index: 3, Event: domain.RateRefreshEvent{ID: "c", Success: true}},
	}}
	ts, _, _ := newTestServer(t, stubSource{}, journal)

	resp, err := http.Get(ts.URL + "/rates?limit=2")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	records := decode[[]domain.RateRefreshRecord](t, resp)
	require.Len(t, records, 2)
	assert.Equal(t, uint64(2), records[0].Index)
	assert.Equal(t, "c", records[1].Event.ID)

	resp, err = http.Get(ts.URL + "/rates?limit=0")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	empty, _, _ := newTestServer(t, stubSource{}, nil)
	resp, err = http.Get(empty.URL + "/rates")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_RatesStream(t *testing.T) {
	t.Run("no journal", func(t *testing.T) {
		ts, _, _ := newTestServer(t, stubSource{}, nil)
		resp, err := http.Get(ts.URL + "/rates/stream")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("replays journal", func(t *testing.T) {
		journal := stubJournal{records: []domain.RateRefreshRecord{
			{Index: 1, Event: domain.RateRefreshEvent{ID: "a", Source: "exchangerate", Success: true}},
			{Index: 2, Event: domain.RateRefreshEvent{ID: "b", Source: "exchangerate", Error: "timeout"}},
		}}
		ts, _, _ := newTestServer(t, stubSource{}, journal)

		r, closeStream := openStream(t, ts.URL+"/rates/stream")
		defer closeStream()

		for _, id := range []string{"a", "b"} {
			event, data := readEvent(t, r)
			assert.Equal(t, "rate_refresh", event)
			var e domain.RateRefreshEvent
			require.NoError(t, json.Unmarshal([]byte(data), &e))
			assert.Equal(t, id, e.ID)
		}
	})

	t.Run("resumes after index", func(t *testing.T) {
		journal := stubJournal{records: []domain.RateRefreshRecord{
			{Index: 1, Event: domain.RateRefreshEvent{ID: "a"}},
			{Index: 2, Event: domain.RateRefreshEvent{ID: "b"}},
		}}
		ts, _, _ := newTestServer(t, stubSource{}, journal)

		r, closeStream := openStream(t, ts.URL+"/rates/stream?after=1")
		defer closeStream()

		_, data := readEvent(t, r)
		var e domain.RateRefreshEvent
		require.NoError(t, json.Unmarshal([]byte(data), &e))
		assert.Equal(t, "b", e.ID)
	})
}

func TestParseLastEventID(t *testing.T) {
	tests := []struct {
		header, query string
		expected      uint64
	}{
		{"", "", 0},
		{"7", "", 7},
		{" 7 ", "3", 7},
		{"", "3", 3},
		{"abc", "", 0},
		{"-1", "", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseLastEventID(tt.header, tt.query), "header=%q query=%q", tt.header, tt.query)
	}
}
