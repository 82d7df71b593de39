package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const statusEvery = 5 * time.Second

type loadOptions struct {
	URL         string
	Connections int
	Duration    time.Duration
	RampUp      time.Duration
}

type stats struct {
	connected   atomic.Int64
	connectErrs atomic.Int64
	streamErrs  atomic.Int64

	mu     sync.Mutex
	events map[string]int64
}

func (s *stats) addEvent(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events == nil {
		s.events = make(map[string]int64)
	}
	s.events[name]++
}

func (s *stats) totalEvents() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, n := range s.events {
		total += n
	}
	return total
}

func (s *stats) report(elapsed time.Duration) string {
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	total := s.totalEvents()

	var b strings.Builder
	fmt.Fprintf(&b, "done: connected=%s connect_errs=%d stream_errs=%d events=%s elapsed=%s events/s=%.2f",
		humanize.Comma(s.connected.Load()),
		s.connectErrs.Load(),
		s.streamErrs.Load(),
		humanize.Comma(total),
		elapsed.Truncate(time.Millisecond),
		float64(total)/elapsed.Seconds())

	s.mu.Lock()
	names := make([]string, 0, len(s.events))
	for name := range s.events {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "\n  %s=%s", name, humanize.Comma(s.events[name]))
	}
	s.mu.Unlock()

	return b.String()
}

// countEvents reads an SSE stream until it ends, recording every named event.
// Heartbeat comments and data lines are not counted.
func countEvents(r io.Reader, st *stats) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if name, ok := strings.CutPrefix(strings.TrimRight(line, "\r\n"), "event: "); ok {
			st.addEvent(name)
		}
		if err != nil {
			return err
		}
	}
}

func runLoad(ctx context.Context, l *zap.Logger, opts loadOptions, st *stats) {
	client := &http.Client{
		Transport: &http.Transport{
			MaxConnsPerHost:     opts.Connections + 100,
			MaxIdleConns:        opts.Connections + 100,
			MaxIdleConnsPerHost: opts.Connections + 100,
			DisableCompression:  true,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}

	go func() {
		ticker := time.NewTicker(statusEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Info("status",
					zap.Int64("connected", st.connected.Load()),
					zap.Int64("connect_errs", st.connectErrs.Load()),
					zap.Int64("stream_errs", st.streamErrs.Load()),
					zap.Int64("events", st.totalEvents()))
			}
		}
	}()

	var interval time.Duration
	if opts.RampUp > 0 {
		interval = opts.RampUp / time.Duration(opts.Connections)
	}

	var g errgroup.Group
	for i := 0; i < opts.Connections && ctx.Err() == nil; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(interval):
			}
		}

		g.Go(func() error {
			stream(ctx, client, opts.URL, st)
			return nil
		})
	}
	_ = g.Wait()
}

func stream(ctx context.Context, client *http.Client, url string, st *stats) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		st.connectErrs.Add(1)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		st.connectErrs.Add(1)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		st.connectErrs.Add(1)
		return
	}
	st.connected.Add(1)

	if err := countEvents(resp.Body, st); err != nil && ctx.Err() == nil {
		st.streamErrs.Add(1)
	}
}
