package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	journalPollInterval = 2 * time.Second
	heartbeatInterval   = 30 * time.Second
)

type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &sseWriter{w: w, flusher: flusher}, true
}

func (s *sseWriter) send(event string, v any) error {
	return s.sendWithID(event, 0, v)
}

// sendWithID writes one event; id 0 omits the id line.
func (s *sseWriter) sendWithID(event string, id uint64, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if id > 0 {
		fmt.Fprintf(s.w, "id: %d\n", id)
	}
	fmt.Fprintf(s.w, "event: %s\n", event)
	fmt.Fprintf(s.w, "data: %s\n\n", payload)
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) ping() {
	fmt.Fprint(s.w, ": ping\n\n")
	s.flusher.Flush()
}

// streamUpdates sends initial, then every value from updates until the client goes away.
func streamUpdates[T any](r *http.Request, sse *sseWriter, l *zap.Logger, event string, initial T, updates <-chan T) {
	if err := sse.send(event, initial); err != nil {
		l.Warn("stream initial send failed", zap.String("event", event), zap.Error(err))
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			sse.ping()
		case v, ok := <-updates:
			if !ok {
				return
			}
			if err := sse.send(event, v); err != nil {
				l.Warn("stream send failed", zap.String("event", event), zap.Error(err))
			}
		}
	}
}

func (s *Server) handleCurrencyStream(w http.ResponseWriter, r *http.Request) {
	sse, ok := newSSEWriter(w)
	if !ok {
		return
	}

	ch := s.currency.Subscribe()
	defer s.currency.Unsubscribe(ch)

	streamUpdates(r, sse, s.l, "currency", s.currency.State(), ch)
}

func (s *Server) handleVisitorsStream(w http.ResponseWriter, r *http.Request) {
	sse, ok := newSSEWriter(w)
	if !ok {
		return
	}

	ch := s.visitors.Subscribe()
	defer s.visitors.Unsubscribe(ch)

	streamUpdates(r, sse, s.l, "visitors", s.visitors.Snapshot(), ch)
}

func (s *Server) handleRatesStream(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "rate journal not available")
		return
	}

	sse, ok := newSSEWriter(w)
	if !ok {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	poll := time.NewTicker(journalPollInterval)
	defer poll.Stop()

	lastIndex := parseLastEventID(r.Header.Get("Last-Event-ID"), r.URL.Query().Get("after"))
	sendEvents := func() error {
		records, err := s.journal.EventsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			if err := sse.sendWithID("rate_refresh", record.Index, record.Event); err != nil {
				return err
			}
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendEvents(); err != nil {
		s.l.Warn("rate stream initial load failed", zap.Error(err))
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			sse.ping()
		case <-poll.C:
			if err := sendEvents(); err != nil {
				s.l.Warn("rate stream poll failed", zap.Error(err))
			}
		}
	}
}

// parseLastEventID reads the resume point from the Last-Event-ID header, falling back to
// the "after" query parameter. Anything unparseable replays from the start.
func parseLastEventID(header, query string) uint64 {
	for _, raw := range []string{header, query} {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return 0
		}
		return id
	}
	return 0
}
