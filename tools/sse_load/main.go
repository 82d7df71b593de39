// Command sse_load opens many concurrent connections to a sitepulse SSE stream
// and reports how many events of each kind arrive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	var opts loadOptions
	flag.StringVar(&opts.URL, "url", "http://localhost:8090/visitors/stream", "SSE endpoint URL")
	flag.IntVar(&opts.Connections, "conns", 1000, "number of concurrent connections to open")
	flag.DurationVar(&opts.Duration, "dur", 60*time.Second, "test duration (0 for until interrupted)")
	flag.DurationVar(&opts.RampUp, "ramp", 0, "spread connection starts across this window")
	flag.Parse()

	if opts.Connections <= 0 {
		log.Fatalf("invalid conns: %d", opts.Connections)
	}
	if opts.RampUp == 0 && opts.Connections > 100 {
		// one second per 500 connections, at least one second
		opts.RampUp = max(time.Duration(opts.Connections/500)*time.Second, time.Second)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	logger.Info("starting SSE load",
		zap.String("url", opts.URL),
		zap.Int("conns", opts.Connections),
		zap.Duration("duration", opts.Duration),
		zap.Duration("ramp", opts.RampUp))

	st := &stats{}
	start := time.Now()
	runLoad(ctx, logger, opts, st)

	fmt.Println(st.report(time.Since(start)))
}
