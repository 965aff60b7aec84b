// Command simbus runs the standalone bus process (C8): no models of its
// own, just the quorum-tracking mediator every Message/SimBus-transport
// model registers against.
/*
 * Copyright (c) 2024, dsebus authors.
 */
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dsebus/dsebus/config"
	"github.com/dsebus/dsebus/dsebuserr"
	"github.com/dsebus/dsebus/dsestats"
	"github.com/dsebus/dsebus/hk"
	"github.com/dsebus/dsebus/internal/nlog"
	"github.com/dsebus/dsebus/simbus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	name        string
	transport   string
	uri         string
	stepsize    float64
	logger      int
	metricsAddr string
)

func init() {
	flag.StringVar(&name, "name", "simbus", "bus instance name")
	flag.StringVar(&transport, "transport", "message", "transport tag (message|simbus)")
	flag.StringVar(&uri, "uri", ":42422", "bus listen address")
	flag.Float64Var(&stepsize, "stepsize", 0.0005, "simulation step size, seconds")
	flag.IntVar(&logger, "logger", 3, "log verbosity: 1 (debug) .. 5 (quiet)")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus /metrics on this address")
}

func main() {
	flag.Parse()
	os.Exit(run(flag.Args()))
}

func run(yamlPaths []string) int {
	nlog.SetVerbose(logger <= 2)

	if traceFile, closeTrace := openTraceFile(); traceFile != nil {
		defer closeTrace()
	}

	if len(yamlPaths) == 0 {
		fmt.Fprintln(os.Stderr, "simbus: at least one Stack YAML document is required")
		return dsebuserr.ExitInval
	}
	docs, err := readAll(yamlPaths)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return dsebuserr.ExitInval
	}
	spec, err := config.Load(docs)
	if err != nil {
		nlog.Errorln(err)
		return dsebuserr.CodeOf(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var stats *dsestats.Collector
	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		stats = dsestats.New(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				nlog.Warningf("metrics server: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			srv.Close()
		}()
	}

	err = simbus.Run(ctx, simbus.Config{
		Name:      name,
		Transport: transport,
		URI:       uri,
		StepSize:  stepsize,
		Stack:     spec,
		Stats:     stats,
	})
	if err != nil {
		nlog.Errorln(err)
		return dsebuserr.CodeOf(err)
	}
	if ctx.Err() != nil {
		return dsebuserr.ExitCanceled
	}
	return dsebuserr.ExitOK
}

// openTraceFile redirects nlog's output to SIMBUS_TRACEFILE when set (§6
// Environment variables) and registers an hk job that periodically syncs
// it to disk, since nlog itself buffers nothing worth flushing on its own
// (see internal/nlog.Flush).
func openTraceFile() (*os.File, func()) {
	path := os.Getenv("SIMBUS_TRACEFILE")
	if path == "" {
		return nil, func() {}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simbus: SIMBUS_TRACEFILE: %v\n", err)
		return nil, func() {}
	}
	nlog.SetOutput(f)
	hk.Reg("simbus-tracefile-flush", func() time.Duration {
		f.Sync()
		return 2 * time.Second
	}, 2*time.Second)
	return f, func() {
		hk.Unreg("simbus-tracefile-flush")
		f.Close()
	}
}

func readAll(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, string(b))
	}
	return out, nil
}
