// Package simbus implements the standalone bus process (C8): a process
// with no models of its own that creates a bus-mode Adapter, initialises
// each configured channel's expected-model quorum, starts its endpoint,
// and serves the wait_message loop until every channel's register set has
// emptied. Grounded on
// original_source/dse/modelc/adapter/simbus/{states,simbus}.c and built
// directly on package adapter's Bus (C3).
/*
 * Copyright (c) 2024, dsebus authors.
 */
package simbus

import (
	"context"
	"time"

	"github.com/teris-io/shortid"

	"github.com/dsebus/dsebus/adapter"
	"github.com/dsebus/dsebus/config"
	"github.com/dsebus/dsebus/dsebuserr"
	"github.com/dsebus/dsebus/dsestats"
	"github.com/dsebus/dsebus/endpoint"
	"github.com/dsebus/dsebus/hk"
	"github.com/dsebus/dsebus/internal/nlog"
)

// sid generates short, unique suffixes for this process's hk job names, so
// a fast restart of the same-named Stack never collides with a
// not-yet-unregistered job from the previous run.
var sid = shortid.MustNew(1, shortid.DEFAULT_ABC, 0)

// staleTimeout bounds how long a registered-but-silent peer is tolerated
// before PruneStale force-exits it (dead-peer GC, §4.13).
const staleTimeout = 30 * time.Second

// Config is the resolved set of parameters a bus process needs: enough of
// the Stack document to seed expected-model quorums, plus the listen
// address and step size.
type Config struct {
	Name      string
	Transport string
	URI       string
	StepSize  float64
	Stack     *config.SimulationSpec

	// Stats, if non-nil, receives per-channel quorum observations while Run
	// is serving. Left nil by default: the core package never forces a
	// metrics dependency on an embedder that doesn't want one.
	Stats *dsestats.Collector
}

// Run starts the bus endpoint and serves it until ctx is cancelled or
// every channel's register set empties. It returns nil on either a clean
// ctx cancellation or natural quiescence, and a non-nil error for a
// structural transport/config failure.
func Run(ctx context.Context, cfg Config) error {
	kind, err := endpoint.ParseTransport(cfg.Transport)
	if err != nil {
		return err
	}
	if kind != endpoint.KindMessage && kind != endpoint.KindSimBus {
		return dsebuserr.NewConfigError(
			"simbus: transport %q is not a bus-mode transport (use message or simbus)", cfg.Transport)
	}

	ep := endpoint.NewSimBusListener(cfg.URI, 0)
	if err := ep.Start(); err != nil {
		return err
	}
	defer ep.Disconnect()

	bus := adapter.NewBus(ep, cfg.StepSize)
	for _, mi := range cfg.Stack.Models {
		for _, ch := range mi.Channels {
			bus.ExpectModels(ch.ChannelName, ch.ExpectedModelCount)
		}
	}

	stop := make(chan struct{})
	go func() {
		<-ctx.Done()
		ep.Interrupt()
		close(stop)
	}()

	runID, err := sid.Generate()
	if err != nil {
		return dsebuserr.NewConfigError("simbus: could not generate run id: %v", err)
	}
	jobPrefix := "simbus-" + cfg.Name + "-" + runID
	hk.Reg(jobPrefix+"-prune", func() time.Duration {
		if n := bus.PruneStale(staleTimeout); n > 0 {
			nlog.Warningf("simbus: pruned %d stale model registration(s)", n)
		}
		return staleTimeout / 3
	}, staleTimeout/3)
	defer hk.Unreg(jobPrefix + "-prune")

	if cfg.Stats != nil {
		hk.Reg(jobPrefix+"-stats", func() time.Duration {
			for name, rc := range bus.QuorumSnapshot() {
				cfg.Stats.ObserveQuorum(name, rc[0])
			}
			return time.Second
		}, time.Second)
		defer hk.Unreg(jobPrefix + "-stats")
	}

	nlog.Infof("simbus: %q (run %s) listening on %s (transport=%s)", cfg.Name, runID, ep.Addr(), cfg.Transport)
	return bus.Serve(stop)
}
