// Command modelc runs one or more ModelInstances to completion (C16): in
// loopback mode it is a self-contained single-process simulation; with
// --transport=message|simbus it instead dials an external simbus process
// and runs only the --name-selected subset of the Stack's models, the way
// a real cosimulation deploys one modelc per participant.
/*
 * Copyright (c) 2024, dsebus authors.
 */
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dsebus/dsebus/config"
	"github.com/dsebus/dsebus/dsebuserr"
	"github.com/dsebus/dsebus/endpoint"
	"github.com/dsebus/dsebus/internal/nlog"
	"github.com/dsebus/dsebus/runtime"
)

var (
	name      string
	transport string
	uri       string
	stepsize  float64
	endtime   float64
	logger    int
)

func init() {
	flag.StringVar(&name, "name", "", "model instance name(s), ';'-separated; empty runs every instance in the Stack")
	flag.StringVar(&transport, "transport", "loopback", "transport tag (loopback|message|simbus)")
	flag.StringVar(&uri, "uri", "", "bus URI to dial (required unless transport=loopback)")
	flag.Float64Var(&stepsize, "stepsize", 0, "override the Stack's step size, seconds")
	flag.Float64Var(&endtime, "endtime", 0, "override the Stack's end time, seconds")
	flag.IntVar(&logger, "logger", 3, "log verbosity: 1 (debug) .. 5 (quiet)")
}

func main() {
	flag.Parse()
	os.Exit(run(flag.Args()))
}

func run(yamlPaths []string) int {
	nlog.SetVerbose(logger <= 2)

	if len(yamlPaths) == 0 {
		fmt.Fprintln(os.Stderr, "modelc: at least one YAML document is required")
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
	if stepsize > 0 {
		spec.StepSize = stepsize
	}
	if endtime > 0 {
		spec.EndTime = endtime
	}
	if name != "" {
		spec.Models = selectModels(spec.Models, strings.Split(name, ";"))
		if len(spec.Models) == 0 {
			fmt.Fprintf(os.Stderr, "modelc: no model instance matches --name=%q\n", name)
			return dsebuserr.ExitInval
		}
	}

	kind, err := endpoint.ParseTransport(transport)
	if err != nil {
		nlog.Errorln(err)
		return dsebuserr.CodeOf(err)
	}
	if kind != endpoint.KindLoopback && uri == "" {
		fmt.Fprintln(os.Stderr, "modelc: --uri is required for a message/simbus transport")
		return dsebuserr.ExitInval
	}

	var driver *runtime.Driver
	if kind == endpoint.KindLoopback {
		driver, err = runtime.NewDriver(spec)
	} else {
		driver, err = runtime.NewDistributedDriver(spec, kind, uri)
	}
	if err != nil {
		nlog.Errorln(err)
		return dsebuserr.CodeOf(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := runLoop(ctx, driver, spec.EndTime, spec.StepSize)
	if exitErr := driver.Exit(); exitErr != nil && runErr == nil {
		runErr = exitErr
	}
	if runErr != nil {
		nlog.Errorln(runErr)
		return dsebuserr.CodeOf(runErr)
	}
	if ctx.Err() != nil {
		return dsebuserr.ExitCanceled
	}
	return dsebuserr.ExitOK
}

// runLoop advances driver in stepSize increments until endTime (0 means
// run forever, stopping only on ctx cancellation -- the distributed case,
// where an external simbus process or gateway governs termination).
func runLoop(ctx context.Context, d *runtime.Driver, endTime, stepSize float64) error {
	for endTime <= 0 || d.ModelTime() < endTime-stepSize/2 {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		target := d.ModelTime() + stepSize
		if endTime > 0 && target > endTime {
			target = endTime
		}
		if err := d.RunTo(target); err != nil {
			return err
		}
	}
	nlog.Infof("modelc: reached end time %g", endTime)
	return nil
}

func selectModels(models []config.ModelInstanceSpec, names []string) []config.ModelInstanceSpec {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	out := make([]config.ModelInstanceSpec, 0, len(models))
	for _, m := range models {
		if want[m.Name] {
			out = append(out, m)
		}
	}
	return out
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
