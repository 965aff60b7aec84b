package simbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/dsebus/dsebus/adapter"
	"github.com/dsebus/dsebus/config"
	"github.com/dsebus/dsebus/endpoint"
	"github.com/dsebus/dsebus/signal"
	"github.com/dsebus/dsebus/simbus"
)

func TestRunStopsWhenCtxCancelled(t *testing.T) {
	cfg := simbus.Config{
		Name:      "test_bus",
		Transport: "message",
		URI:       ":0",
		StepSize:  0.01,
		Stack: &config.SimulationSpec{
			Models: []config.ModelInstanceSpec{
				{Name: "m1", Channels: []config.ChannelSpec{{ChannelName: "data", ExpectedModelCount: 1}}},
			},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- simbus.Run(ctx, cfg) }()

	time.Sleep(50 * time.Millisecond) // let the listener come up
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("simbus.Run did not stop after ctx cancellation")
	}
}

func TestRunStopsWhenAllModelsExit(t *testing.T) {
	busEp := endpoint.NewMessageListener(":0", 0)
	if err := busEp.Start(); err != nil {
		t.Fatal(err)
	}
	addr := busEp.Addr()
	busEp.Disconnect()

	cfg := simbus.Config{
		Name:      "test_bus",
		Transport: "message",
		URI:       addr,
		StepSize:  0.01,
		Stack: &config.SimulationSpec{
			Models: []config.ModelInstanceSpec{
				{Name: "m1", Channels: []config.ChannelSpec{{ChannelName: "data", ExpectedModelCount: 1}}},
			},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- simbus.Run(ctx, cfg) }()
	time.Sleep(50 * time.Millisecond)

	dial := endpoint.NewMessageDialer(addr, 55)
	if err := dial.Start(); err != nil {
		t.Fatal(err)
	}
	defer dial.Disconnect()
	a := adapter.NewAdapter(dial, 0.01)

	am := adapter.NewAdapterModel(55)
	am.Channels["data"] = signal.NewChannel("data", 0)
	if err := a.Register(am); err != nil {
		t.Fatal(err)
	}
	if err := a.Exit(am); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown after all models exited, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("simbus.Run did not stop after all models exited")
	}
}
