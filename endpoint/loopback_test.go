package endpoint_test

import (
	"testing"
	"time"

	"github.com/dsebus/dsebus/endpoint"
)

func TestLoopbackSendRecv(t *testing.T) {
	hub := endpoint.NewHub()
	a := endpoint.NewLoopbackEndpoint(hub, 1)
	b := endpoint.NewLoopbackEndpoint(hub, 2)

	tok, err := a.CreateChannel("data")
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Send(tok, []byte("ping"), 2); err != nil {
		t.Fatal(err)
	}
	ch, payload, ok, err := b.Recv(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || ch != "data" || string(payload) != "ping" {
		t.Fatalf("unexpected recv: ch=%q payload=%q ok=%v", ch, payload, ok)
	}
}

func TestLoopbackRecvTimeoutIsNotError(t *testing.T) {
	hub := endpoint.NewHub()
	a := endpoint.NewLoopbackEndpoint(hub, 1)
	_, _, ok, err := a.Recv(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("timeout must not be an error: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false on timeout")
	}
}

func TestLoopbackInterruptUnblocksRecv(t *testing.T) {
	hub := endpoint.NewHub()
	a := endpoint.NewLoopbackEndpoint(hub, 1)
	done := make(chan error, 1)
	go func() {
		_, _, _, err := a.Recv(10 * time.Second)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	a.Interrupt()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected Cancelled error after interrupt")
		}
	case <-time.After(time.Second):
		t.Fatal("interrupt did not unblock recv")
	}
}
