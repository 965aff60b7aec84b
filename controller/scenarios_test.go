package controller_test

import (
	"math"
	"testing"

	"github.com/dsebus/dsebus/adapter"
	"github.com/dsebus/dsebus/controller"
	"github.com/dsebus/dsebus/endpoint"
)

// S2: two models sharing a loopback channel. A sets ping, B copies
// pong <- ping; after one cycle pong reflects A's write, and after A
// flips sign the next cycle reflects the flip too.
func TestTwoModelLoopbackPingPong(t *testing.T) {
	hub := endpoint.NewHub()
	epA := endpoint.NewLoopbackEndpoint(hub, 1)
	epB := endpoint.NewLoopbackEndpoint(hub, 2)

	ctrl := controller.NewController(0.01, false)

	miA := controller.NewModelInstance(1, "A")
	miA.Adapter = adapter.NewAdapter(epA, 0.01)
	ctrl.ConfigureChannel(miA, "data", "stepA", []string{"ping"}, false, nil)

	miB := controller.NewModelInstance(2, "B")
	miB.Adapter = adapter.NewAdapter(epB, 0.01)
	// B shares the same underlying *signal.Channel as A by aliasing it --
	// the loopback contract (§4.3): same name, same store.
	sharedCh := miA.AdapterModel.Channel("data")
	miB.AdapterModel.Channels["data"] = sharedCh
	ctrl.ConfigureChannel(miB, "data", "stepB", []string{"ping", "pong"}, false, nil)

	var sign float64 = 1
	miA.Model = &controller.Model{
		Step: func(desc *controller.ModelDesc, modelTime *float64, stopTime float64) error {
			desc.Channels[0].Doubles[0] = 100 * sign // ping
			*modelTime = stopTime
			return nil
		},
	}
	miB.Model = &controller.Model{
		Step: func(desc *controller.ModelDesc, modelTime *float64, stopTime float64) error {
			ping := desc.Channels[0].Doubles[0]
			desc.Channels[0].Doubles[1] = ping
			*modelTime = stopTime
			return nil
		},
	}

	ctrl.AddModelInstance(miA)
	ctrl.AddModelInstance(miB)
	if err := miA.Adapter.Register(miA.AdapterModel); err != nil {
		t.Fatal(err)
	}
	if err := miB.Adapter.Register(miB.AdapterModel); err != nil {
		t.Fatal(err)
	}

	if err := ctrl.RunCycle(0.01); err != nil {
		t.Fatal(err)
	}
	if got := sharedCh.Get("pong").Scalar.Current; got != 100 {
		t.Fatalf("expected pong == 100 after first cycle, got %v", got)
	}

	sign = -1
	if err := ctrl.RunCycle(0.02); err != nil {
		t.Fatal(err)
	}
	if got := sharedCh.Get("pong").Scalar.Current; got != -100 {
		t.Fatalf("expected pong == -100 after second cycle, got %v", got)
	}
}

// S4, end to end: a transform is configured on the bus-facing channel; the
// model sees the transformed value, writes a new one, and the bus observes
// the inverse-transformed result.
func TestTransformEndToEndThroughCycle(t *testing.T) {
	hub := endpoint.NewHub()
	ep := endpoint.NewLoopbackEndpoint(hub, 1)
	ctrl := controller.NewController(0.01, false)

	mi := controller.NewModelInstance(1, "xform")
	mi.Adapter = adapter.NewAdapter(ep, 0.01)
	ctrl.ConfigureChannel(mi, "data", "step", []string{"x"}, false,
		map[string]controller.Transform{"x": {Factor: 2.0, Offset: 1.0}})
	mi.AdapterModel.Channel("data").Get("x").Scalar.Current = 5

	var sawAtModel float64
	mi.Model = &controller.Model{
		Step: func(desc *controller.ModelDesc, modelTime *float64, stopTime float64) error {
			sawAtModel = desc.Channels[0].Doubles[0]
			desc.Channels[0].Doubles[0] = 21
			*modelTime = stopTime
			return nil
		},
	}
	ctrl.AddModelInstance(mi)
	if err := mi.Adapter.Register(mi.AdapterModel); err != nil {
		t.Fatal(err)
	}

	if err := ctrl.RunCycle(0.01); err != nil {
		t.Fatal(err)
	}
	if sawAtModel != 11 {
		t.Fatalf("model should see transformed value 11, saw %v", sawAtModel)
	}
	if got := mi.AdapterModel.Channel("data").Get("x").Scalar.Current; got != 10 {
		t.Fatalf("bus should see inverse-transformed value 10, got %v", got)
	}
}

// S5: sequential_cosim calls M1 to convergence before M2 is touched at all.
func TestSequentialCosimOrdersModelsFully(t *testing.T) {
	hub := endpoint.NewHub()
	ep1 := endpoint.NewLoopbackEndpoint(hub, 1)
	ep2 := endpoint.NewLoopbackEndpoint(hub, 2)
	ctrl := controller.NewController(0.005, true) // sequential_cosim = true

	mi1 := controller.NewModelInstance(1, "M1")
	mi1.Adapter = adapter.NewAdapter(ep1, 0.005)
	mi2 := controller.NewModelInstance(2, "M2")
	mi2.Adapter = adapter.NewAdapter(ep2, 0.005)

	var order []string
	var m1StepsWhenM2Started int
	m1Steps := 0
	mi1.Model = &controller.Model{
		Step: func(desc *controller.ModelDesc, modelTime *float64, stopTime float64) error {
			m1Steps++
			order = append(order, "M1")
			*modelTime = stopTime
			return nil
		},
	}
	mi2.Model = &controller.Model{
		Step: func(desc *controller.ModelDesc, modelTime *float64, stopTime float64) error {
			m1StepsWhenM2Started = m1Steps
			order = append(order, "M2")
			*modelTime = stopTime
			return nil
		},
	}

	ctrl.AddModelInstance(mi1)
	ctrl.AddModelInstance(mi2)
	if err := mi1.Adapter.Register(mi1.AdapterModel); err != nil {
		t.Fatal(err)
	}
	if err := mi2.Adapter.Register(mi2.AdapterModel); err != nil {
		t.Fatal(err)
	}

	if err := ctrl.RunCycle(0.01); err != nil {
		t.Fatal(err)
	}

	if len(order) < 3 || order[0] != "M1" || order[1] != "M1" || order[2] != "M2" {
		t.Fatalf("expected M1,M1,M2 ordering, got %v", order)
	}
	if m1StepsWhenM2Started != 2 {
		t.Fatalf("M2's first step should observe M1 already at 2 sub-steps, got %d", m1StepsWhenM2Started)
	}
	if math.Abs(mi1.ModelTime-0.01) > 1e-9 || math.Abs(mi2.ModelTime-0.01) > 1e-9 {
		t.Fatalf("both instances should converge to 0.01, got M1=%v M2=%v", mi1.ModelTime, mi2.ModelTime)
	}
}
