package runtime_test

import (
	"math"
	"testing"

	"github.com/dsebus/dsebus/dsebuserr"
	"github.com/dsebus/dsebus/runtime"
)

const stackYAML = `
kind: Stack
metadata:
  name: gw_sim
spec:
  stepSize: 0.01
  endTime: 0.05
  sequentialCosim: true
  transport: loopback
  models:
    - name: passthrough_model
      uid: 1
      channels:
        - name: data
          expectedModelCount: 1
`

const modelYAML = `
kind: Model
metadata:
  name: passthrough_model
spec:
  runtime:
    kind: gateway
    path: ""
  channels:
    - name: data
      function: step
      signalGroup: data_group
      binary: false
`

const signalGroupYAML = `
kind: SignalGroup
metadata:
  name: data_group
spec:
  vectorType: scalar
  signals:
    - signal: x
`

func TestGatewaySetupAndSyncConvergesModelTime(t *testing.T) {
	gw := runtime.NewGateway()
	if err := gw.Setup("gw_sim", []string{stackYAML, modelYAML, signalGroupYAML}, 0.01, 0.05); err != nil {
		t.Fatal(err)
	}
	defer gw.Exit()

	if err := gw.Sync(0.05); err != nil {
		t.Fatal(err)
	}
	if math.Abs(gw.ModelTime()-0.05) > 1e-9 {
		t.Fatalf("expected model_time 0.05 after sync, got %v", gw.ModelTime())
	}
}

func TestGatewaySyncBehindReturnsTimeError(t *testing.T) {
	gw := runtime.NewGateway()
	if err := gw.Setup("gw_sim", []string{stackYAML, modelYAML, signalGroupYAML}, 0.01, 0.05); err != nil {
		t.Fatal(err)
	}
	defer gw.Exit()

	if err := gw.Sync(0.03); err != nil {
		t.Fatal(err)
	}
	err := gw.Sync(0.01)
	if err == nil {
		t.Fatal("expected gateway-behind TimeError when syncing backwards")
	}
	if !dsebuserr.IsGatewayBehind(err) {
		t.Fatalf("expected IsGatewayBehind(err) true, got %v", err)
	}
}

func TestGatewaySyncBeforeSetupIsConfigError(t *testing.T) {
	gw := runtime.NewGateway()
	if err := gw.Sync(1.0); err == nil {
		t.Fatal("expected ConfigError calling Sync before Setup")
	}
}
