package config_test

import (
	"os"
	"testing"

	"github.com/dsebus/dsebus/config"
)

const stackYAML = `
kind: Stack
metadata:
  name: counter_sim
spec:
  stepSize: 0.005
  endTime: 0.05
  sequentialCosim: false
  transport: loopback
  models:
    - name: counter_model
      uid: 1
      channels:
        - name: data
          expectedModelCount: 1
`

const modelYAML = `
kind: Model
metadata:
  name: counter_model
spec:
  runtime:
    kind: ""
    path: ${COUNTER_MODEL_PATH}
  channels:
    - name: data
      function: step
      signalGroup: counter_group
      binary: false
`

const signalGroupYAML = `
kind: SignalGroup
metadata:
  name: counter_group
spec:
  vectorType: scalar
  signals:
    - signal: counter
      annotations:
        initial_value: "42"
      transform:
        linear:
          factor: 2.0
          offset: 1.0
`

func TestLoadJoinsStackModelAndSignalGroup(t *testing.T) {
	os.Setenv("COUNTER_MODEL_PATH", "/tmp/counter.so")
	defer os.Unsetenv("COUNTER_MODEL_PATH")

	sim, err := config.Load([]string{stackYAML, modelYAML, signalGroupYAML})
	if err != nil {
		t.Fatal(err)
	}
	if sim.Name != "counter_sim" || sim.StepSize != 0.005 || sim.EndTime != 0.05 {
		t.Fatalf("unexpected simulation spec: %+v", sim)
	}
	if len(sim.Models) != 1 {
		t.Fatalf("expected one resolved model, got %d", len(sim.Models))
	}
	mi := sim.Models[0]
	if mi.Path != "/tmp/counter.so" {
		t.Fatalf("expected ${COUNTER_MODEL_PATH} expanded, got %q", mi.Path)
	}
	if len(mi.Channels) != 1 {
		t.Fatalf("expected one resolved channel, got %d", len(mi.Channels))
	}
	ch := mi.Channels[0]
	if len(ch.SignalNames) != 1 || ch.SignalNames[0] != "counter" {
		t.Fatalf("unexpected signal names: %v", ch.SignalNames)
	}
	if ch.ExpectedModelCount != 1 {
		t.Fatalf("expected expectedModelCount propagated from Stack, got %d", ch.ExpectedModelCount)
	}
	xf, ok := ch.Transforms["counter"]
	if !ok || xf.Factor != 2.0 || xf.Offset != 1.0 {
		t.Fatalf("expected transform factor=2 offset=1, got %+v ok=%v", xf, ok)
	}
}

func TestLoadRejectsStackReferencingUnknownModel(t *testing.T) {
	_, err := config.Load([]string{stackYAML})
	if err == nil {
		t.Fatal("expected ConfigError when Model document is missing")
	}
}

func TestLoadRejectsMissingStack(t *testing.T) {
	_, err := config.Load([]string{modelYAML, signalGroupYAML})
	if err == nil {
		t.Fatal("expected ConfigError when no Stack document is supplied")
	}
}

func TestSchemaSearchFindsSignalAnnotation(t *testing.T) {
	os.Setenv("COUNTER_MODEL_PATH", "/tmp/counter.so")
	defer os.Unsetenv("COUNTER_MODEL_PATH")
	sim, err := config.Load([]string{stackYAML, modelYAML, signalGroupYAML})
	if err != nil {
		t.Fatal(err)
	}
	obj, ok := config.SchemaSearch(sim, "counter_model", "data", "counter")
	if !ok {
		t.Fatal("expected schema search to find the counter signal")
	}
	if obj.Annotations["initial_value"] != "42" {
		t.Fatalf("unexpected annotations: %+v", obj.Annotations)
	}
}
