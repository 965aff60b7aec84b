package controller

import "github.com/dsebus/dsebus/dsebuserr"

// Load resolves model code per §4.4/§6: a built-in kind ("gateway", "mcl")
// uses the in-process implementation below; "lua" is explicitly rejected
// (§1 Non-goals); an empty kind treats path as a model shared object,
// resolved through loadPlugin (build-tag gated, see loader_plugin.go /
// loader_noplugin.go).
func Load(kind, path string) (*Model, error) {
	switch kind {
	case "gateway":
		return gatewayModel(), nil
	case "mcl":
		return mclModel(), nil
	case "lua":
		return nil, dsebuserr.NewConfigError("lua models are not supported")
	case "":
		m, err := loadPlugin(path)
		if err != nil {
			return nil, err
		}
		if m.Step == nil {
			return nil, dsebuserr.NewModelError(nil, "model %q: missing mandatory symbol model_step", path)
		}
		return m, nil
	default:
		return nil, dsebuserr.NewConfigError("unknown model kind %q", kind)
	}
}

// gatewayModel is the built-in kind backing runtime.Gateway (§4.7): its
// per-cycle Step is a no-op success, since a gateway-driven simulation is
// advanced externally via sync(), not the normal controller cycle.
func gatewayModel() *Model {
	return &Model{
		Step: func(desc *ModelDesc, modelTime *float64, stopTime float64) error {
			*modelTime = stopTime
			return nil
		},
	}
}

// MCLModel adapts the legacy model_setup/model_exit function-registration
// ABI (dse/modelc/controller/controller_stub.c) into the Step signature:
// Step calls DoStep when it is set. Load("mcl", ...) builds its own MCLModel
// that nothing outside this function can reach, so its DoStep stays nil and
// an mcl model's Step only sets model_time to stop_time.
type MCLModel struct {
	DoStep func(desc *ModelDesc, modelTime *float64, stopTime float64) error
}

func mclModel() *Model {
	reg := &MCLModel{}
	return &Model{
		Step: func(desc *ModelDesc, modelTime *float64, stopTime float64) error {
			if reg.DoStep == nil {
				*modelTime = stopTime
				return nil
			}
			return reg.DoStep(desc, modelTime, stopTime)
		},
	}
}
