package runtime

import (
	"github.com/dsebus/dsebus/config"
	"github.com/dsebus/dsebus/dsebuserr"
)

// Gateway is the façade from §4.7: a foreign loop calls Setup once, then
// Sync(t) every tick to push the in-process simulation forward, then Exit.
// It owns nothing a Driver doesn't already provide -- it exists so an
// embedder never touches config/controller/adapter types directly.
type Gateway struct {
	driver *Driver
}

func NewGateway() *Gateway { return &Gateway{} }

// Setup parses yamls into a SimulationSpec and builds the Driver. stepSize
// and endTime are the gateway caller's own cadence and override whatever a
// Stack document specified, since a gateway-driven run is stepped by an
// external clock, not the Stack's own.
func (g *Gateway) Setup(name string, yamls []string, stepSize, endTime float64) error {
	spec, err := config.Load(yamls)
	if err != nil {
		return err
	}
	spec.Name = name
	spec.StepSize = stepSize
	spec.EndTime = endTime

	d, err := NewDriver(spec)
	if err != nil {
		return err
	}
	g.driver = d
	return nil
}

// Sync advances the simulation to time. If time is behind any instance's
// current model_time, it returns a gateway-behind TimeError instead of
// advancing -- §4.7's "the caller must advance its local clock and retry",
// never fatal.
func (g *Gateway) Sync(time float64) error {
	if g.driver == nil {
		return dsebuserr.NewConfigError("gateway: Sync called before Setup")
	}
	for _, mi := range g.driver.Controller.Models {
		if time < mi.ModelTime {
			return dsebuserr.NewGatewayBehindError(time, mi.ModelTime)
		}
	}
	return g.driver.RunTo(time)
}

// ModelTime returns the furthest model_time reached so far.
func (g *Gateway) ModelTime() float64 {
	if g.driver == nil {
		return 0
	}
	return g.driver.ModelTime()
}

// Exit tears the simulation down.
func (g *Gateway) Exit() error {
	if g.driver == nil {
		return nil
	}
	return g.driver.Exit()
}
