package controller

import "github.com/dsebus/dsebus/dsebuserr"

// Controller owns the configured ModelInstances and drives the per-cycle
// step loop (§4.4). SequentialCosim mirrors SimulationSpec's
// sequential_cosim flag: when true, each ModelInstance is advanced fully to
// the cycle's target time (sub-step, handshake, repeat) before the next is
// touched; when false, every instance takes one sub-step-plus-handshake per
// pass, interleaved -- matching §5's per-cycle ordering (apply deltas ->
// transform-to-model -> step -> transform-from-model -> emit delta) with
// the handshake as the delta exchange.
type Controller struct {
	StepSize        float64
	SequentialCosim bool

	Models []*ModelInstance
}

func NewController(stepSize float64, sequentialCosim bool) *Controller {
	return &Controller{StepSize: stepSize, SequentialCosim: sequentialCosim}
}

func (c *Controller) AddModelInstance(mi *ModelInstance) {
	c.Models = append(c.Models, mi)
}

// Step advances mi from its current ModelTime to target using Kahan
// summation, exactly as §4.4: y = step_size - correction, t = model_time +
// y, correction = (t - model_time) - y; the final sub-step snaps to target
// rather than overshooting past target + step_size*0.01. Each sub-step runs
// the full §5 cycle (transform-to-model, model.step, transform-from-model,
// then the adapter's ready/start handshake). On a model error the
// last-good ModelTime is preserved and the error is returned.
func (c *Controller) Step(mi *ModelInstance, target float64) error {
	epsilon := c.StepSize * 0.01
	correction := 0.0

	for mi.ModelTime < target-epsilon {
		y := c.StepSize - correction
		t := mi.ModelTime + y
		correction = (t - mi.ModelTime) - y

		overshoot := t > target+epsilon
		subTarget := t
		if overshoot {
			subTarget = target
		}

		if err := c.substep(mi, subTarget); err != nil {
			return err
		}

		if overshoot || mi.ModelTime >= target-epsilon {
			mi.ModelTime = target
			break
		}
	}
	return nil
}

// oneSubStep advances mi by exactly one Kahan sub-step toward target
// (without looping to convergence), for the interleaved (non-sequential)
// cosim mode. It reports whether mi had already reached target.
func (c *Controller) oneSubStep(mi *ModelInstance, target float64) (bool, error) {
	epsilon := c.StepSize * 0.01
	if mi.ModelTime >= target-epsilon {
		return true, nil
	}
	y := c.StepSize - mi.kahanCorrection
	t := mi.ModelTime + y
	mi.kahanCorrection = (t - mi.ModelTime) - y

	overshoot := t > target+epsilon
	subTarget := t
	if overshoot {
		subTarget = target
	}

	if err := c.substep(mi, subTarget); err != nil {
		return false, err
	}
	if overshoot {
		mi.ModelTime = target
	}
	return mi.ModelTime >= target-epsilon, nil
}

// substep runs one model_step call plus its surrounding transforms and
// adapter handshake -- the unit §5 calls one cycle.
func (c *Controller) substep(mi *ModelInstance, subTarget float64) error {
	if mi.Model == nil || mi.Model.Step == nil {
		return dsebuserr.NewModelError(nil, "model %q has no bound step function", mi.Name)
	}
	for _, mfc := range mi.Channels {
		mfc.TransformToModel()
	}

	newTime := mi.ModelTime
	if err := mi.Model.Step(mi.Desc, &newTime, subTarget); err != nil {
		return dsebuserr.NewModelError(err, "model %q step failed", mi.Name)
	}
	mi.ModelTime = newTime

	for _, mfc := range mi.Channels {
		mfc.TransformFromModel()
	}

	return c.handshake(mi)
}

// RunCycle advances every ModelInstance to target, per SequentialCosim.
func (c *Controller) RunCycle(target float64) error {
	if c.SequentialCosim {
		for _, mi := range c.Models {
			if err := c.Step(mi, target); err != nil {
				return err
			}
		}
		return nil
	}

	done := make(map[*ModelInstance]bool, len(c.Models))
	for len(done) < len(c.Models) {
		for _, mi := range c.Models {
			if done[mi] {
				continue
			}
			reached, err := c.oneSubStep(mi, target)
			if err != nil {
				return err
			}
			if reached {
				done[mi] = true
			}
		}
	}
	return nil
}

func (c *Controller) handshake(mi *ModelInstance) error {
	if mi.Adapter == nil {
		return nil
	}
	if err := mi.Adapter.Ready(mi.AdapterModel); err != nil {
		return err
	}
	return mi.Adapter.Start(mi.AdapterModel)
}
