// Package kahan implements Kahan compensated summation, used wherever the
// bus advances simulation time by repeated small increments (§4.4's
// controller step loop, §4.3's bus-mode time broadcast) without
// accumulating floating-point drift over long runs.
/*
 * Copyright (c) 2024, dsebus authors.
 */
package kahan

// Accumulator holds a running sum and its compensation term.
type Accumulator struct {
	Sum        float64
	correction float64
}

// Add folds x into the running sum and returns the new total.
func (a *Accumulator) Add(x float64) float64 {
	y := x - a.correction
	t := a.Sum + y
	a.correction = (t - a.Sum) - y
	a.Sum = t
	return a.Sum
}

// Reset zeroes the accumulator, e.g. when a controller is reconfigured.
func (a *Accumulator) Reset() {
	a.Sum = 0
	a.correction = 0
}
