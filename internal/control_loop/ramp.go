package control_loop

import "github.com/longctl/longctl/internal/util"

// RampControlLoop moves a value towards a target with a fixed rate of change.
// It is used to apply and release the brakes gracefully around standstill.
type RampControlLoop struct {
	// maximum change per second
	ratePerSecond float64
	// cycles per second
	rate float64
}

func NewRampControlLoop(ratePerSecond float64, rate float64) *RampControlLoop {
	return &RampControlLoop{
		ratePerSecond: ratePerSecond,
		rate:          rate,
	}
}

// StepSize returns the maximum change of a single cycle for the given factor
func (l *RampControlLoop) StepSize(factor float64) float64 {
	return l.ratePerSecond / l.rate * factor
}

// Step advances current by one cycle towards target, scaled by factor,
// without overshooting the target
func (l *RampControlLoop) Step(current float64, target float64, factor float64) float64 {
	step := l.StepSize(factor)
	if step <= 0 {
		return current
	}
	err := target - current
	if err > 0 {
		return current + util.Coerce(step, 0, err)
	}
	return current + util.Coerce(-step, err, 0)
}
