package control_loop

import (
	"math"

	"github.com/longctl/longctl/internal/configuration"
	"github.com/longctl/longctl/internal/ui"
	"github.com/longctl/longctl/internal/util"
)

const (
	// time in seconds the output has to be saturated before it is reported
	DefaultSaturationLimit = 0.8
	// errors below this magnitude never count towards saturation
	saturationErrorThreshold = 0.1
)

// PidState is a snapshot of the internal state of a PidLoop
type PidState struct {
	Setpoint  float64 `json:"setpoint"`
	P         float64 `json:"p"`
	I         float64 `json:"i"`
	F         float64 `json:"f"`
	Output    float64 `json:"output"`
	Limits    Limits  `json:"limits"`
	Saturated bool    `json:"saturated"`
}

// PidLoop is a PI controller with speed scheduled gains and a feedforward term.
// It is advanced exactly once per control cycle, so time is measured in cycles of 1/rate seconds.
type PidLoop struct {
	// Proportional gain over speed
	kp configuration.CurveConfig
	// Integral gain over speed
	ki configuration.CurveConfig
	// Feedforward gain over speed
	kf configuration.CurveConfig

	// cycles per second
	rate   float64
	limits Limits

	setpoint float64
	p        float64
	// integral accumulator, only ever changed by Update and Reset
	integral float64
	f        float64
	output   float64

	satLimit  float64
	satCount  float64
	saturated bool
}

func NewPidLoop(kp, ki, kf configuration.CurveConfig, rate float64) *PidLoop {
	return &PidLoop{
		kp:       kp,
		ki:       ki,
		kf:       kf,
		rate:     rate,
		limits:   Limits{Pos: 1, Neg: -1},
		satLimit: DefaultSaturationLimit,
	}
}

// SetGains replaces the proportional and integral gain schedules
func (l *PidLoop) SetGains(kp, ki configuration.CurveConfig) {
	l.kp = kp
	l.ki = ki
}

func (l *PidLoop) SetFeedforwardGain(kf configuration.CurveConfig) {
	l.kf = kf
}

func (l *PidLoop) SetLimits(pos, neg float64) {
	l.limits = Limits{Pos: pos, Neg: neg}
}

func (l *PidLoop) Limits() Limits {
	return l.limits
}

// Reset clears the integral accumulator and the saturation tracking.
// Gains and limits are kept.
func (l *PidLoop) Reset() {
	l.p = 0
	l.integral = 0
	l.f = 0
	l.satCount = 0
	l.saturated = false
}

// Update advances the loop by one cycle and returns the new output.
// The proportional term ignores errors smaller than deadzone, the integral
// accumulator is not touched at all while freezeIntegrator is set.
func (l *PidLoop) Update(setpoint, measurement, speed, deadzone, feedforward float64, freezeIntegrator bool) float64 {
	l.setpoint = setpoint
	err := setpoint - measurement

	proportionalError := err
	if math.Abs(err) < deadzone {
		proportionalError = 0
	}

	l.p = proportionalError * l.kp.Evaluate(speed)
	l.f = feedforward * l.kf.Evaluate(speed)

	if !freezeIntegrator {
		integral := l.integral + err*l.ki.Evaluate(speed)/l.rate
		// keep p + i within the limits instead of winding up,
		// p is clamped first so a large p never drives i the other way
		p := l.limits.Clamp(l.p)
		l.integral = util.Coerce(integral, l.limits.Neg-p, l.limits.Pos-p)
	}

	unclamped := l.p + l.integral + l.f
	l.output = l.limits.Clamp(unclamped)
	l.saturated = l.checkSaturation(l.limits.Exceeds(unclamped), err)

	ui.Debug("PidLoop: setpoint %.4f, measured %.4f, p %.4f, i %.4f, f %.4f, output %.4f", setpoint, measurement, l.p, l.integral, l.f, l.output)

	return l.output
}

func (l *PidLoop) checkSaturation(saturated bool, err float64) bool {
	step := 1 / l.rate
	if saturated && math.Abs(err) > saturationErrorThreshold {
		l.satCount += step
	} else {
		l.satCount -= step
	}
	l.satCount = util.Coerce(l.satCount, 0, 1)
	return l.satCount > l.satLimit
}

// Saturated returns true if the output has been pinned to a limit for longer than the saturation limit
func (l *PidLoop) Saturated() bool {
	return l.saturated
}

func (l *PidLoop) Integral() float64 {
	return l.integral
}

func (l *PidLoop) Output() float64 {
	return l.output
}

func (l *PidLoop) State() PidState {
	return PidState{
		Setpoint:  l.setpoint,
		P:         l.p,
		I:         l.integral,
		F:         l.f,
		Output:    l.output,
		Limits:    l.limits,
		Saturated: l.saturated,
	}
}
