package configuration

import "github.com/longctl/longctl/internal/util"

const (
	// DefaultRate is the nominal control loop frequency in Hz
	DefaultRate = 100.0
)

type VehicleConfig struct {
	Id string `json:"id"`
	// The vehicle uses a gas interceptor instead of the stock accelerator interface
	HasInterceptor bool `json:"hasInterceptor"`
	// The vehicle handles stopping on its own, so overshoot prevention is not needed
	StoppingControl bool `json:"stoppingControl"`
}

// CurveConfig is a breakpoint/value pair, BP must be sorted ascending
type CurveConfig struct {
	BP []float64 `json:"bp"`
	V  []float64 `json:"v"`
}

func (c CurveConfig) IsEmpty() bool {
	return len(c.BP) == 0 && len(c.V) == 0
}

// Evaluate interpolates the curve at the given input
func (c CurveConfig) Evaluate(x float64) float64 {
	return util.Interp(x, c.BP, c.V)
}

// Scaled returns a copy of this curve with every value multiplied by factor
func (c CurveConfig) Scaled(factor float64) CurveConfig {
	v := make([]float64, len(c.V))
	for i, value := range c.V {
		v[i] = value * factor
	}
	bp := make([]float64, len(c.BP))
	copy(bp, c.BP)
	return CurveConfig{BP: bp, V: v}
}

func ConstantCurve(value float64) CurveConfig {
	return CurveConfig{BP: []float64{0}, V: []float64{value}}
}

type LongitudinalConfig struct {
	Kp       CurveConfig `json:"kp"`
	Ki       CurveConfig `json:"ki"`
	Kf       CurveConfig `json:"kf"`
	Deadzone CurveConfig `json:"deadzone"`
	// Fallback maximum gas curve, used when no gas mode is selected
	GasMax   CurveConfig `json:"gasMax"`
	BrakeMax CurveConfig `json:"brakeMax"`

	// lead distance -> brake rate multiplier while stopping
	StoppingLeadFactor CurveConfig `json:"stoppingLeadFactor"`
	// lead distance -> brake release multiplier while starting
	StartingLeadFactor CurveConfig `json:"startingLeadFactor"`

	// Keep controlling while the driver presses a pedal, only used by test benches
	IgnorePedalOverride bool `json:"ignorePedalOverride"`
}

var (
	DefaultKp = CurveConfig{BP: []float64{0., 5., 35.}, V: []float64{3.6, 2.4, 1.5}}
	DefaultKi = CurveConfig{BP: []float64{0., 35.}, V: []float64{0.54, 0.36}}

	DefaultInterceptorKp = CurveConfig{BP: []float64{0., 5., 35.}, V: []float64{1.2, 0.8, 0.5}}
	DefaultInterceptorKi = CurveConfig{BP: []float64{0., 35.}, V: []float64{0.18, 0.12}}

	DefaultKf       = ConstantCurve(1.0)
	DefaultDeadzone = ConstantCurve(0.0)
	DefaultGasMax   = CurveConfig{BP: []float64{0., 9., 55.}, V: []float64{0.5, 0.5, 0.5}}
	DefaultBrakeMax = CurveConfig{BP: []float64{0., 5.}, V: []float64{1.0, 0.8}}

	DefaultStoppingLeadFactor = CurveConfig{
		BP: []float64{2.0, 3.0, 4.0, 5.0, 6.0, 7.0, 8.0},
		V:  []float64{3.0, 2.1, 1.5, 1.0, 0.6, 0.29, 0.0},
	}
	DefaultStartingLeadFactor = CurveConfig{
		BP: []float64{0.0, 2.0, 4.0, 6.0},
		V:  []float64{0.0, 0.5, 1.0, 2.0},
	}
)

// ApplyDefaults replaces every empty curve with its default
func (c *LongitudinalConfig) ApplyDefaults(hasInterceptor bool) {
	if c.Kp.IsEmpty() {
		if hasInterceptor {
			c.Kp = DefaultInterceptorKp
		} else {
			c.Kp = DefaultKp
		}
	}
	if c.Ki.IsEmpty() {
		if hasInterceptor {
			c.Ki = DefaultInterceptorKi
		} else {
			c.Ki = DefaultKi
		}
	}
	if c.Kf.IsEmpty() {
		c.Kf = DefaultKf
	}
	if c.Deadzone.IsEmpty() {
		c.Deadzone = DefaultDeadzone
	}
	if c.GasMax.IsEmpty() {
		c.GasMax = DefaultGasMax
	}
	if c.BrakeMax.IsEmpty() {
		c.BrakeMax = DefaultBrakeMax
	}
	if c.StoppingLeadFactor.IsEmpty() {
		c.StoppingLeadFactor = DefaultStoppingLeadFactor
	}
	if c.StartingLeadFactor.IsEmpty() {
		c.StartingLeadFactor = DefaultStartingLeadFactor
	}
}

// DefaultLongitudinalConfig returns a fully populated tuning for the given vehicle type
func DefaultLongitudinalConfig(hasInterceptor bool) LongitudinalConfig {
	c := LongitudinalConfig{}
	c.ApplyDefaults(hasInterceptor)
	return c
}
