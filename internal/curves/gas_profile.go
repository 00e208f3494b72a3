package curves

import (
	"github.com/longctl/longctl/internal/configuration"
	"github.com/longctl/longctl/internal/util"
)

// speed breakpoints of the default and eco profiles in m/s
var profileSpeeds = []float64{0.0, 1.4082, 2.8031, 4.2266, 5.3827, 6.1656, 7.2478, 8.2831, 10.2447, 12.964, 15.423, 18.119, 20.117, 24.4661, 29.0581, 32.7101, 35.7633}

// speed breakpoints of the coarse three-point profiles
var coarseSpeeds = []float64{0., 9., 55.}

var (
	defaultGas = []float64{0.3, 0.304, 0.315, 0.342, 0.365, 0.386, 0.429, 0.454, 0.472, 0.48, 0.489, 0.421, 0.432, 0.480, 0.55, 0.621, 0.7}

	sportGasInterceptor = []float64{0.3, 0.9, 0.9}
	sportGas            = []float64{0.5, 0.95, 0.99}

	ecoGasInterceptor = []float64{0.15, 0.1548, 0.1646, 0.179, 0.1976, 0.2143, 0.2481, 0.2689, 0.2873, 0.3011, 0.3162, 0.3349, 0.3508, 0.3991, 0.4647, 0.529, 0.5981}
	ecoGas            = []float64{0.25, 0.2, 0.2}
)

// GasProfile is the maximum gas command over vehicle speed for a single gas mode
type GasProfile struct {
	Mode        configuration.GasMode     `json:"mode"`
	Interceptor bool                      `json:"interceptor"`
	Curve       configuration.CurveConfig `json:"curve"`
}

// GasCurve returns the maximum gas curve for the given gas mode.
// The second return value is false if the mode does not select a profile,
// in which case the configured fallback curve has to be used.
func GasCurve(mode configuration.GasMode, hasInterceptor bool) (configuration.CurveConfig, bool) {
	bp, v, ok := gasCurve(mode, hasInterceptor)
	if !ok {
		return configuration.CurveConfig{}, false
	}
	return configuration.CurveConfig{
		BP: append([]float64{}, bp...),
		V:  append([]float64{}, v...),
	}, true
}

// gasCurve returns the shared profile slices, they must not be modified
func gasCurve(mode configuration.GasMode, hasInterceptor bool) (bp []float64, v []float64, ok bool) {
	switch mode {
	case configuration.GasModeDefault:
		return profileSpeeds, defaultGas, true
	case configuration.GasModeSport:
		if hasInterceptor {
			return coarseSpeeds, sportGasInterceptor, true
		}
		return coarseSpeeds, sportGas, true
	case configuration.GasModeEco:
		if hasInterceptor {
			return profileSpeeds, ecoGasInterceptor, true
		}
		return coarseSpeeds, ecoGas, true
	}
	return nil, nil, false
}

// GasMax evaluates the gas profile of the given mode at vEgo.
// The result is within [0..1] and rounded to 5 decimals.
func GasMax(vEgo float64, mode configuration.GasMode, hasInterceptor bool, fallback configuration.CurveConfig) float64 {
	bp, v, ok := gasCurve(mode, hasInterceptor)
	if !ok {
		bp, v = fallback.BP, fallback.V
	}
	value := util.Coerce(util.Interp(vEgo, bp, v), 0, 1)
	return util.RoundTo(value, 5)
}

// GasProfiles lists the profiles of all selectable gas modes
func GasProfiles(hasInterceptor bool) []GasProfile {
	var result []GasProfile
	for _, mode := range []configuration.GasMode{
		configuration.GasModeDefault,
		configuration.GasModeSport,
		configuration.GasModeEco,
	} {
		curve, _ := GasCurve(mode, hasInterceptor)
		result = append(result, GasProfile{
			Mode:        mode,
			Interceptor: hasInterceptor,
			Curve:       curve,
		})
	}
	return result
}
