package configuration

import (
	"fmt"
	"math"
	"strings"

	"github.com/longctl/longctl/internal/util"
	"golang.org/x/exp/slices"
)

func Validate() error {
	return validateConfig(&CurrentConfig)
}

func validateConfig(config *Configuration) error {
	if config.Rate <= 0 {
		return fmt.Errorf("invalid rate %v, must be > 0", config.Rate)
	}

	err := validateVehicle(config)
	if err != nil {
		return err
	}
	err = validateLongitudinal(&config.Longitudinal)
	if err != nil {
		return err
	}
	err = validateGasMode(config.GasMode)
	if err != nil {
		return err
	}
	err = validateActuator(&config.Actuator)
	if err != nil {
		return err
	}
	return validateServers(config)
}

func validateVehicle(config *Configuration) error {
	if len(strings.TrimSpace(config.Vehicle.Id)) <= 0 {
		return fmt.Errorf("vehicle: missing id")
	}
	return nil
}

func validateLongitudinal(config *LongitudinalConfig) error {
	curves := []struct {
		name  string
		curve CurveConfig
	}{
		{"kp", config.Kp},
		{"ki", config.Ki},
		{"kf", config.Kf},
		{"deadzone", config.Deadzone},
		{"gasMax", config.GasMax},
		{"brakeMax", config.BrakeMax},
		{"stoppingLeadFactor", config.StoppingLeadFactor},
		{"startingLeadFactor", config.StartingLeadFactor},
	}

	for _, entry := range curves {
		err := ValidateCurve(entry.name, entry.curve)
		if err != nil {
			return err
		}
	}

	for _, entry := range []struct {
		name  string
		curve CurveConfig
	}{
		{"gasMax", config.GasMax},
		{"brakeMax", config.BrakeMax},
	} {
		for _, v := range entry.curve.V {
			if v < 0 || v > 1 {
				return fmt.Errorf("curve %s: value %v out of range, must be within [0, 1]", entry.name, v)
			}
		}
	}

	for _, v := range config.Deadzone.V {
		if v < 0 {
			return fmt.Errorf("curve deadzone: value %v must not be negative", v)
		}
	}

	return nil
}

// ValidateCurve checks that the given curve can be interpolated
func ValidateCurve(name string, curve CurveConfig) error {
	if len(curve.BP) <= 0 {
		return fmt.Errorf("curve %s: no breakpoints defined", name)
	}
	if len(curve.BP) != len(curve.V) {
		return fmt.Errorf("curve %s: breakpoint count (%d) does not match value count (%d)", name, len(curve.BP), len(curve.V))
	}
	for _, x := range append(append([]float64{}, curve.BP...), curve.V...) {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("curve %s: contains non-finite numbers", name)
		}
	}
	if !util.IsStrictlyAscending(curve.BP) {
		return fmt.Errorf("curve %s: breakpoints must be strictly ascending", name)
	}
	return nil
}

func validateGasMode(mode GasMode) error {
	supported := []GasMode{GasModeUnset, GasModeDefault, GasModeSport, GasModeEco}
	if !slices.Contains(supported, mode) {
		return fmt.Errorf("unsupported gas mode '%s', use one of: %s", mode, strings.Join(GasModeNames(), " | "))
	}
	return nil
}

func validateActuator(config *ActuatorConfig) error {
	if config.Can != nil {
		if len(config.Can.Interface) <= 0 {
			return fmt.Errorf("actuator can: missing interface")
		}
		// standard frame ids only use 11 bits
		if config.Can.FrameId > 0x7FF {
			return fmt.Errorf("actuator can: invalid frame id 0x%X, must be <= 0x7FF", config.Can.FrameId)
		}
	}
	return nil
}

func validateServers(config *Configuration) error {
	if config.Api.Enabled {
		if config.Api.Port <= 0 || config.Api.Port > 65535 {
			return fmt.Errorf("api: invalid port %d", config.Api.Port)
		}
	}
	if config.Statistics.Enabled {
		if config.Statistics.Port <= 0 || config.Statistics.Port > 65535 {
			return fmt.Errorf("statistics: invalid port %d", config.Statistics.Port)
		}
		if config.Api.Enabled && config.Api.Port == config.Statistics.Port {
			return fmt.Errorf("statistics: port %d is already used by the api", config.Statistics.Port)
		}
	}
	return nil
}
