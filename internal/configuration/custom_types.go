package configuration

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/longctl/longctl/internal/util"
	"github.com/mitchellh/mapstructure"
)

// CurveConfigHookFunc returns a mapstructure decode hook that allows a CurveConfig to be written as:
//  1. the explicit form: {bp: [...], v: [...]}
//  2. a breakpoint -> value map, e.g. {0: 3.6, 5: 2.4, 35: 1.5}
//  3. a single number, which results in a constant curve
func CurveConfigHookFunc() mapstructure.DecodeHookFuncType {
	curveType := reflect.TypeOf(CurveConfig{})

	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if t != curveType {
			return data, nil
		}

		switch v := data.(type) {
		case int, int64, float64:
			value, err := anyToFloat(v)
			if err != nil {
				return nil, err
			}
			return ConstantCurve(value), nil
		}

		if !isBareCurveMap(data) {
			return data, nil
		}

		points, err := parseCurveMap(data)
		if err != nil {
			return nil, fmt.Errorf("curve: %w", err)
		}
		keys := util.SortedKeys(points)
		curve := CurveConfig{
			BP: make([]float64, 0, len(keys)),
			V:  make([]float64, 0, len(keys)),
		}
		for _, key := range keys {
			curve.BP = append(curve.BP, key)
			curve.V = append(curve.V, points[key])
		}
		return curve, nil
	}
}

// GasModeHookFunc returns a mapstructure decode hook that decodes a GasMode
// from its name or from the numeric gas button status
func GasModeHookFunc() mapstructure.DecodeHookFuncType {
	gasModeType := reflect.TypeOf(GasMode(0))

	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if t != gasModeType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return ParseGasMode(v)
		case int:
			return ParseGasMode(strconv.Itoa(v))
		case int64:
			return ParseGasMode(strconv.FormatInt(v, 10))
		case float64:
			return ParseGasMode(strconv.Itoa(int(v)))
		}
		return data, nil
	}
}

// isBareCurveMap returns true when data is a map whose keys are all numeric
// (no "bp" or "v" string keys).
func isBareCurveMap(data interface{}) bool {
	modeKeys := map[string]bool{"bp": true, "v": true}
	switch v := data.(type) {
	case map[string]interface{}:
		for k := range v {
			if modeKeys[k] {
				return false
			}
		}
		return len(v) > 0
	case map[interface{}]interface{}:
		for k := range v {
			if ks, ok := k.(string); ok && modeKeys[ks] {
				return false
			}
		}
		return len(v) > 0
	}
	return false
}

// parseCurveMap converts various map types (from YAML decoding) into map[float64]float64.
func parseCurveMap(data interface{}) (map[float64]float64, error) {
	result := make(map[float64]float64)
	switch v := data.(type) {
	case map[interface{}]interface{}:
		for k, val := range v {
			key, err := anyToFloat(k)
			if err != nil {
				return nil, fmt.Errorf("invalid breakpoint %v: %w", k, err)
			}
			value, err := anyToFloat(val)
			if err != nil {
				return nil, fmt.Errorf("invalid value %v: %w", val, err)
			}
			result[key] = value
		}
	case map[string]interface{}:
		for k, val := range v {
			key, err := anyToFloat(k)
			if err != nil {
				return nil, fmt.Errorf("invalid breakpoint %q: %w", k, err)
			}
			value, err := anyToFloat(val)
			if err != nil {
				return nil, fmt.Errorf("invalid value %v: %w", val, err)
			}
			result[key] = value
		}
	case map[float64]float64:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported point map type %T", data)
	}
	return result, nil
}

// anyToFloat converts numeric and string values to float64.
func anyToFloat(v interface{}) (float64, error) {
	switch val := v.(type) {
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case float64:
		return val, nil
	case string:
		n, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as float: %w", val, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float", v)
	}
}
