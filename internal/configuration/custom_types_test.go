package configuration

import (
	"reflect"
	"testing"

	"github.com/mitchellh/mapstructure"
	"github.com/stretchr/testify/assert"
)

type hookTestConfig struct {
	Kp      CurveConfig `mapstructure:"kp"`
	GasMode GasMode     `mapstructure:"gasMode"`
}

func decodeWithHooks(t *testing.T, input map[string]interface{}) (hookTestConfig, error) {
	var cfg hookTestConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			CurveConfigHookFunc(),
			GasModeHookFunc(),
		),
		Result: &cfg,
	})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}
	err = decoder.Decode(input)
	return cfg, err
}

func TestCurveConfigHookFunc(t *testing.T) {
	tests := []struct {
		name     string
		input    map[string]interface{}
		expected CurveConfig
	}{
		{
			name: "Explicit breakpoints and values",
			input: map[string]interface{}{
				"kp": map[string]interface{}{
					"bp": []interface{}{0.0, 5.0, 35.0},
					"v":  []interface{}{3.6, 2.4, 1.5},
				},
			},
			expected: CurveConfig{BP: []float64{0, 5, 35}, V: []float64{3.6, 2.4, 1.5}},
		},
		{
			name: "Breakpoint map with string keys",
			input: map[string]interface{}{
				"kp": map[string]interface{}{
					"35": 1.5,
					"0":  3.6,
					"5":  2.4,
				},
			},
			expected: CurveConfig{BP: []float64{0, 5, 35}, V: []float64{3.6, 2.4, 1.5}},
		},
		{
			name: "Breakpoint map with numeric keys",
			input: map[string]interface{}{
				"kp": map[interface{}]interface{}{
					0:   3.6,
					5.5: 2,
				},
			},
			expected: CurveConfig{BP: []float64{0, 5.5}, V: []float64{3.6, 2}},
		},
		{
			name: "Single number",
			input: map[string]interface{}{
				"kp": 1.0,
			},
			expected: ConstantCurve(1.0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// WHEN
			cfg, err := decodeWithHooks(t, tt.input)

			// THEN
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.Kp)
		})
	}
}

func TestCurveConfigHookFunc_InvalidBreakpoint(t *testing.T) {
	// GIVEN
	input := map[string]interface{}{
		"kp": map[string]interface{}{
			"fast": 1.0,
		},
	}

	// WHEN
	_, err := decodeWithHooks(t, input)

	// THEN
	assert.Error(t, err)
}

func TestGasModeHookFunc(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected GasMode
	}{
		{name: "Name", input: "eco", expected: GasModeEco},
		{name: "Button status", input: 1, expected: GasModeSport},
		{name: "Button status as float", input: 2.0, expected: GasModeEco},
		{name: "Unset", input: "unset", expected: GasModeUnset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// WHEN
			cfg, err := decodeWithHooks(t, map[string]interface{}{"gasMode": tt.input})

			// THEN
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.GasMode)
		})
	}
}

func TestHookSkipsUnrelatedTypes(t *testing.T) {
	hook := CurveConfigHookFunc()

	f := reflect.TypeOf("string")
	tTarget := reflect.TypeOf(123)
	data := "some string"

	res, err := hook(f, tTarget, data)

	assert.NoError(t, err)
	assert.Equal(t, data, res)
}
