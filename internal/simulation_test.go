package internal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/longctl/longctl/internal/configuration"
	"github.com/longctl/longctl/internal/longcontrol"
	"github.com/longctl/longctl/internal/telemetry"
	"github.com/stretchr/testify/assert"
)

func createSimulationScenario() *telemetry.Scenario {
	return &telemetry.Scenario{
		Name: "simulation",
		Frames: []telemetry.Frame{
			{Cycles: 5, Active: false, VEgo: 10, VTarget: 12, VTargetFuture: 12},
			{Cycles: 20, Active: true, VEgo: 10, VTarget: 12, VTargetFuture: 12},
		},
	}
}

func createSimulationConfig() configuration.Configuration {
	return configuration.Configuration{
		Rate:    100,
		Vehicle: configuration.VehicleConfig{Id: "simulation"},
		GasMode: configuration.GasModeDefault,
	}
}

func TestSimulate(t *testing.T) {
	// GIVEN
	scenario := createSimulationScenario()

	// WHEN
	result, err := Simulate(context.Background(), createSimulationConfig(), scenario, configuration.GasModeSport)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, "simulation", result.Scenario)
	assert.Equal(t, configuration.GasModeSport, result.GasMode)
	assert.Len(t, result.Trace, 25)

	first := result.Trace[0]
	assert.Equal(t, uint64(1), first.Cycle)
	assert.Equal(t, longcontrol.StateOff, first.Control.State)
	assert.Equal(t, 0.0, first.Control.Gas)

	last := result.Trace[24]
	assert.Equal(t, uint64(25), last.Cycle)
	assert.Equal(t, longcontrol.StatePid, last.Control.State)
	assert.Equal(t, configuration.GasModeSport, last.Control.GasMode)
	assert.Greater(t, last.Control.Gas, 0.0)

	assert.Equal(t, uint64(25), result.Stats.Cycles)
	assert.Equal(t, uint64(1), result.Stats.Engagements)
	assert.Equal(t, uint64(0), result.Stats.Stops)
}

func TestSimulate_UsesConfiguredGasMode(t *testing.T) {
	// GIVEN
	config := createSimulationConfig()
	config.GasMode = configuration.GasModeEco

	// WHEN
	result, err := Simulate(context.Background(), config, createSimulationScenario(), configuration.GasModeUnset)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, configuration.GasModeEco, result.GasMode)
}

func TestSimulationResult_Series(t *testing.T) {
	// GIVEN
	result, err := Simulate(context.Background(), createSimulationConfig(), createSimulationScenario(), configuration.GasModeUnset)
	assert.NoError(t, err)

	// WHEN
	speeds := result.Series(func(row TraceRow) float64 {
		return row.Input.Vehicle.VEgo
	})

	// THEN
	assert.Len(t, speeds, 25)
	for _, speed := range speeds {
		assert.Equal(t, 10.0, speed)
	}
}

func TestSimulationResult_EncodeCsv(t *testing.T) {
	// GIVEN
	result, err := Simulate(context.Background(), createSimulationConfig(), createSimulationScenario(), configuration.GasModeUnset)
	assert.NoError(t, err)

	// WHEN
	data, err := result.EncodeCsv()

	// THEN
	assert.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 26)
	assert.Equal(t, "cycle,state,vEgo,vTarget,vTargetFuture,aTarget,vPid,gas,brake,output,gasMax,brakeMax,p,i,f,saturated", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,off,10,12,12,0,"), lines[1])
	assert.True(t, strings.HasPrefix(lines[25], "25,pid,10,12,12,0,12,"), lines[25])
	assert.True(t, strings.HasSuffix(lines[25], ",false"), lines[25])
}

func TestSimulationResult_WriteCsv(t *testing.T) {
	// GIVEN
	result, err := Simulate(context.Background(), createSimulationConfig(), createSimulationScenario(), configuration.GasModeUnset)
	assert.NoError(t, err)
	path := filepath.Join(t.TempDir(), "out", "trace.csv")

	// WHEN
	err = result.WriteCsv(path)

	// THEN
	assert.NoError(t, err)
	written, err := os.ReadFile(path)
	assert.NoError(t, err)
	expected, _ := result.EncodeCsv()
	assert.Equal(t, expected, written)
}
