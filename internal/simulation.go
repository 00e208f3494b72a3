package internal

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"

	"github.com/longctl/longctl/internal/configuration"
	"github.com/longctl/longctl/internal/controller"
	"github.com/longctl/longctl/internal/longcontrol"
	"github.com/longctl/longctl/internal/persistence"
	"github.com/longctl/longctl/internal/telemetry"
	"github.com/longctl/longctl/internal/util"
)

// TraceRow is the input and result of a single simulated cycle
type TraceRow struct {
	Cycle   uint64
	Input   longcontrol.CycleInput
	Control longcontrol.Status
}

type SimulationResult struct {
	Scenario string
	GasMode  configuration.GasMode
	Trace    []TraceRow
	Stats    persistence.SessionStats
}

var traceHeader = []string{
	"cycle", "state", "vEgo", "vTarget", "vTargetFuture", "aTarget", "vPid",
	"gas", "brake", "output", "gasMax", "brakeMax", "p", "i", "f", "saturated",
}

// Simulate replays the given scenario offline, as fast as possible.
// If mode is set it overrides the configured gas mode.
func Simulate(ctx context.Context, config configuration.Configuration, scenario *telemetry.Scenario, mode configuration.GasMode) (*SimulationResult, error) {
	config.ApplyDefaults()
	// nobody observes an offline run
	config.StatusPublishInterval = scenario.TotalCycles() + 1

	source := telemetry.NewScenarioSource(scenario, false, config.Rate)
	contr := controller.NewLongitudinalController(config, nil, source, nil)
	if mode.IsSet() {
		if err := contr.SetGasMode(mode); err != nil {
			return nil, err
		}
	}

	result := &SimulationResult{
		Scenario: scenario.Name,
		GasMode:  contr.GetGasMode(),
	}
	for {
		command, ok, err := contr.RunCycle(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		status := contr.GetStatus()
		result.Trace = append(result.Trace, TraceRow{
			Cycle:   command.Cycle,
			Input:   status.Input,
			Control: status.Control,
		})
	}
	result.Stats = contr.GetStatistics()
	return result, nil
}

// Series extracts a single value of every cycle in the trace
func (r *SimulationResult) Series(value func(row TraceRow) float64) []float64 {
	result := make([]float64, 0, len(r.Trace))
	for _, row := range r.Trace {
		result = append(result, value(row))
	}
	return result
}

// EncodeCsv renders the trace as CSV with a header line
func (r *SimulationResult) EncodeCsv() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(traceHeader); err != nil {
		return nil, err
	}
	for _, row := range r.Trace {
		control := row.Control
		record := []string{
			strconv.FormatUint(row.Cycle, 10),
			control.State.String(),
			formatFloat(row.Input.Vehicle.VEgo),
			formatFloat(row.Input.Targets.VTarget),
			formatFloat(row.Input.Targets.VTargetFuture),
			formatFloat(row.Input.Targets.ATarget),
			formatFloat(control.VPid),
			formatFloat(control.Gas),
			formatFloat(control.Brake),
			formatFloat(control.Output),
			formatFloat(control.GasMax),
			formatFloat(control.BrakeMax),
			formatFloat(control.Pid.P),
			formatFloat(control.Pid.I),
			formatFloat(control.Pid.F),
			strconv.FormatBool(control.Pid.Saturated),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCsv atomically writes the trace to the given path
func (r *SimulationResult) WriteCsv(path string) error {
	data, err := r.EncodeCsv()
	if err != nil {
		return err
	}
	return util.WriteFileAtomic(path, data)
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(util.RoundTo(value, 5), 'f', -1, 64)
}
