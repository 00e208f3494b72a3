package statistics

import (
	"context"
	"strings"
	"testing"

	"github.com/longctl/longctl/internal/configuration"
	"github.com/longctl/longctl/internal/controller"
	"github.com/longctl/longctl/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func createController(t *testing.T, vehicleId string) controller.LongitudinalController {
	scenario := &telemetry.Scenario{
		Name: "test",
		Frames: []telemetry.Frame{
			{Cycles: 1, Active: false, VEgo: 10},
			{Cycles: 3, Active: true, VEgo: 10, VTarget: 12, VTargetFuture: 12},
		},
	}
	config := configuration.Configuration{
		Rate:                  100,
		StatusPublishInterval: 1,
		CycleTimeWindowSize:   10,
		Vehicle:               configuration.VehicleConfig{Id: vehicleId},
		Longitudinal:          configuration.DefaultLongitudinalConfig(false),
		GasMode:               configuration.GasModeSport,
	}
	c := controller.NewLongitudinalController(config, nil, telemetry.NewScenarioSource(scenario, false, 100), nil)
	for i := 0; i < 4; i++ {
		_, ok, err := c.RunCycle(context.Background())
		assert.NoError(t, err)
		assert.True(t, ok)
	}
	return c
}

func TestControllerCollector_Collect(t *testing.T) {
	// GIVEN
	c := createController(t, "collector")
	collector := NewControllerCollector([]controller.LongitudinalController{c})

	// WHEN
	count := testutil.CollectAndCount(collector)

	// THEN
	assert.Equal(t, 8, count)

	expected := `
# HELP longctl_controller_cycles_total Number of control cycles run by this controller
# TYPE longctl_controller_cycles_total counter
longctl_controller_cycles_total{vehicle="collector"} 4
# HELP longctl_controller_engagements_total Number of times longitudinal control engaged
# TYPE longctl_controller_engagements_total counter
longctl_controller_engagements_total{vehicle="collector"} 1
# HELP longctl_controller_gas_mode Gas mode selected by the driver (-1: unset, 0: default, 1: sport, 2: eco)
# TYPE longctl_controller_gas_mode gauge
longctl_controller_gas_mode{vehicle="collector"} 1
`
	err := testutil.CollectAndCompare(collector, strings.NewReader(expected),
		"longctl_controller_cycles_total",
		"longctl_controller_engagements_total",
		"longctl_controller_gas_mode",
	)
	assert.NoError(t, err)
}

func TestLongControlCollector_Collect(t *testing.T) {
	// GIVEN
	c := createController(t, "longcontrol")
	collector := NewLongControlCollector([]controller.LongitudinalController{c})

	// WHEN
	count := testutil.CollectAndCount(collector)

	// THEN
	assert.Equal(t, 11, count)
	assert.Equal(t, 3, testutil.CollectAndCount(collector, "longctl_longcontrol_pid_term"))

	expected := `
# HELP longctl_longcontrol_state Current control state (0: off, 1: pid, 2: stopping, 3: starting)
# TYPE longctl_longcontrol_state gauge
longctl_longcontrol_state{vehicle="longcontrol"} 1
# HELP longctl_longcontrol_v_ego Vehicle speed of the last cycle in m/s
# TYPE longctl_longcontrol_v_ego gauge
longctl_longcontrol_v_ego{vehicle="longcontrol"} 10
`
	err := testutil.CollectAndCompare(collector, strings.NewReader(expected),
		"longctl_longcontrol_state",
		"longctl_longcontrol_v_ego",
	)
	assert.NoError(t, err)
}
