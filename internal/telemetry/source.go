package telemetry

import (
	"sync"

	"github.com/longctl/longctl/internal/longcontrol"
	"github.com/longctl/longctl/internal/util"
)

const (
	// acceleration at full gas, in m/s^2
	simulatedMaxAccel = 2.0
	// deceleration at full brake, in m/s^2
	simulatedMaxDecel = 4.0
	// rolling resistance and drag, in m/s^2
	simulatedDrag = 0.05
	// below this speed the simulated vehicle is at standstill, in m/s
	simulatedStandstillSpeed = 0.01
)

// Source provides the input of every control cycle
type Source interface {
	Name() string
	// Next returns the input of the next cycle, ok is false once the source is exhausted
	Next() (in longcontrol.CycleInput, ok bool)
}

// FeedbackSource is a Source that reacts to the commands produced for its inputs
type FeedbackSource interface {
	Source
	Feedback(output longcontrol.Output)
}

// ScenarioSource replays a Scenario cycle by cycle
type ScenarioSource struct {
	scenario *Scenario
	loop     bool
	rate     float64

	mu    sync.Mutex
	frame int
	cycle int
	// simulated vehicle speed, only used with dynamics
	vEgo        float64
	initialized bool
}

// NewScenarioSource creates a source for the given scenario.
// rate is used for the vehicle dynamics if the scenario does not define one.
func NewScenarioSource(scenario *Scenario, loop bool, rate float64) *ScenarioSource {
	if scenario.Rate > 0 {
		rate = scenario.Rate
	}
	return &ScenarioSource{
		scenario: scenario,
		loop:     loop,
		rate:     rate,
	}
}

func (s *ScenarioSource) Name() string {
	return s.scenario.Name
}

func (s *ScenarioSource) Next() (longcontrol.CycleInput, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.frame < len(s.scenario.Frames) && s.cycle >= s.scenario.Frames[s.frame].Cycles {
		s.frame++
		s.cycle = 0
	}
	if s.frame >= len(s.scenario.Frames) {
		if !s.loop || s.scenario.TotalCycles() <= 0 {
			return longcontrol.CycleInput{}, false
		}
		s.frame = 0
		s.cycle = 0
		for s.scenario.Frames[s.frame].Cycles <= 0 {
			s.frame++
		}
	}

	frame := s.scenario.Frames[s.frame]
	s.cycle++

	in := frame.Input()
	if s.scenario.Dynamics {
		if !s.initialized {
			s.vEgo = frame.VEgo
			s.initialized = true
		}
		in.Vehicle.VEgo = s.vEgo
		in.Vehicle.Standstill = s.vEgo < simulatedStandstillSpeed
	}
	return in, true
}

// Feedback integrates the simulated vehicle speed from the given command
func (s *ScenarioSource) Feedback(output longcontrol.Output) {
	if !s.scenario.Dynamics {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	accel := output.Gas*simulatedMaxAccel - output.Brake*simulatedMaxDecel
	if s.vEgo > 0 {
		accel -= simulatedDrag
	}
	s.vEgo = util.Coerce(s.vEgo+accel/s.rate, 0, 100)
}

// Reset restarts the scenario from its first frame
func (s *ScenarioSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = 0
	s.cycle = 0
	s.initialized = false
}
