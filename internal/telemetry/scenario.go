package telemetry

import (
	"bytes"
	"fmt"
	"os"

	"github.com/longctl/longctl/internal/longcontrol"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Lead is the recorded state of the vehicle ahead
type Lead struct {
	Distance float64 `yaml:"distance"`
	Present  bool    `yaml:"present"`
}

// Frame is a single recorded cycle, repeated Cycles times
type Frame struct {
	Cycles int `yaml:"cycles"`

	Active           bool    `yaml:"active"`
	VEgo             float64 `yaml:"vEgo"`
	BrakePressed     bool    `yaml:"brakePressed"`
	GasPressed       bool    `yaml:"gasPressed"`
	Standstill       bool    `yaml:"standstill"`
	CruiseStandstill bool    `yaml:"cruiseStandstill"`

	VTarget       float64 `yaml:"vTarget"`
	VTargetFuture float64 `yaml:"vTargetFuture"`
	ATarget       float64 `yaml:"aTarget"`

	HasLead      bool   `yaml:"hasLead"`
	Lead         *Lead  `yaml:"lead"`
	DecelForTurn bool   `yaml:"decelForTurn"`
	PlanSource   string `yaml:"planSource"`
}

// Scenario is a recorded or hand written sequence of control cycles
type Scenario struct {
	Name string  `yaml:"name"`
	Rate float64 `yaml:"rate"`
	// integrate the vehicle speed from the produced commands instead of replaying vEgo
	Dynamics bool    `yaml:"dynamics"`
	Frames   []Frame `yaml:"frames"`
}

// LoadScenario reads and validates the scenario file at the given path
func LoadScenario(path string) (*Scenario, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not expand scenario path %s", path)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read scenario file %s", expanded)
	}
	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid scenario file %s", expanded)
	}
	return scenario, nil
}

// ParseScenario decodes a scenario from YAML, unknown fields are rejected
func ParseScenario(data []byte) (*Scenario, error) {
	scenario := &Scenario{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(scenario); err != nil {
		return nil, errors.Wrap(err, "could not decode scenario")
	}

	for i := range scenario.Frames {
		if scenario.Frames[i].Cycles == 0 {
			scenario.Frames[i].Cycles = 1
		}
	}

	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return scenario, nil
}

func (s *Scenario) Validate() error {
	if s.Rate < 0 {
		return fmt.Errorf("scenario %s: invalid rate %v", s.Name, s.Rate)
	}
	if len(s.Frames) <= 0 {
		return fmt.Errorf("scenario %s: no frames defined", s.Name)
	}
	for i, frame := range s.Frames {
		if frame.Cycles < 0 {
			return fmt.Errorf("scenario %s: frame %d: invalid cycle count %d", s.Name, i, frame.Cycles)
		}
		if frame.VEgo < 0 {
			return fmt.Errorf("scenario %s: frame %d: negative vEgo", s.Name, i)
		}
		if frame.Lead != nil && frame.Lead.Distance < 0 {
			return fmt.Errorf("scenario %s: frame %d: negative lead distance", s.Name, i)
		}
	}
	return nil
}

// TotalCycles returns the number of cycles a single pass over the scenario takes
func (s *Scenario) TotalCycles() int {
	total := 0
	for _, frame := range s.Frames {
		total += frame.Cycles
	}
	return total
}

// Input converts the frame into the input of a control cycle
func (f Frame) Input() longcontrol.CycleInput {
	in := longcontrol.CycleInput{
		Active: f.Active,
		Vehicle: longcontrol.VehicleSnapshot{
			VEgo:             f.VEgo,
			BrakePressed:     f.BrakePressed,
			GasPressed:       f.GasPressed,
			Standstill:       f.Standstill,
			CruiseStandstill: f.CruiseStandstill,
		},
		Targets: longcontrol.Targets{
			VTarget:       f.VTarget,
			VTargetFuture: f.VTargetFuture,
			ATarget:       f.ATarget,
		},
		HasLead:      f.HasLead,
		DecelForTurn: f.DecelForTurn,
		PlanSource:   longcontrol.ParsePlanSource(f.PlanSource),
	}
	if f.Lead != nil {
		in.Lead = &longcontrol.LeadHazard{
			Distance: f.Lead.Distance,
			Present:  f.Lead.Present,
		}
	}
	return in
}
