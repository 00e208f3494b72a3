package longcontrol

import (
	"fmt"
	"strings"

	"github.com/longctl/longctl/internal/configuration"
)

type ControlState int

const (
	StateOff ControlState = iota
	// tracking the target speed with the pid loop
	StatePid
	// ramping up the brakes until the vehicle is stopped
	StateStopping
	// releasing the brakes before handing over to the pid loop
	StateStarting
)

var controlStateNames = map[ControlState]string{
	StateOff:      "off",
	StatePid:      "pid",
	StateStopping: "stopping",
	StateStarting: "starting",
}

func (s ControlState) String() string {
	if name, ok := controlStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

func (s ControlState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ControlState) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for state, stateName := range controlStateNames {
		if stateName == name {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown control state '%s'", text)
}

// PlanSource is the planner that produced the current targets
type PlanSource int

const (
	PlanSourceOther PlanSource = iota
	PlanSourceCruise
)

func (p PlanSource) String() string {
	if p == PlanSourceCruise {
		return "cruise"
	}
	return "other"
}

func (p PlanSource) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PlanSource) UnmarshalText(text []byte) error {
	*p = ParsePlanSource(string(text))
	return nil
}

// ParsePlanSource maps the name of a planner to a PlanSource,
// everything except "cruise" is treated as another planner
func ParsePlanSource(value string) PlanSource {
	if strings.EqualFold(strings.TrimSpace(value), "cruise") {
		return PlanSourceCruise
	}
	return PlanSourceOther
}

// VehicleSnapshot is the state of the vehicle sampled at the start of a cycle
type VehicleSnapshot struct {
	// speed in m/s
	VEgo             float64 `json:"vEgo"`
	BrakePressed     bool    `json:"brakePressed"`
	GasPressed       bool    `json:"gasPressed"`
	Standstill       bool    `json:"standstill"`
	CruiseStandstill bool    `json:"cruiseStandstill"`
}

// Targets are provided by the planner
type Targets struct {
	VTarget       float64 `json:"vTarget"`
	VTargetFuture float64 `json:"vTargetFuture"`
	ATarget       float64 `json:"aTarget"`
}

// LeadHazard describes a vehicle ahead
type LeadHazard struct {
	// distance in m
	Distance float64 `json:"distance"`
	Present  bool    `json:"present"`
}

// CycleInput contains everything needed to compute the commands of a single cycle
type CycleInput struct {
	Active       bool                  `json:"active"`
	Vehicle      VehicleSnapshot       `json:"vehicle"`
	Targets      Targets               `json:"targets"`
	HasLead      bool                  `json:"hasLead"`
	Lead         *LeadHazard           `json:"lead,omitempty"`
	DecelForTurn bool                  `json:"decelForTurn"`
	PlanSource   PlanSource            `json:"planSource"`
	GasMode      configuration.GasMode `json:"gasMode"`
}

// leadDistance returns the distance to the lead vehicle,
// ok is false if there is no usable lead
func (c CycleInput) leadDistance() (distance float64, ok bool) {
	if !c.HasLead || c.Lead == nil {
		return 0, false
	}
	return c.Lead.Distance, true
}

// Output is the actuator command of a single cycle, at most one of both is non-zero
type Output struct {
	Gas   float64 `json:"gas"`
	Brake float64 `json:"brake"`
}
