package longcontrol

import (
	"github.com/longctl/longctl/internal/configuration"
	"github.com/longctl/longctl/internal/control_loop"
	"github.com/longctl/longctl/internal/curves"
	"github.com/longctl/longctl/internal/util"
)

const (
	// below this speed the integrator is frozen unless the vehicle supports stopping control, in m/s
	overshootEgoSpeed = 1.5
	// future target below which overshoot prevention kicks in, in m/s
	overshootTargetSpeed = 0.7
	// lead distance below which the vehicle stops for the lead, in m
	stopForLeadDistance = 4.0
)

// Status describes the result of the last cycle
type Status struct {
	State               ControlState          `json:"state"`
	Gas                 float64               `json:"gas"`
	Brake               float64               `json:"brake"`
	Output              float64               `json:"output"`
	GasMax              float64               `json:"gasMax"`
	BrakeMax            float64               `json:"brakeMax"`
	VPid                float64               `json:"vPid"`
	StopForLead         bool                  `json:"stopForLead"`
	PedalOverride       bool                  `json:"pedalOverride"`
	OvershootPrevention bool                  `json:"overshootPrevention"`
	TurnDecel           bool                  `json:"turnDecel"`
	LeadFactor          float64               `json:"leadFactor"`
	Pid                 control_loop.PidState `json:"pid"`
	GasMode             configuration.GasMode `json:"gasMode"`
}

// LongControl computes gas and brake commands once per control cycle.
// It is not safe for concurrent use, a single control loop owns it.
type LongControl struct {
	config  configuration.LongitudinalConfig
	vehicle configuration.VehicleConfig
	rate    float64

	state ControlState
	pid   *control_loop.PidLoop
	// setpoint of the pid loop
	vPid       float64
	lastOutput float64
	turnDecel  TurnDecelLatch

	stoppingRamp *control_loop.RampControlLoop
	startingRamp *control_loop.RampControlLoop

	status Status
}

// NewLongControl creates a LongControl in the Off state.
// The config is expected to be validated and have its defaults applied.
func NewLongControl(config configuration.LongitudinalConfig, vehicle configuration.VehicleConfig, rate float64) *LongControl {
	if rate <= 0 {
		rate = configuration.DefaultRate
	}
	return &LongControl{
		config:       config,
		vehicle:      vehicle,
		rate:         rate,
		state:        StateOff,
		pid:          control_loop.NewPidLoop(config.Kp, config.Ki, config.Kf, rate),
		stoppingRamp: control_loop.NewRampControlLoop(StoppingBrakeRate, rate),
		startingRamp: control_loop.NewRampControlLoop(StartingBrakeRate, rate),
	}
}

// Reset clears the pid loop and sets a new setpoint
func (c *LongControl) Reset(vPid float64) {
	c.pid.Reset()
	c.vPid = vPid
}

func (c *LongControl) State() ControlState {
	return c.state
}

func (c *LongControl) Status() Status {
	return c.status
}

// Update runs a single control cycle
func (c *LongControl) Update(in CycleInput) Output {
	vEgo := in.Vehicle.VEgo

	gasMax := curves.GasMax(vEgo, in.GasMode, c.vehicle.HasInterceptor, c.config.GasMax)
	brakeMax := c.config.BrakeMax.Evaluate(vEgo)

	leadDistance, hasLead := in.leadDistance()
	stopForLead := hasLead && leadDistance < stopForLeadDistance && in.Lead.Present

	output := c.lastOutput
	c.state = Transition(c.state, TransitionInput{
		Active:           in.Active,
		VEgo:             vEgo,
		VTargetFuture:    in.Targets.VTargetFuture,
		VPid:             c.vPid,
		LastOutput:       output,
		BrakePressed:     in.Vehicle.BrakePressed,
		CruiseStandstill: in.Vehicle.CruiseStandstill,
		StopForLead:      stopForLead,
	})

	// speed sensors report 0 below MinCanSpeed
	vEgoPid := max(vEgo, MinCanSpeed)

	pedalOverride := (in.Vehicle.BrakePressed || in.Vehicle.GasPressed) && !c.config.IgnorePedalOverride
	overshootPrevention := false
	leadFactor := 1.0

	switch {
	case c.state == StateOff || pedalOverride:
		c.Reset(vEgoPid)
		output = 0

	case c.state == StatePid:
		c.vPid = in.Targets.VTarget
		c.pid.SetLimits(gasMax, -brakeMax)
		c.updateGains(in)

		// freeze the integrator and block gas, the vehicle would otherwise accelerate
		// to compensate for its own stopping logic
		overshootPrevention = !c.vehicle.StoppingControl &&
			vEgo < overshootEgoSpeed &&
			in.Targets.VTargetFuture < overshootTargetSpeed
		deadzone := c.config.Deadzone.Evaluate(vEgoPid)

		output = c.pid.Update(c.vPid, vEgoPid, vEgoPid, deadzone, in.Targets.ATarget, overshootPrevention)
		if overshootPrevention {
			output = min(output, 0)
		}

	case c.state == StateStopping:
		if hasLead {
			leadFactor = c.config.StoppingLeadFactor.Evaluate(leadDistance)
		}
		// keep applying the brakes until the vehicle is stopped
		if !in.Vehicle.Standstill || output > -BrakeStoppingTarget {
			output = c.stoppingRamp.Step(output, -brakeMax, leadFactor)
		}
		output = util.Coerce(output, -brakeMax, gasMax)
		c.Reset(vEgo)

	case c.state == StateStarting:
		if hasLead {
			leadFactor = c.config.StartingLeadFactor.Evaluate(leadDistance)
		}
		// release the brakes quickly before the pid loop takes over
		if output < StartingBrakeRelease {
			output = c.startingRamp.Step(output, 0, leadFactor)
		}
		output = util.Coerce(output, -brakeMax, gasMax)
		c.Reset(vEgo)
	}

	c.lastOutput = output

	result := Output{}
	if output > 0 {
		result.Gas = util.Coerce(output, 0, gasMax)
	} else if output < 0 {
		result.Brake = util.Coerce(-output, 0, brakeMax)
	}

	c.status = Status{
		State:               c.state,
		Gas:                 result.Gas,
		Brake:               result.Brake,
		Output:              output,
		GasMax:              gasMax,
		BrakeMax:            brakeMax,
		VPid:                c.vPid,
		StopForLead:         stopForLead,
		PedalOverride:       pedalOverride,
		OvershootPrevention: overshootPrevention,
		TurnDecel:           c.turnDecel.Active(),
		LeadFactor:          leadFactor,
		Pid:                 c.pid.State(),
		GasMode:             in.GasMode,
	}

	return result
}

// updateGains switches between the nominal gain schedule and pure feedforward
// control while the cruise planner decelerates for a turn
func (c *LongControl) updateGains(in CycleInput) {
	vEgo := in.Vehicle.VEgo

	if in.PlanSource == PlanSourceCruise {
		if c.turnDecel.Rising(in.DecelForTurn) {
			c.turnDecel.Set()
			c.pid.SetGains(c.config.Kp.Scaled(0), c.config.Ki.Scaled(0))
			c.pid.SetFeedforwardGain(c.config.Kf)
			c.Reset(vEgo)
		}
		if c.turnDecel.Falling(in.DecelForTurn) {
			c.turnDecel.Clear()
			c.pid.SetGains(c.config.Kp, c.config.Ki)
			c.pid.SetFeedforwardGain(c.config.Kf)
			c.Reset(vEgo)
		}
		return
	}

	if c.turnDecel.Clear() {
		c.Reset(vEgo)
	}
	c.pid.SetGains(c.config.Kp, c.config.Ki)
	c.pid.SetFeedforwardGain(c.config.Kf)
}
