package longcontrol

const (
	// below this speed the vehicle is about to stop, in m/s
	StoppingEgoSpeed = 0.2
	// speed sensors report 0 below this speed, in m/s
	MinCanSpeed = 0.3
	// below this target the planner wants the vehicle to stop, in m/s
	StoppingTargetSpeed = MinCanSpeed + 0.01
	// above this target the planner wants the vehicle to move again, in m/s
	StartingTargetSpeed = 0.01
	// once the brake output is above -BrakeThresholdToPid the pid loop takes over again
	BrakeThresholdToPid = 1.0

	// brake travel per second while trying to stop
	StoppingBrakeRate = 0.2
	// brake travel per second while releasing on restart
	StartingBrakeRate = 5.0
	// brake output needed to hold the vehicle at standstill
	BrakeStoppingTarget = 1.2
	// brake release ramp stops below this output
	StartingBrakeRelease = -0.2
)

// TransitionInput holds the signals the state machine depends on
type TransitionInput struct {
	Active           bool
	VEgo             float64
	VTargetFuture    float64
	VPid             float64
	LastOutput       float64
	BrakePressed     bool
	CruiseStandstill bool
	StopForLead      bool
}

// StoppingCondition is true if the vehicle should come to a halt
func StoppingCondition(in TransitionInput) bool {
	if in.StopForLead {
		return true
	}
	if in.VEgo < 2.0 && in.CruiseStandstill {
		return true
	}
	return in.VEgo < StoppingEgoSpeed &&
		((in.VPid < StoppingTargetSpeed && in.VTargetFuture < StoppingTargetSpeed) || in.BrakePressed)
}

// StartingCondition is true if the planner wants to move away from standstill
func StartingCondition(in TransitionInput) bool {
	return in.VTargetFuture > StartingTargetSpeed && !in.CruiseStandstill
}

// Transition computes the next control state, it has no side effects
func Transition(current ControlState, in TransitionInput) ControlState {
	if !in.Active {
		return StateOff
	}

	switch current {
	case StateOff:
		return StatePid
	case StatePid:
		if StoppingCondition(in) {
			return StateStopping
		}
	case StateStopping:
		if StartingCondition(in) {
			return StateStarting
		}
	case StateStarting:
		if StoppingCondition(in) {
			return StateStopping
		}
		if in.LastOutput >= -BrakeThresholdToPid {
			return StatePid
		}
	}
	return current
}
