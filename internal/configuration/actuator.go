package configuration

type ActuatorConfig struct {
	// Print every command to the console
	Log bool `json:"log"`
	// Send commands on a CAN bus
	Can *CanActuatorConfig `json:"can,omitempty"`
}

type CanActuatorConfig struct {
	// Network interface, e.g. "can0" or "vcan0"
	Interface string `json:"interface"`
	FrameId   uint32 `json:"frameId"`
}
