package actuator

import (
	"context"

	"github.com/longctl/longctl/internal/longcontrol"
)

// Command is the actuator command of a single control cycle
type Command struct {
	Cycle  uint64                   `json:"cycle"`
	State  longcontrol.ControlState `json:"state"`
	Output longcontrol.Output       `json:"output"`
}

// Sink forwards commands to an actuator
type Sink interface {
	Name() string
	// Send must not block longer than a single control cycle
	Send(ctx context.Context, command Command) error
	Close() error
}
