package actuator

import (
	"context"
	"fmt"
	"math"
	"net"

	"github.com/longctl/longctl/internal/configuration"
	"github.com/longctl/longctl/internal/longcontrol"
	"github.com/longctl/longctl/internal/util"
	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

const (
	// gas and brake are transmitted in 1/CommandScale steps
	CommandScale = 1000.0

	commandFrameLength = 8

	gasStartBit      = 0
	gasBitLength     = 16
	brakeStartBit    = 16
	brakeBitLength   = 16
	stateStartBit    = 32
	stateBitLength   = 2
	counterStartBit  = 48
	counterBitLength = 4
)

type frameTransmitter interface {
	TransmitFrame(ctx context.Context, frame can.Frame) error
}

// CanSink transmits every command as a single CAN frame
type CanSink struct {
	iface   string
	frameId uint32

	conn net.Conn
	tx   frameTransmitter
}

// NewCanSink opens a socketcan connection on the configured interface
func NewCanSink(ctx context.Context, config configuration.CanActuatorConfig) (*CanSink, error) {
	conn, err := socketcan.DialContext(ctx, "can", config.Interface)
	if err != nil {
		return nil, fmt.Errorf("socketcan dial %s: %w", config.Interface, err)
	}
	return &CanSink{
		iface:   config.Interface,
		frameId: config.FrameId,
		conn:    conn,
		tx:      socketcan.NewTransmitter(conn),
	}, nil
}

func (s *CanSink) Name() string {
	return fmt.Sprintf("can(%s)", s.iface)
}

func (s *CanSink) Send(ctx context.Context, command Command) error {
	return s.tx.TransmitFrame(ctx, EncodeCommand(s.frameId, command))
}

func (s *CanSink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// EncodeCommand packs a command into a little endian frame:
// gas in bits 0-15, brake in bits 16-31, control state in bits 32-33
// and a rolling counter in bits 48-51
func EncodeCommand(frameId uint32, command Command) can.Frame {
	frame := can.Frame{
		ID:     frameId,
		Length: commandFrameLength,
	}
	frame.Data.SetUnsignedBitsLittleEndian(gasStartBit, gasBitLength, scaleCommand(command.Output.Gas))
	frame.Data.SetUnsignedBitsLittleEndian(brakeStartBit, brakeBitLength, scaleCommand(command.Output.Brake))
	frame.Data.SetUnsignedBitsLittleEndian(stateStartBit, stateBitLength, uint64(command.State)&0x3)
	frame.Data.SetUnsignedBitsLittleEndian(counterStartBit, counterBitLength, command.Cycle%16)
	return frame
}

// DecodeCommand is the inverse of EncodeCommand, up to the command resolution
func DecodeCommand(frame can.Frame) Command {
	return Command{
		Cycle: frame.Data.UnsignedBitsLittleEndian(counterStartBit, counterBitLength),
		State: longcontrol.ControlState(frame.Data.UnsignedBitsLittleEndian(stateStartBit, stateBitLength)),
		Output: longcontrol.Output{
			Gas:   float64(frame.Data.UnsignedBitsLittleEndian(gasStartBit, gasBitLength)) / CommandScale,
			Brake: float64(frame.Data.UnsignedBitsLittleEndian(brakeStartBit, brakeBitLength)) / CommandScale,
		},
	}
}

func scaleCommand(value float64) uint64 {
	raw := math.Round(util.Coerce(value, 0, 1) * CommandScale)
	return uint64(raw)
}
