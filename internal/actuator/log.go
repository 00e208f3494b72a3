package actuator

import (
	"context"

	"github.com/longctl/longctl/internal/ui"
)

// LogSink prints every command that differs from the previous one
type LogSink struct {
	last    *Command
	printer func(format string, a ...interface{})
}

func NewLogSink() *LogSink {
	return &LogSink{
		printer: ui.Info,
	}
}

func (s *LogSink) Name() string {
	return "log"
}

func (s *LogSink) Send(ctx context.Context, command Command) error {
	if s.last != nil && s.last.State == command.State && s.last.Output == command.Output {
		return nil
	}
	s.printer("Cycle %d: state %s, gas %.4f, brake %.4f", command.Cycle, command.State, command.Output.Gas, command.Output.Brake)
	s.last = &command
	return nil
}

func (s *LogSink) Close() error {
	return nil
}
