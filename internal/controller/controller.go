package controller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asecurityteam/rolling"
	"github.com/longctl/longctl/internal/actuator"
	"github.com/longctl/longctl/internal/configuration"
	"github.com/longctl/longctl/internal/longcontrol"
	"github.com/longctl/longctl/internal/persistence"
	"github.com/longctl/longctl/internal/telemetry"
	"github.com/longctl/longctl/internal/ui"
	"github.com/longctl/longctl/internal/util"
	"github.com/oklog/run"
	cmap "github.com/orcaman/concurrent-map/v2"
)

var (
	// StatusMap holds the latest published status of every running controller, by vehicle id
	StatusMap = cmap.New[Status]()
)

// Status is published to observers every few cycles
type Status struct {
	VehicleId string                   `json:"vehicleId"`
	Source    string                   `json:"source"`
	Cycle     uint64                   `json:"cycle"`
	GasMode   configuration.GasMode    `json:"gasMode"`
	Input     longcontrol.CycleInput   `json:"input"`
	Control   longcontrol.Status       `json:"control"`
	Stats     persistence.SessionStats `json:"stats"`
	// average and max cycle duration over the cycle time window, in ms
	CycleTimeAvg float64   `json:"cycleTimeAvg"`
	CycleTimeMax float64   `json:"cycleTimeMax"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type LongitudinalController interface {
	Run(ctx context.Context) error
	// RunCycle computes and sends the commands of a single cycle.
	// ok is false once the telemetry source is exhausted.
	RunCycle(ctx context.Context) (command actuator.Command, ok bool, err error)

	GetStatus() Status
	GetStatistics() persistence.SessionStats

	GetGasMode() configuration.GasMode
	SetGasMode(mode configuration.GasMode) error

	// Subscribe returns a channel receiving every published status.
	// Statuses are dropped for subscribers that do not keep up.
	Subscribe() (<-chan Status, func())
}

type longitudinalController struct {
	persistence persistence.Persistence
	vehicleId   string
	cycleTime   time.Duration
	// publish the status every n cycles
	publishInterval uint64

	control *longcontrol.LongControl
	source  telemetry.Source
	sinks   []actuator.Sink

	gasMode atomic.Int32

	mu                sync.Mutex
	cycle             uint64
	stats             persistence.SessionStats
	cycleTimes        *rolling.PointPolicy
	lastState         longcontrol.ControlState
	lastPedalOverride bool
	status            Status

	subscribersMu  sync.Mutex
	subscribers    map[int]chan Status
	nextSubscriber int
}

// NewLongitudinalController creates a controller driving the given sinks from the given source.
// The gas mode last selected for the vehicle is restored from persistence if available.
func NewLongitudinalController(
	config configuration.Configuration,
	p persistence.Persistence,
	source telemetry.Source,
	sinks []actuator.Sink,
) LongitudinalController {
	publishInterval := config.StatusPublishInterval
	if publishInterval <= 0 {
		publishInterval = 1
	}
	windowSize := config.CycleTimeWindowSize
	if windowSize <= 0 {
		windowSize = 1
	}
	rate := config.Rate
	if rate <= 0 {
		rate = configuration.DefaultRate
	}

	c := &longitudinalController{
		persistence:     p,
		vehicleId:       config.Vehicle.Id,
		cycleTime:       time.Duration(float64(time.Second) / rate),
		publishInterval: uint64(publishInterval),
		control:         longcontrol.NewLongControl(config.Longitudinal, config.Vehicle, rate),
		source:          source,
		sinks:           sinks,
		cycleTimes:      util.CreateRollingWindow(windowSize),
		lastState:       longcontrol.StateOff,
		subscribers:     map[int]chan Status{},
	}
	c.gasMode.Store(int32(c.restoreGasMode(config.GasMode)))
	return c
}

func (c *longitudinalController) restoreGasMode(fallback configuration.GasMode) configuration.GasMode {
	if c.persistence == nil {
		return fallback
	}
	mode, err := c.persistence.LoadGasMode(c.vehicleId)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			ui.Warning("Unable to load gas mode of vehicle '%s': %v", c.vehicleId, err)
		}
		return fallback
	}
	ui.Info("Restored gas mode '%s' for vehicle '%s'", mode, c.vehicleId)
	return mode
}

func (c *longitudinalController) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ui.Info("Starting control loop for vehicle '%s' using source '%s' (cycle time: %v)", c.vehicleId, c.source.Name(), c.cycleTime)

	var g run.Group
	{
		// === control loop
		g.Add(func() error {
			tick := time.Tick(c.cycleTime)
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-tick:
					_, ok, err := c.RunCycle(ctx)
					if err != nil {
						return err
					}
					if !ok {
						ui.Info("Telemetry source '%s' is exhausted", c.source.Name())
						return nil
					}
				}
			}
		}, func(err error) {
			cancel()
			if err != nil {
				ui.Error("Error in control loop of vehicle '%s': %v", c.vehicleId, err)
			}
		})
	}
	{
		// === cycle time monitoring
		g.Add(func() error {
			tick := time.Tick(1 * time.Second)
			var lastOverruns uint64
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-tick:
					lastOverruns = c.reportCycleTimes(lastOverruns)
				}
			}
		}, func(err error) {
			cancel()
		})
	}

	err := g.Run()
	c.releaseActuators()
	c.publish()
	return err
}

func (c *longitudinalController) RunCycle(ctx context.Context) (actuator.Command, bool, error) {
	start := time.Now()

	in, ok := c.source.Next()
	if !ok {
		return actuator.Command{}, false, nil
	}
	in.GasMode = c.GetGasMode()

	output := c.control.Update(in)
	controlStatus := c.control.Status()

	c.mu.Lock()
	c.cycle++
	cycle := c.cycle
	c.mu.Unlock()

	command := actuator.Command{
		Cycle:  cycle,
		State:  controlStatus.State,
		Output: output,
	}
	for _, sink := range c.sinks {
		err := sink.Send(ctx, command)
		if err != nil {
			return command, true, fmt.Errorf("actuator %s: %w", sink.Name(), err)
		}
	}

	if feedbackSource, ok := c.source.(telemetry.FeedbackSource); ok {
		feedbackSource.Feedback(output)
	}

	c.record(in, controlStatus, time.Since(start))
	if cycle%c.publishInterval == 0 {
		c.publish()
	}

	return command, true, nil
}

// record updates the session statistics with the result of a single cycle
func (c *longitudinalController) record(in longcontrol.CycleInput, controlStatus longcontrol.Status, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Cycles++
	if c.lastState == longcontrol.StateOff && controlStatus.State != longcontrol.StateOff {
		c.stats.Engagements++
		ui.Debug("Longitudinal control of vehicle '%s' engaged", c.vehicleId)
	}
	if c.lastState != longcontrol.StateStopping && controlStatus.State == longcontrol.StateStopping {
		c.stats.Stops++
	}
	if !c.lastPedalOverride && controlStatus.PedalOverride {
		c.stats.PedalOverrides++
		ui.Debug("Pedal override on vehicle '%s'", c.vehicleId)
	}
	if duration > c.cycleTime {
		c.stats.CycleOverruns++
	}
	c.lastState = controlStatus.State
	c.lastPedalOverride = controlStatus.PedalOverride

	c.cycleTimes.Append(float64(duration) / float64(time.Millisecond))

	c.status.Input = in
	c.status.Control = controlStatus
}

// publish stores the current status in the StatusMap and hands it to all subscribers
func (c *longitudinalController) publish() {
	status := c.GetStatus()
	StatusMap.Set(c.vehicleId, status)

	c.subscribersMu.Lock()
	defer c.subscribersMu.Unlock()
	for _, subscriber := range c.subscribers {
		select {
		case subscriber <- status:
		default:
		}
	}
}

func (c *longitudinalController) reportCycleTimes(lastOverruns uint64) uint64 {
	c.mu.Lock()
	overruns := c.stats.CycleOverruns
	avg, maxCycleTime := c.cycleTimeStats()
	c.mu.Unlock()

	ui.Debug("Cycle time of vehicle '%s': avg %.3fms, max %.3fms", c.vehicleId, avg, maxCycleTime)
	if overruns > lastOverruns {
		ui.Warning("Control loop of vehicle '%s' exceeded its cycle time of %v %d times (max: %.3fms)",
			c.vehicleId, c.cycleTime, overruns-lastOverruns, maxCycleTime)
	}
	return overruns
}

// releaseActuators sends a neutral command to every sink
func (c *longitudinalController) releaseActuators() {
	c.mu.Lock()
	cycle := c.cycle + 1
	c.mu.Unlock()

	command := actuator.Command{
		Cycle: cycle,
		State: longcontrol.StateOff,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	for _, sink := range c.sinks {
		err := sink.Send(ctx, command)
		if err != nil {
			ui.Warning("Unable to release actuator %s: %v", sink.Name(), err)
		}
	}
}

func (c *longitudinalController) GetStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := c.status
	status.VehicleId = c.vehicleId
	status.Source = c.source.Name()
	status.Cycle = c.cycle
	status.GasMode = c.GetGasMode()
	status.Stats = c.stats
	status.CycleTimeAvg, status.CycleTimeMax = c.cycleTimeStats()
	status.UpdatedAt = time.Now()
	return status
}

// cycleTimeStats returns the average and max cycle duration in ms, c.mu must be held
func (c *longitudinalController) cycleTimeStats() (avg float64, max float64) {
	if c.stats.Cycles == 0 {
		return 0, 0
	}
	return util.GetFilledWindowAvg(c.cycleTimes, c.stats.Cycles), util.GetWindowMax(c.cycleTimes)
}

func (c *longitudinalController) GetStatistics() persistence.SessionStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.stats
	stats.Sessions = 1
	stats.UpdatedAt = time.Now()
	return stats
}

func (c *longitudinalController) GetGasMode() configuration.GasMode {
	return configuration.GasMode(c.gasMode.Load())
}

// SetGasMode changes the gas mode used from the next cycle on and persists it for the vehicle
func (c *longitudinalController) SetGasMode(mode configuration.GasMode) error {
	if !mode.IsSet() && mode != configuration.GasModeUnset {
		return fmt.Errorf("unsupported gas mode '%s'", mode)
	}
	previous := configuration.GasMode(c.gasMode.Swap(int32(mode)))
	if previous != mode {
		ui.Info("Gas mode of vehicle '%s' changed from '%s' to '%s'", c.vehicleId, previous, mode)
	}
	if c.persistence == nil {
		return nil
	}
	if mode == configuration.GasModeUnset {
		return c.persistence.DeleteGasMode(c.vehicleId)
	}
	return c.persistence.SaveGasMode(c.vehicleId, mode)
}

func (c *longitudinalController) Subscribe() (<-chan Status, func()) {
	c.subscribersMu.Lock()
	defer c.subscribersMu.Unlock()

	id := c.nextSubscriber
	c.nextSubscriber++
	subscriber := make(chan Status, 1)
	c.subscribers[id] = subscriber

	var once sync.Once
	return subscriber, func() {
		once.Do(func() {
			c.subscribersMu.Lock()
			defer c.subscribersMu.Unlock()
			delete(c.subscribers, id)
			close(subscriber)
		})
	}
}
