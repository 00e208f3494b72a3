package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/longctl/longctl/internal/actuator"
	"github.com/longctl/longctl/internal/api"
	"github.com/longctl/longctl/internal/configuration"
	"github.com/longctl/longctl/internal/controller"
	"github.com/longctl/longctl/internal/persistence"
	"github.com/longctl/longctl/internal/statistics"
	"github.com/longctl/longctl/internal/telemetry"
	"github.com/longctl/longctl/internal/ui"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RunDaemon() {
	config := configuration.CurrentConfig

	pers := persistence.NewPersistence(config.DbPath)
	if err := pers.Init(); err != nil {
		ui.Fatal("Unable to initialize persistence at %s: %v", config.DbPath, err)
	}

	lock, err := AcquireInstanceLock(config.DbPath)
	if err != nil {
		ui.Fatal("%v", err)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source, err := CreateSource(config)
	if err != nil {
		ui.Fatal("Unable to create telemetry source: %v", err)
	}

	sinks, err := CreateSinks(ctx, config.Actuator)
	if err != nil {
		ui.Fatal("Unable to create actuator: %v", err)
	}
	defer closeSinks(sinks)

	contr := controller.NewLongitudinalController(config, pers, source, sinks)
	controllers := []controller.LongitudinalController{contr}
	statistics.Register(statistics.NewControllerCollector(controllers))
	statistics.Register(statistics.NewLongControlCollector(controllers))

	var g run.Group
	{
		if config.Statistics.Enabled {
			// === Prometheus Exporter
			server := &http.Server{
				Addr:    fmt.Sprintf(":%d", config.Statistics.Port),
				Handler: promhttp.Handler(),
			}
			g.Add(func() error {
				ui.Info("Starting statistics server on %s...", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("cannot start prometheus metrics endpoint: %w", err)
				}
				return nil
			}, func(err error) {
				shutdown(server, "statistics server")
			})
		}
	}
	{
		if config.Api.Enabled {
			// === REST api + status stream
			hub := api.NewHub(0, 0)
			hubCtx, hubCancel := context.WithCancel(ctx)
			statuses, unsubscribe := contr.Subscribe()
			go hub.Run(hubCtx)
			go api.RunStatusBroadcaster(hubCtx, statuses, hub)

			rest := api.CreateRestService(contr, hub, prometheus.DefaultRegisterer)
			server := &http.Server{
				Addr:    fmt.Sprintf("%s:%d", config.Api.Host, config.Api.Port),
				Handler: rest,
			}
			g.Add(func() error {
				ui.Info("Starting api server on %s...", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("cannot start api server: %w", err)
				}
				return nil
			}, func(err error) {
				unsubscribe()
				hubCancel()
				shutdown(server, "api server")
			})
		}
	}
	{
		// === longitudinal controller
		g.Add(func() error {
			err := contr.Run(ctx)
			ui.Info("Controller for vehicle '%s' stopped.", config.Vehicle.Id)
			return err
		}, func(err error) {
			cancel()
			if err != nil {
				ui.Warning("Something went wrong: %v", err)
			}
		})
	}
	{
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		done := make(chan struct{})

		g.Add(func() error {
			select {
			case <-sig:
				ui.Info("Received SIGTERM signal, exiting...")
			case <-done:
			}
			return nil
		}, func(err error) {
			signal.Stop(sig)
			close(done)
			cancel()
		})
	}

	err = g.Run()
	saveSessionStats(pers, config.Vehicle.Id, contr.GetStatistics())

	if err != nil {
		ui.Error("%v", err)
		closeSinks(sinks)
		_ = lock.Unlock()
		os.Exit(1)
	}
	ui.Info("Done.")
}

// AcquireInstanceLock makes sure only a single daemon controls the vehicle of the given db
func AcquireInstanceLock(dbPath string) (*flock.Flock, error) {
	lock := flock.New(dbPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("unable to acquire instance lock %s: %w", lock.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("another instance is already running (lock: %s)", lock.Path())
	}
	return lock, nil
}

// CreateSource creates the telemetry source configured in the given configuration
func CreateSource(config configuration.Configuration) (telemetry.Source, error) {
	if config.Telemetry.File == "" {
		return nil, errors.New("no telemetry file configured")
	}
	scenario, err := telemetry.LoadScenario(config.Telemetry.File)
	if err != nil {
		return nil, err
	}
	ui.Info("Loaded scenario '%s' with %d cycles", scenario.Name, scenario.TotalCycles())
	return telemetry.NewScenarioSource(scenario, config.Telemetry.Loop, config.Rate), nil
}

// CreateSinks creates all configured actuator sinks
func CreateSinks(ctx context.Context, config configuration.ActuatorConfig) ([]actuator.Sink, error) {
	var sinks []actuator.Sink
	if config.Log {
		sinks = append(sinks, actuator.NewLogSink())
	}
	if config.Can != nil {
		sink, err := actuator.NewCanSink(ctx, *config.Can)
		if err != nil {
			closeSinks(sinks)
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	if len(sinks) == 0 {
		ui.Warning("No actuator configured, commands are only computed")
	}
	return sinks, nil
}

func closeSinks(sinks []actuator.Sink) {
	for _, sink := range sinks {
		if err := sink.Close(); err != nil {
			ui.Warning("Error closing actuator %s: %v", sink.Name(), err)
		}
	}
}

func saveSessionStats(pers persistence.Persistence, vehicleId string, stats persistence.SessionStats) {
	total, err := pers.AppendSessionStats(vehicleId, stats)
	if err != nil {
		ui.Error("Unable to save session statistics of vehicle '%s': %v", vehicleId, err)
		return
	}
	ui.Info("Session: %d cycles, %d engagements, %d stops, %d pedal overrides, %d cycle overruns",
		stats.Cycles, stats.Engagements, stats.Stops, stats.PedalOverrides, stats.CycleOverruns)
	ui.Debug("Totals over %d sessions: %d cycles, %d engagements, %d stops",
		total.Sessions, total.Cycles, total.Engagements, total.Stops)
}

func shutdown(server *http.Server, name string) {
	ui.Info("Stopping %s...", name)
	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer timeoutCancel()
	if err := server.Shutdown(timeoutCtx); err != nil {
		ui.Warning("Error stopping %s: %v", name, err)
	} else {
		ui.Info("%s stopped.", name)
	}
}
