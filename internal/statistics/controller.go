package statistics

import (
	"github.com/longctl/longctl/internal/controller"
	"github.com/prometheus/client_golang/prometheus"
)

const controllerSubsystem = "controller"

type ControllerCollector struct {
	controllers []controller.LongitudinalController

	cycles         *prometheus.Desc
	engagements    *prometheus.Desc
	stops          *prometheus.Desc
	pedalOverrides *prometheus.Desc
	cycleOverruns  *prometheus.Desc
	cycleTimeAvg   *prometheus.Desc
	cycleTimeMax   *prometheus.Desc
	gasMode        *prometheus.Desc
}

func NewControllerCollector(controllers []controller.LongitudinalController) *ControllerCollector {
	return &ControllerCollector{
		controllers: controllers,
		cycles: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "cycles_total"),
			"Number of control cycles run by this controller",
			[]string{"vehicle"}, nil,
		),
		engagements: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "engagements_total"),
			"Number of times longitudinal control engaged",
			[]string{"vehicle"}, nil,
		),
		stops: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "stops_total"),
			"Number of times the controller started to bring the vehicle to a halt",
			[]string{"vehicle"}, nil,
		),
		pedalOverrides: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "pedal_overrides_total"),
			"Number of times the driver overrode the controller using a pedal",
			[]string{"vehicle"}, nil,
		),
		cycleOverruns: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "cycle_overruns_total"),
			"Number of control cycles that took longer than the cycle time",
			[]string{"vehicle"}, nil,
		),
		cycleTimeAvg: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "cycle_time_avg_ms"),
			"Average duration of the recent control cycles in milliseconds",
			[]string{"vehicle"}, nil,
		),
		cycleTimeMax: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "cycle_time_max_ms"),
			"Max duration of the recent control cycles in milliseconds",
			[]string{"vehicle"}, nil,
		),
		gasMode: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "gas_mode"),
			"Gas mode selected by the driver (-1: unset, 0: default, 1: sport, 2: eco)",
			[]string{"vehicle"}, nil,
		),
	}
}

func (collector *ControllerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.cycles
	ch <- collector.engagements
	ch <- collector.stops
	ch <- collector.pedalOverrides
	ch <- collector.cycleOverruns
	ch <- collector.cycleTimeAvg
	ch <- collector.cycleTimeMax
	ch <- collector.gasMode
}

// Collect implements required collect function for all prometheus collectors
func (collector *ControllerCollector) Collect(ch chan<- prometheus.Metric) {
	for _, contr := range collector.controllers {
		status := contr.GetStatus()
		vehicleId := status.VehicleId
		stats := status.Stats
		ch <- prometheus.MustNewConstMetric(collector.cycles, prometheus.CounterValue, float64(stats.Cycles), vehicleId)
		ch <- prometheus.MustNewConstMetric(collector.engagements, prometheus.CounterValue, float64(stats.Engagements), vehicleId)
		ch <- prometheus.MustNewConstMetric(collector.stops, prometheus.CounterValue, float64(stats.Stops), vehicleId)
		ch <- prometheus.MustNewConstMetric(collector.pedalOverrides, prometheus.CounterValue, float64(stats.PedalOverrides), vehicleId)
		ch <- prometheus.MustNewConstMetric(collector.cycleOverruns, prometheus.CounterValue, float64(stats.CycleOverruns), vehicleId)
		ch <- prometheus.MustNewConstMetric(collector.cycleTimeAvg, prometheus.GaugeValue, status.CycleTimeAvg, vehicleId)
		ch <- prometheus.MustNewConstMetric(collector.cycleTimeMax, prometheus.GaugeValue, status.CycleTimeMax, vehicleId)
		ch <- prometheus.MustNewConstMetric(collector.gasMode, prometheus.GaugeValue, float64(status.GasMode), vehicleId)
	}
}
