package statistics

import (
	"github.com/longctl/longctl/internal/controller"
	"github.com/prometheus/client_golang/prometheus"
)

const longControlSubsystem = "longcontrol"

// LongControlCollector exports the result of the last control cycle
type LongControlCollector struct {
	controllers []controller.LongitudinalController

	state     *prometheus.Desc
	gas       *prometheus.Desc
	brake     *prometheus.Desc
	gasMax    *prometheus.Desc
	brakeMax  *prometheus.Desc
	vPid      *prometheus.Desc
	vEgo      *prometheus.Desc
	pidTerm   *prometheus.Desc
	saturated *prometheus.Desc
}

func NewLongControlCollector(controllers []controller.LongitudinalController) *LongControlCollector {
	return &LongControlCollector{
		controllers: controllers,
		state: prometheus.NewDesc(prometheus.BuildFQName(namespace, longControlSubsystem, "state"),
			"Current control state (0: off, 1: pid, 2: stopping, 3: starting)",
			[]string{"vehicle"}, nil,
		),
		gas: prometheus.NewDesc(prometheus.BuildFQName(namespace, longControlSubsystem, "gas"),
			"Gas command of the last cycle",
			[]string{"vehicle"}, nil,
		),
		brake: prometheus.NewDesc(prometheus.BuildFQName(namespace, longControlSubsystem, "brake"),
			"Brake command of the last cycle",
			[]string{"vehicle"}, nil,
		),
		gasMax: prometheus.NewDesc(prometheus.BuildFQName(namespace, longControlSubsystem, "gas_max"),
			"Gas limit of the last cycle",
			[]string{"vehicle"}, nil,
		),
		brakeMax: prometheus.NewDesc(prometheus.BuildFQName(namespace, longControlSubsystem, "brake_max"),
			"Brake limit of the last cycle",
			[]string{"vehicle"}, nil,
		),
		vPid: prometheus.NewDesc(prometheus.BuildFQName(namespace, longControlSubsystem, "v_pid"),
			"Speed setpoint of the pid loop in m/s",
			[]string{"vehicle"}, nil,
		),
		vEgo: prometheus.NewDesc(prometheus.BuildFQName(namespace, longControlSubsystem, "v_ego"),
			"Vehicle speed of the last cycle in m/s",
			[]string{"vehicle"}, nil,
		),
		pidTerm: prometheus.NewDesc(prometheus.BuildFQName(namespace, longControlSubsystem, "pid_term"),
			"Contribution of the proportional (p), integral (i) and feedforward (f) terms",
			[]string{"vehicle", "term"}, nil,
		),
		saturated: prometheus.NewDesc(prometheus.BuildFQName(namespace, longControlSubsystem, "pid_saturated"),
			"1 if the pid loop has been saturated for too long",
			[]string{"vehicle"}, nil,
		),
	}
}

func (collector *LongControlCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.state
	ch <- collector.gas
	ch <- collector.brake
	ch <- collector.gasMax
	ch <- collector.brakeMax
	ch <- collector.vPid
	ch <- collector.vEgo
	ch <- collector.pidTerm
	ch <- collector.saturated
}

// Collect implements required collect function for all prometheus collectors
func (collector *LongControlCollector) Collect(ch chan<- prometheus.Metric) {
	for _, contr := range collector.controllers {
		status := contr.GetStatus()
		vehicleId := status.VehicleId
		control := status.Control

		saturated := 0.0
		if control.Pid.Saturated {
			saturated = 1
		}

		ch <- prometheus.MustNewConstMetric(collector.state, prometheus.GaugeValue, float64(control.State), vehicleId)
		ch <- prometheus.MustNewConstMetric(collector.gas, prometheus.GaugeValue, control.Gas, vehicleId)
		ch <- prometheus.MustNewConstMetric(collector.brake, prometheus.GaugeValue, control.Brake, vehicleId)
		ch <- prometheus.MustNewConstMetric(collector.gasMax, prometheus.GaugeValue, control.GasMax, vehicleId)
		ch <- prometheus.MustNewConstMetric(collector.brakeMax, prometheus.GaugeValue, control.BrakeMax, vehicleId)
		ch <- prometheus.MustNewConstMetric(collector.vPid, prometheus.GaugeValue, control.VPid, vehicleId)
		ch <- prometheus.MustNewConstMetric(collector.vEgo, prometheus.GaugeValue, status.Input.Vehicle.VEgo, vehicleId)
		ch <- prometheus.MustNewConstMetric(collector.pidTerm, prometheus.GaugeValue, control.Pid.P, vehicleId, "p")
		ch <- prometheus.MustNewConstMetric(collector.pidTerm, prometheus.GaugeValue, control.Pid.I, vehicleId, "i")
		ch <- prometheus.MustNewConstMetric(collector.pidTerm, prometheus.GaugeValue, control.Pid.F, vehicleId, "f")
		ch <- prometheus.MustNewConstMetric(collector.saturated, prometheus.GaugeValue, saturated, vehicleId)
	}
}
