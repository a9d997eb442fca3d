// Package metrics exposes prometheus collectors for the workflow engines.
package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the collectors the engines report into.
type Registry struct {
	reg *prometheus.Registry

	QueueTransitions *prometheus.CounterVec
	QueueDepth       *prometheus.GaugeVec
	PlanTransitions  *prometheus.CounterVec
	VerdictsIssued   *prometheus.CounterVec
	RouteSheets      prometheus.Counter
}

func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		QueueTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "promed_queue_transitions_total",
			Help: "Queue entry transitions by station and action.",
		}, []string{"station", "action"}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "promed_queue_depth",
			Help: "Entries currently waiting or called, by station.",
		}, []string{"station"}),
		PlanTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "promed_plan_transitions_total",
			Help: "Calendar plan transitions by action and outcome.",
		}, []string{"action", "outcome"}),
		VerdictsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "promed_verdicts_total",
			Help: "Final verdicts issued by health group.",
		}, []string{"health_group"}),
		RouteSheets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "promed_route_sheets_total",
			Help: "Route sheets generated.",
		}),
	}

	reg.MustRegister(
		r.QueueTransitions,
		r.QueueDepth,
		r.PlanTransitions,
		r.VerdictsIssued,
		r.RouteSheets,
	)
	return r
}

// Handler returns the /metrics endpoint handler.
func (r *Registry) Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
	return echo.WrapHandler(h)
}
