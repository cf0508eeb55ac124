package metric

import (
	"rsvpd/src-server/attendance"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rsvpOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rsvpd_rsvp_outcomes_total",
		Help: "RSVPs applied, by outcome",
	}, []string{"outcome"})
	promotions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rsvpd_promotions_total",
		Help: "Waitlisted records promoted to going",
	})
	confirmationPrompts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rsvpd_confirmation_prompts_total",
		Help: "Confirmation prompts handled by the sweep, by result",
	}, []string{"result"})
	reconcileRepairs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rsvpd_reconcile_repairs_total",
		Help: "Records repaired by the reconcile sweep, by kind of repair",
	}, []string{"repair"})
)

func ObserveOutcome(outcome *attendance.Outcome) {
	if outcome == nil {
		return
	}
	rsvpOutcomes.WithLabelValues(string(outcome.Kind)).Inc()
	ObservePromoted(len(outcome.Promoted))
}

func ObservePromoted(n int) {
	promotions.Add(float64(n))
}

func ObserveSweep(result *attendance.SweepResult) {
	if result == nil {
		return
	}
	confirmationPrompts.WithLabelValues("sent").Add(float64(result.Sent))
	confirmationPrompts.WithLabelValues("failed").Add(float64(result.Failed))
}

func ObserveReconcile(result *attendance.ReconcileResult) {
	if result == nil {
		return
	}
	reconcileRepairs.WithLabelValues("resequenced").Add(float64(result.Resequenced))
	reconcileRepairs.WithLabelValues("promoted").Add(float64(result.Promoted))
	ObservePromoted(result.Promoted)
}
