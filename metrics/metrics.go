// metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DepartmentTagFallbacks counts documents whose department tags could
	// not be decoded as JSON and fell back to the raw-string form.
	DepartmentTagFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "department_tag_decode_fallbacks_total",
		Help: "Documents whose department tags required the raw-string fallback.",
	})

	// PolicyEvaluations counts engine outcomes: approve, deny, no_decision.
	PolicyEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "policy_evaluations_total",
			Help: "Automatic policy evaluations by outcome.",
		},
		[]string{"outcome"},
	)

	// MalformedConditions counts active policies skipped during evaluation
	// because their condition could not be parsed.
	MalformedConditions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "policy_malformed_conditions_total",
		Help: "Active policies skipped due to an unparseable condition.",
	})

	// AlertsCreated counts security alerts by rule and severity. Reused
	// (deduplicated) alerts are not counted.
	AlertsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "security_alerts_created_total",
			Help: "Security alerts created, by rule and severity.",
		},
		[]string{"rule", "severity"},
	)

	// ClassifierFailures counts failed or timed-out risk classifier calls.
	ClassifierFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "risk_classifier_failures_total",
		Help: "Risk classifier calls that errored or timed out.",
	})
)

// Init registers the collectors on the default registry.
func Init() {
	prometheus.MustRegister(
		DepartmentTagFallbacks,
		PolicyEvaluations,
		MalformedConditions,
		AlertsCreated,
		ClassifierFailures,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
