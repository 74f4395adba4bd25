package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful operations.
	OutcomeSuccess = "success"
	// OutcomeError labels failed operations (pipeline or dependency issues).
	OutcomeError = "error"
	// OutcomeCached labels explanations served from the store.
	OutcomeCached = "cached"

	// ResultAccepted and ResultRejected label peak summaries passing or failing the final filter.
	ResultAccepted = "accepted"
	ResultRejected = "rejected"

	// OutcomeScored labels IntelPeak computations that produced a winner.
	OutcomeScored = "scored"
	// OutcomeEmpty labels IntelPeak computations with no qualifying peak.
	OutcomeEmpty = "empty"
)

const namespace = "trend_engine"

var (
	explanationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "explanations_total",
			Help:      "Total number of explain requests handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	explanationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "explanation_seconds",
			Help:      "Explain request latency in seconds.",
			Buckets:   []float64{0.05, 0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
	)

	peakSummariesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peak_summaries_total",
			Help:      "Peak summaries built, partitioned by filter result.",
		},
		[]string{"result"},
	)

	intelPeakTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intelpeak_computations_total",
			Help:      "IntelPeak computations, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	geminiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gemini_requests_total",
			Help:      "Narrative generation calls, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	geminiFollowUpsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gemini_followups_total",
			Help:      "Follow-up calls issued because the first reply only promised to search.",
		},
	)

	regenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regenerations_total",
			Help:      "Keyword sets regenerated, partitioned by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register attaches trend-engine collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		explanationsTotal,
		explanationDurationSeconds,
		peakSummariesTotal,
		intelPeakTotal,
		geminiRequestsTotal,
		geminiFollowUpsTotal,
		regenerationsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveExplanation records an explain duration and outcome label.
func ObserveExplanation(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError && label != OutcomeCached {
		label = OutcomeSuccess
	}
	explanationsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	explanationDurationSeconds.Observe(duration.Seconds())
}

// ObservePeakSummaries counts accepted and rejected summaries of one build.
func ObservePeakSummaries(accepted, rejected int) {
	if accepted > 0 {
		peakSummariesTotal.WithLabelValues(ResultAccepted).Add(float64(accepted))
	}
	if rejected > 0 {
		peakSummariesTotal.WithLabelValues(ResultRejected).Add(float64(rejected))
	}
}

// ObserveIntelPeak counts one IntelPeak computation.
func ObserveIntelPeak(scored bool) {
	if scored {
		intelPeakTotal.WithLabelValues(OutcomeScored).Inc()
		return
	}
	intelPeakTotal.WithLabelValues(OutcomeEmpty).Inc()
}

// ObserveGeminiRequest counts one narrative call. followUp marks the second call of a pair.
func ObserveGeminiRequest(outcome string, followUp bool) {
	geminiRequestsTotal.WithLabelValues(outcome).Inc()
	if followUp {
		geminiFollowUpsTotal.Inc()
	}
}

// ObserveRegeneration counts one regenerated keyword set.
func ObserveRegeneration(outcome string) {
	regenerationsTotal.WithLabelValues(outcome).Inc()
}
