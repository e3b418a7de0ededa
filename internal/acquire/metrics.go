package acquire

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinylscout_model_attempts_total",
			Help: "Model invocation attempts by model and classified outcome",
		},
		[]string{"model", "outcome"},
	)

	// decodeTierTotal counts which tier produced each result. Failed
	// acquisitions are counted under tier "none".
	decodeTierTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinylscout_decode_tier_total",
			Help: "Acquisition results by schema and decode tier",
		},
		[]string{"schema", "tier"},
	)
)
