package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pokersight_frames_total",
		Help: "Total number of frames run through the pixel detector.",
	})
	framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pokersight_frames_dropped_total",
		Help: "Total number of frames dropped because the event queue was full.",
	})
	responsesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pokersight_responses_total",
		Help: "Total number of completed model responses classified.",
	})
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokersight_transitions_total",
		Help: "Total number of UiState transitions emitted, by phase.",
	}, []string{"phase"})
)
