package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rp_feed_frames_processed_total",
		Help: "Frames received and decoded from the relay.",
	})
	framesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rp_feed_frames_accepted_total",
		Help: "Frames that produced a store write.",
	})
	framesIgnored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rp_feed_frames_ignored_total",
		Help: "Frames dropped as unroutable, incomplete, or stale.",
	})
	frameErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rp_feed_frame_errors_total",
		Help: "Frames that failed with a database or decode error.",
	})
)
