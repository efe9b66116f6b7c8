// Package status is an example builtin Dispatcher exposing the gateway's
// Stats and uptime as both a JSON view body and Prometheus metrics,
// grounded on gorox's admin status reporting style and on
// kubernetes-kubernetes's use of github.com/prometheus/client_golang.
package status

import (
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/duex-go/duex"
)

// Reporter is a Dispatcher that writes {uptime_seconds, dispatched,
// completed, abortions, rejections, drained, request_id} into the view body and
// mirrors the four counters onto Prometheus gauges. request_id is a fresh
// correlation ID per call (github.com/google/uuid), additive to the
// session's own request ID scheme (§4.4), for cross-referencing status
// snapshots against external traces.
type Reporter struct {
	stats   *duex.Stats
	started time.Time

	dispatchedGauge prometheus.Gauge
	completedGauge  prometheus.Gauge
	abortionsGauge  prometheus.Gauge
	rejectionsGauge prometheus.Gauge
}

// NewReporter builds a Reporter and registers its gauges with reg. A nil
// reg skips Prometheus registration entirely (metrics stay optional, per
// SPEC_FULL.md's domain stack).
func NewReporter(stats *duex.Stats, reg prometheus.Registerer) *Reporter {
	r := &Reporter{
		stats:   stats,
		started: time.Now(),

		dispatchedGauge: prometheus.NewGauge(prometheus.GaugeOpts{Name: "duex_dispatched_total"}),
		completedGauge:  prometheus.NewGauge(prometheus.GaugeOpts{Name: "duex_completed_total"}),
		abortionsGauge:  prometheus.NewGauge(prometheus.GaugeOpts{Name: "duex_abortions_total"}),
		rejectionsGauge: prometheus.NewGauge(prometheus.GaugeOpts{Name: "duex_rejections_total"}),
	}
	if reg != nil {
		reg.MustRegister(r.dispatchedGauge, r.completedGauge, r.abortionsGauge, r.rejectionsGauge)
	}
	return r
}

// Dispatch implements duex.Dispatcher.
func (r *Reporter) Dispatch(_ *duex.Request, sess *duex.Session) error {
	r.dispatchedGauge.Set(float64(r.stats.Dispatched()))
	r.completedGauge.Set(float64(r.stats.Completed()))
	r.abortionsGauge.Set(float64(r.stats.Abortions()))
	r.rejectionsGauge.Set(float64(r.stats.Rejections()))

	sess.View().MergeBody(map[string]any{
		"uptime_seconds": time.Since(r.started).Seconds(),
		"dispatched":     r.stats.Dispatched(),
		"completed":      r.stats.Completed(),
		"abortions":      r.stats.Abortions(),
		"rejections":     r.stats.Rejections(),
		"drained":        r.stats.Drained(),
		"request_id":     uuid.NewString(),
	})
	return nil
}
