package metrics

import (
	"time"

	"github.com/ogurasousui/worklog-review/internal/core/workentry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "worklog"
	subsystem = "review"
)

// Recorder は作業記録の状態遷移を Prometheus に記録します。
type Recorder struct {
	transitions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewRecorder は reg にメトリクスを登録した Recorder を生成します。reg が nil の場合は既定のレジストリを使います。
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "transitions_total",
			Help:      "Total number of work entry operations partitioned by action and result code.",
		}, []string{"action", "result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "transition_duration_seconds",
			Help:      "Latency of work entry operations.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"action"}),
	}
}

// ObserveTransition は workentry.Recorder を実装します。
func (r *Recorder) ObserveTransition(action workentry.Action, code workentry.Code, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.transitions.With(prometheus.Labels{
		"action": string(action),
		"result": string(code),
	}).Inc()
	r.duration.With(prometheus.Labels{"action": string(action)}).Observe(elapsed.Seconds())
}

var _ workentry.Recorder = (*Recorder)(nil)
