// Package metrics exports thread pool events as Prometheus metrics
package metrics

import (
	"errors"
	"time"

	"github.com/jzx17/threadpool/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements types.Observer on top of Prometheus collectors
type Collector struct {
	Submitted    prometheus.Counter
	Rejected     *prometheus.CounterVec
	Finished     *prometheus.CounterVec
	Discarded    prometheus.Counter
	QueueDepth   prometheus.Gauge
	BusyWorkers  prometheus.Gauge
	TaskWait     prometheus.Histogram
	TaskDuration *prometheus.HistogramVec
}

var _ types.Observer = (*Collector)(nil)

// NewCollector creates the collectors and registers them with registerer.
// A nil registerer uses prometheus.DefaultRegisterer.
func NewCollector(registerer prometheus.Registerer, namespace, subsystem string) *Collector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Collector{
		Submitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tasks_submitted_total",
			Help:      "Total number of tasks accepted by the pool",
		}),
		Rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tasks_rejected_total",
			Help:      "Total number of refused submissions",
		}, []string{"reason"}),
		Finished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tasks_finished_total",
			Help:      "Total number of executed tasks by outcome",
		}, []string{"outcome"}),
		Discarded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tasks_discarded_total",
			Help:      "Total number of queued tasks dropped by shutdown",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queue_depth",
			Help:      "Number of tasks waiting for a worker",
		}),
		BusyWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "busy_workers",
			Help:      "Number of workers executing a task",
		}),
		TaskWait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "task_wait_seconds",
			Help:      "Time tasks spent queued before a worker picked them up",
			Buckets:   prometheus.DefBuckets,
		}),
		TaskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "task_duration_seconds",
			Help:      "Task execution time",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
}

// TaskSubmitted implements types.Observer. Observer calls are made outside
// the pool lock and may arrive out of order, so QueueDepth only moves by
// deltas and settles on the true depth once every call has landed.
func (c *Collector) TaskSubmitted(queueLen int) {
	c.Submitted.Inc()
	c.QueueDepth.Inc()
}

// TaskRejected implements types.Observer
func (c *Collector) TaskRejected(err error) {
	c.Rejected.WithLabelValues(rejectReason(err)).Inc()
}

// TaskStarted implements types.Observer
func (c *Collector) TaskStarted(workerID int, wait time.Duration, queueLen int) {
	c.BusyWorkers.Inc()
	c.QueueDepth.Dec()
	c.TaskWait.Observe(wait.Seconds())
}

// TaskFinished implements types.Observer
func (c *Collector) TaskFinished(workerID int, elapsed time.Duration, outcome types.TaskOutcome) {
	c.BusyWorkers.Dec()
	c.Finished.WithLabelValues(outcome.String()).Inc()
	c.TaskDuration.WithLabelValues(outcome.String()).Observe(elapsed.Seconds())
}

// TasksDiscarded implements types.Observer
func (c *Collector) TasksDiscarded(n int) {
	c.Discarded.Add(float64(n))
	c.QueueDepth.Sub(float64(n))
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, types.ErrPoolClosed):
		return "closed"
	case errors.Is(err, types.ErrNilTask):
		return "nil_task"
	default:
		return "other"
	}
}
