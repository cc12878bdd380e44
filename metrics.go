package strand

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes a pool's Stats as Prometheus metrics. Register it
// with any prometheus.Registerer:
//
//	prometheus.MustRegister(strand.NewCollector(pool, "myapp"))
type Collector struct {
	pool *Pool

	submitted  *prometheus.Desc
	completed  *prometheus.Desc
	stolen     *prometheus.Desc
	inline     *prometheus.Desc
	workers    *prometheus.Desc
	queueDepth *prometheus.Desc
	executed   *prometheus.Desc
}

// NewCollector creates a Collector for p. namespace may be empty.
func NewCollector(p *Pool, namespace string) *Collector {
	return &Collector{
		pool: p,
		submitted: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "scheduler", "tasks_submitted_total"),
			"Tasks accepted by Schedule.", nil, nil),
		completed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "scheduler", "tasks_completed_total"),
			"Task executions finished, panics included.", nil, nil),
		stolen: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "scheduler", "tasks_stolen_total"),
			"Tasks moved between workers by stealing.", nil, nil),
		inline: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "scheduler", "tasks_inline_total"),
			"Tasks run inline on the submitter after shutdown.", nil, nil),
		workers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "scheduler", "workers"),
			"Fixed worker count.", nil, nil),
		queueDepth: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "scheduler", "worker_queue_depth"),
			"Estimated local deque depth.", []string{"worker"}, nil),
		executed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "scheduler", "worker_tasks_executed_total"),
			"Tasks executed per worker.", []string{"worker"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.submitted
	ch <- c.completed
	ch <- c.stolen
	ch <- c.inline
	ch <- c.workers
	ch <- c.queueDepth
	ch <- c.executed
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.pool.Stats()

	ch <- prometheus.MustNewConstMetric(c.submitted, prometheus.CounterValue, float64(stats.Submitted))
	ch <- prometheus.MustNewConstMetric(c.completed, prometheus.CounterValue, float64(stats.Completed))
	ch <- prometheus.MustNewConstMetric(c.stolen, prometheus.CounterValue, float64(stats.Stolen))
	ch <- prometheus.MustNewConstMetric(c.inline, prometheus.CounterValue, float64(stats.InlineExecuted))
	ch <- prometheus.MustNewConstMetric(c.workers, prometheus.GaugeValue, float64(stats.NumWorkers))

	for _, ws := range stats.WorkerStats {
		id := strconv.Itoa(ws.WorkerID)
		ch <- prometheus.MustNewConstMetric(c.queueDepth, prometheus.GaugeValue, float64(ws.QueueDepth), id)
		ch <- prometheus.MustNewConstMetric(c.executed, prometheus.CounterValue, float64(ws.TasksExecuted), id)
	}
}
