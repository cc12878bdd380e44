package strand

// Stats is a point-in-time snapshot of pool counters. Values are read
// without locks and may be mutually inconsistent during concurrent
// operation.
type Stats struct {
	// Submitted is the number of Schedule calls accepted since creation,
	// including tasks later executed inline after shutdown.
	Submitted uint64

	// Completed is the number of task executions that have finished,
	// panicking tasks included.
	Completed uint64

	// Stolen is the number of tasks moved between workers by stealing.
	Stolen uint64

	// InlineExecuted is the number of tasks run on the submitting
	// goroutine because the pool had already shut down (including the
	// final queue drain).
	InlineExecuted uint64

	// NumWorkers is the fixed worker count.
	NumWorkers int

	// WorkerStats has one entry per worker, indexed by worker id.
	WorkerStats []WorkerStats
}

// WorkerStats are per-worker counters.
type WorkerStats struct {
	// WorkerID is the worker's index in the pool.
	WorkerID int

	// TasksExecuted counts tasks this worker ran, stolen ones included.
	TasksExecuted uint64

	// TasksStolen counts tasks this worker took from other workers.
	TasksStolen uint64

	// QueueDepth is the current estimated local deque depth.
	QueueDepth int64
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool) Stats() Stats {
	workerStats := make([]WorkerStats, len(p.workers))
	for i, w := range p.workers {
		workerStats[i] = WorkerStats{
			WorkerID:      i,
			TasksExecuted: w.tasksExecuted.Load(),
			TasksStolen:   w.tasksStolen.Load(),
			QueueDepth:    w.queue.Size(),
		}
	}
	return Stats{
		Submitted:      p.metrics.submitted.Load(),
		Completed:      p.metrics.completed.Load(),
		Stolen:         p.metrics.stolen.Load(),
		InlineExecuted: p.metrics.inline.Load(),
		NumWorkers:     len(p.workers),
		WorkerStats:    workerStats,
	}
}
