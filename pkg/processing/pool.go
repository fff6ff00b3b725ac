// Package processing routes inbound telemetry frames through priority worker
// pools and decodes them into the telemetry store. Pools are bounded and
// enqueue is non-blocking: under sustained overload frames are discarded and
// counted rather than backing up into the receive loop.
package processing

import (
	"sync"
	"sync/atomic"

	customlog "github.com/sharminesan/tb-backend/pkg/log"
)

// Priority levels for telemetry processing.
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityStandard
	PriorityLow
)

// String returns the configuration name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "HIGH"
	case PriorityStandard:
		return "STANDARD"
	case PriorityLow:
		return "LOW"
	default:
		return "UNKNOWN"
	}
}

// ParsePriority maps a configuration string to a Priority. Unknown values
// fall back to STANDARD.
func ParsePriority(s string) Priority {
	switch s {
	case "HIGH":
		return PriorityHigh
	case "LOW":
		return PriorityLow
	default:
		return PriorityStandard
	}
}

// Frame is one raw telemetry message as received from the bridge feed.
type Frame struct {
	Topic       string
	Payload     []byte
	TimestampNs int64
}

// Job pairs a frame with its resolved telemetry kind so workers do not need
// a registry lookup.
type Job struct {
	Frame Frame
	Kind  string
}

// PoolMetrics is a point-in-time snapshot of a pool's counters.
type PoolMetrics struct {
	Name      string `json:"name"`
	Workers   int    `json:"workers"`
	QueueLen  int    `json:"queue_len"`
	QueueCap  int    `json:"queue_cap"`
	Submitted uint64 `json:"submitted"`
	Processed uint64 `json:"processed"`
	Discarded uint64 `json:"discarded"`
}

// Pool is a fixed-size worker pool with a bounded job queue.
type Pool struct {
	name    string
	workers int
	handler func(Job)
	logger  customlog.Logger

	queue chan Job
	wg    sync.WaitGroup

	submitted uint64
	processed uint64
	discarded uint64

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewPool creates a pool. queueSize bounds how many jobs may wait; beyond
// that Submit discards.
func NewPool(name string, workers, queueSize int, handler func(Job), logger customlog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		name:    name,
		workers: workers,
		handler: handler,
		logger:  logger,
		queue:   make(chan Job, queueSize),
	}
}

// Start launches the workers. Calling Start twice is a no-op.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Infof("Processing pool '%s' started with %d workers (queue %d)",
		p.name, p.workers, cap(p.queue))
}

// Submit enqueues a job without blocking. Returns false when the queue is
// full and the job was discarded.
func (p *Pool) Submit(job Job) bool {
	select {
	case p.queue <- job:
		atomic.AddUint64(&p.submitted, 1)
		return true
	default:
		atomic.AddUint64(&p.discarded, 1)
		return false
	}
}

// Stop drains the queue and waits for the workers to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.queue)
	p.wg.Wait()
	p.logger.Infof("Processing pool '%s' stopped", p.name)
}

// Metrics returns a snapshot of the pool counters.
func (p *Pool) Metrics() PoolMetrics {
	return PoolMetrics{
		Name:      p.name,
		Workers:   p.workers,
		QueueLen:  len(p.queue),
		QueueCap:  cap(p.queue),
		Submitted: atomic.LoadUint64(&p.submitted),
		Processed: atomic.LoadUint64(&p.processed),
		Discarded: atomic.LoadUint64(&p.discarded),
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for job := range p.queue {
		p.handler(job)
		atomic.AddUint64(&p.processed, 1)
	}
	p.logger.Debugf("Pool '%s' worker %d exiting", p.name, id)
}
