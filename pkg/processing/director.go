package processing

import (
	"fmt"

	"github.com/sharminesan/tb-backend/pkg/config"
	customlog "github.com/sharminesan/tb-backend/pkg/log"
)

// queueSize bounds each pool's backlog. Telemetry is last-value-wins, so a
// deep queue only adds latency.
const queueSize = 64

// Director routes frames from the telemetry feed to the priority pool their
// topic is registered for.
type Director struct {
	logger   customlog.Logger
	registry *Registry

	high     *Pool
	standard *Pool
	low      *Pool
}

// NewDirector creates the three priority pools sized from configuration,
// all running the given handler.
func NewDirector(registry *Registry, cfg config.ProcessingConfig, handler func(Job), logger customlog.Logger) *Director {
	return &Director{
		logger:   logger,
		registry: registry,
		high:     NewPool("high", cfg.HighPriorityWorkers, queueSize, handler, logger),
		standard: NewPool("standard", cfg.StandardPriorityWorkers, queueSize, handler, logger),
		low:      NewPool("low", cfg.LowPriorityWorkers, queueSize, handler, logger),
	}
}

// Start launches all pools.
func (d *Director) Start() {
	d.high.Start()
	d.standard.Start()
	d.low.Start()
}

// Stop drains and stops all pools.
func (d *Director) Stop() {
	d.high.Stop()
	d.standard.Stop()
	d.low.Stop()
}

// Route dispatches one frame to its pool. Unregistered topics are an error;
// a full queue is not, the frame is counted and dropped.
func (d *Director) Route(frame Frame) error {
	entry, ok := d.registry.Lookup(frame.Topic)
	if !ok {
		return fmt.Errorf("no registration for topic '%s'", frame.Topic)
	}
	entry.markReceived()

	job := Job{Frame: frame, Kind: entry.Kind}
	if !d.poolFor(entry.Priority).Submit(job) {
		entry.markDropped()
		d.logger.Debugf("Discarded frame for topic '%s' (%s pool full)",
			frame.Topic, entry.Priority)
	}
	return nil
}

// Metrics returns snapshots for all three pools.
func (d *Director) Metrics() []PoolMetrics {
	return []PoolMetrics{
		d.high.Metrics(),
		d.standard.Metrics(),
		d.low.Metrics(),
	}
}

// TopicStats returns per-topic routing counters.
func (d *Director) TopicStats() []TopicStats {
	return d.registry.Stats()
}

func (d *Director) poolFor(p Priority) *Pool {
	switch p {
	case PriorityHigh:
		return d.high
	case PriorityLow:
		return d.low
	default:
		return d.standard
	}
}
