package fetcher

import (
	"context"
	"fmt"

	"github.com/NetCenter-Dev/Fetcher/internal/adapters/transport"
	"github.com/NetCenter-Dev/Fetcher/internal/app/pipeline"
	"github.com/NetCenter-Dev/Fetcher/internal/ports"
)

// Observe pushes an externally produced reading for an event-driven agent.
// The value is encoded with the agent's value type and classified through its
// message table exactly like a sampled value. With the reject policy a full
// queue returns ErrQueueFull.
func (r *Runtime) Observe(ctx context.Context, agent string, value any, code int, text string) error {
	a, ok := r.agents[agent]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAgent, agent)
	}
	pkt := r.factory.FromReading(a, ports.Reading{Value: value, Code: code, Text: text}, nil)
	return pipeline.Submit(ctx, r.queue, pkt, r.cfg.Policy, r.obs)
}

// ErrQueueFull is returned by Observe when the reject policy refuses a packet.
var ErrQueueFull = ports.ErrQueueFull

// Stats is a point-in-time view of the runtime.
type Stats struct {
	Agents       int
	QueueLen     int
	QueueCap     int
	Transport    string
	BreakerState string
	Running      bool
	ActiveTimers int
}

// Stats reports queue occupancy and transport health.
func (r *Runtime) Stats() Stats {
	r.mu.Lock()
	running := r.started
	r.mu.Unlock()

	st := Stats{
		Agents:       len(r.agents),
		QueueLen:     r.queue.Len(),
		QueueCap:     r.queue.Cap(),
		Transport:    r.transport.Name(),
		Running:      running,
		ActiveTimers: r.sched.Active(),
	}
	if rel, ok := r.transport.(*transport.Reliable); ok {
		st.BreakerState = rel.State()
	}
	return st
}
