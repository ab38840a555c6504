package sampler

import (
	"context"
	"time"

	"github.com/NetCenter-Dev/Fetcher/internal/clock"
	"github.com/NetCenter-Dev/Fetcher/internal/domain"
	"github.com/NetCenter-Dev/Fetcher/internal/ports"
)

// Heartbeat proves liveness. Void agents get an empty reading; others get
// the uptime in seconds.
type Heartbeat struct {
	clock   clock.Clock
	started time.Time
}

func NewHeartbeat(c clock.Clock) *Heartbeat {
	if c == nil {
		c = clock.Real()
	}
	return &Heartbeat{clock: c, started: c.Now()}
}

func (h *Heartbeat) Name() string { return "heartbeat" }

func (h *Heartbeat) Sample(_ context.Context, agent *domain.Agent) (ports.Reading, error) {
	up := h.clock.Now().Sub(h.started).Seconds()
	v, err := coerce(agent.Type, up)
	if err != nil {
		return ports.Reading{}, err
	}
	return ports.Reading{Value: v, Text: "alive"}, nil
}

var _ ports.Sampler = (*Heartbeat)(nil)
