package sampler

import (
	"context"
	"fmt"
	"sync"

	"github.com/NetCenter-Dev/Fetcher/internal/domain"
	"github.com/NetCenter-Dev/Fetcher/internal/ports"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

type probe func(ctx context.Context) (float64, error)

var hostProbes = map[string]probe{
	"cpu": func(ctx context.Context) (float64, error) {
		pct, err := cpu.PercentWithContext(ctx, 0, false)
		if err != nil {
			return 0, err
		}
		if len(pct) == 0 {
			return 0, fmt.Errorf("cpu: no data")
		}
		return pct[0], nil
	},
	"mem": func(ctx context.Context) (float64, error) {
		vm, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return 0, err
		}
		return vm.UsedPercent, nil
	},
	"load1": func(ctx context.Context) (float64, error) {
		avg, err := load.AvgWithContext(ctx)
		if err != nil {
			return 0, err
		}
		return avg.Load1, nil
	},
}

// Host reports machine statistics. Each agent is bound to one metric.
type Host struct {
	mu      sync.RWMutex
	metrics map[string]string
	probes  map[string]probe
}

func NewHost() *Host {
	return &Host{metrics: make(map[string]string), probes: hostProbes}
}

// Bind assigns metric (cpu, mem or load1) to the named agent.
func (h *Host) Bind(agent, metric string) error {
	if _, ok := h.probes[metric]; !ok {
		return fmt.Errorf("host sampler: unknown metric %q", metric)
	}
	h.mu.Lock()
	h.metrics[agent] = metric
	h.mu.Unlock()
	return nil
}

func (h *Host) Name() string { return "host" }

func (h *Host) Sample(ctx context.Context, agent *domain.Agent) (ports.Reading, error) {
	h.mu.RLock()
	metric, ok := h.metrics[agent.Name]
	h.mu.RUnlock()
	if !ok {
		return ports.Reading{}, fmt.Errorf("host sampler: agent %q is not bound", agent.Name)
	}

	f, err := h.probes[metric](ctx)
	if err != nil {
		return ports.Reading{}, fmt.Errorf("host %s: %w", metric, err)
	}
	v, err := coerce(agent.Type, f)
	if err != nil {
		return ports.Reading{}, err
	}
	return ports.Reading{Value: v, Text: metric}, nil
}

var _ ports.Sampler = (*Host)(nil)
