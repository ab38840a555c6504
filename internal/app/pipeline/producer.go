package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NetCenter-Dev/Fetcher/internal/app/factory"
	"github.com/NetCenter-Dev/Fetcher/internal/domain"
	"github.com/NetCenter-Dev/Fetcher/internal/ports"
)

const defaultIdleSleep = 5 * time.Millisecond

var ErrUnknownPolicy = errors.New("unknown queue-full policy")

// Producer samples one agent per tick and offers the result to the queue.
type Producer struct {
	Agent   *domain.Agent
	Sampler ports.Sampler
	Factory *factory.Factory
	Queue   ports.PacketQueue
	Policy  ports.Policy
	Obs     ports.Observability

	// serializes Tick; scheduled and manual ticks share it
	mu sync.Mutex
}

// Tick runs one sampling round. Concurrent calls run one after another,
// so the sampler never sees overlapping requests for the agent.
func (p *Producer) Tick(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	sctx := ctx
	if p.Policy.SampleTimeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, p.Policy.SampleTimeout)
		defer cancel()
	}

	reading, err := p.Sampler.Sample(sctx, p.Agent)
	if err != nil {
		p.Obs.LogError("sample_failed", err,
			ports.Field{Key: "agent", Value: p.Agent.Name},
			ports.Field{Key: "sampler", Value: p.Sampler.Name()})
	}
	pkt := p.Factory.FromReading(p.Agent, reading, err)
	p.Agent.Timing.LastFired = time.UnixMilli(int64(pkt.TimestampMs))

	return Submit(ctx, p.Queue, pkt, p.Policy, p.Obs)
}

// Submit enqueues pkt according to pol.OnQueueFull:
//
//	block   retry every IdleSleep until there is room or ctx is done
//	drop    destroy the packet, count it, and return nil
//	reject  return ErrQueueFull and leave the packet to the caller
//
// Problem packets are never queued: they are logged, counted and destroyed.
func Submit(ctx context.Context, q ports.PacketQueue, pkt *domain.Packet, pol ports.Policy, obs ports.Observability) error {
	if pkt.Status == domain.StatusProblem {
		obs.LogError("packet_problem", pkt.Err(), agentField(pkt))
		obs.IncCounter("fetcher_packets_problem_total", 1)
		err := pkt.Err()
		pkt.Destroy()
		return err
	}

	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = defaultIdleSleep
	}

	for {
		err := q.Enqueue(pkt)
		if err == nil {
			obs.IncCounter("fetcher_packets_created_total", 1)
			obs.SetGauge("fetcher_queue_length", float64(q.Len()))
			return nil
		}
		if !errors.Is(err, ports.ErrQueueFull) {
			obs.LogError("enqueue_failed", err, agentField(pkt))
			return err
		}

		switch pol.OnQueueFull {
		case "", "block":
			if err := sleepCtx(ctx, sleep); err != nil {
				return err
			}
		case "drop":
			obs.LogError("queue_full_drop", fmt.Errorf("queue length reached capacity %d", q.Cap()), agentField(pkt))
			obs.IncCounter("fetcher_queue_dropped_total", 1)
			pkt.Destroy()
			return nil
		case "reject":
			return err
		default:
			obs.LogError("queue_policy_invalid", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return fmt.Errorf("%w: %q", ErrUnknownPolicy, pol.OnQueueFull)
		}
	}
}

func agentField(pkt *domain.Packet) ports.Field {
	if pkt.Agent == nil {
		return ports.Field{Key: "agent", Value: ""}
	}
	return ports.Field{Key: "agent", Value: pkt.Agent.Name}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
