package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/NetCenter-Dev/Fetcher/internal/adapters/wire"
	"github.com/NetCenter-Dev/Fetcher/internal/clock"
	"github.com/NetCenter-Dev/Fetcher/internal/ports"
)

// Sender is the single consumer of the queue. A packet leaves the queue
// only once the transport has accepted it or it cannot be encoded.
type Sender struct {
	Queue     ports.PacketQueue
	Transport ports.Transport
	Policy    ports.Policy
	Obs       ports.Observability
	Clock     clock.Clock
}

// Run sends until ctx is done. Transport failures leave the packet at the
// head of the queue; it is retried after IdleSleep.
func (s *Sender) Run(ctx context.Context) error {
	sleep := s.Policy.IdleSleep
	if sleep <= 0 {
		sleep = defaultIdleSleep
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.SendNext(ctx)
		if err == nil {
			continue
		}
		if !errors.Is(err, ports.ErrQueueEmpty) && ctx.Err() != nil {
			return ctx.Err()
		}
		if err := sleepCtx(ctx, sleep); err != nil {
			return err
		}
	}
}

// Flush sends until the queue is empty. It stops at the first transport
// error so that shutdown does not spin against a dead peer.
func (s *Sender) Flush(ctx context.Context) error {
	for {
		err := s.SendNext(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ports.ErrQueueEmpty):
			return nil
		default:
			return err
		}
	}
}

// SendNext processes the head of the queue. It returns ErrQueueEmpty when
// there is nothing to send and nil when the packet was sent or dead-lettered.
func (s *Sender) SendNext(ctx context.Context) error {
	defer s.Obs.SetGauge("fetcher_queue_length", float64(s.Queue.Len()))

	pkt, err := s.Queue.Peek()
	if err != nil {
		return err
	}

	buf, err := wire.Encode(pkt)
	if err != nil {
		s.Queue.Discard()
		s.Obs.RecordDLQ(pkt, err)
		pkt.Destroy()
		return nil
	}

	frame := ports.Frame{
		Agent:       pkt.Agent.Name,
		Class:       pkt.Class,
		TimestampMs: pkt.TimestampMs,
		Data:        buf,
	}
	if err := s.Transport.Send(ctx, frame); err != nil {
		s.Obs.IncCounter("fetcher_transport_errors_total", 1)
		s.Obs.LogError("transport_send_failed", err,
			ports.Field{Key: "transport", Value: s.Transport.Name()},
			ports.Field{Key: "agent", Value: frame.Agent})
		return err
	}

	s.Queue.Discard()
	if err := pkt.MarkSent(); err != nil {
		s.Obs.LogCritical("packet_state", err, ports.Field{Key: "agent", Value: frame.Agent})
	}
	age := s.now().Sub(time.UnixMilli(int64(pkt.TimestampMs)))
	s.Obs.ObserveLatency("fetcher_send_latency_seconds", age.Seconds())
	s.Obs.IncCounter("fetcher_packets_sent_total", 1)
	pkt.Destroy()
	return nil
}

func (s *Sender) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}
