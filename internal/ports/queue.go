package ports

import (
	"errors"

	"github.com/NetCenter-Dev/Fetcher/internal/domain"
)

var (
	ErrQueueFull          = errors.New("queue: full")
	ErrQueueEmpty         = errors.New("queue: empty")
	ErrInvalidPacketState = errors.New("queue: invalid packet state")
)

// PacketQueue is the bounded FIFO between the producers and the sender.
// Full and empty conditions are reported, never waited on.
type PacketQueue interface {
	Enqueue(p *domain.Packet) error
	Peek() (*domain.Packet, error)
	Dequeue() (*domain.Packet, error)
	Discard()
	Len() int
	Cap() int
}
