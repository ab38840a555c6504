package queue

import (
	"fmt"
	"sync"

	"github.com/NetCenter-Dev/Fetcher/internal/domain"
	"github.com/NetCenter-Dev/Fetcher/internal/ports"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 1024

var (
	ErrQueueFull          = ports.ErrQueueFull
	ErrQueueEmpty         = ports.ErrQueueEmpty
	ErrInvalidPacketState = ports.ErrInvalidPacketState
)

// StateError rejects a packet whose status does not allow queueing.
// It matches ErrInvalidPacketState with errors.Is.
type StateError struct {
	Status domain.PacketStatus
	Reason string
}

func (e *StateError) Error() string { return "queue: " + e.Reason }

func (e *StateError) Is(target error) bool { return target == ErrInvalidPacketState }

// RingQueue is a bounded circular FIFO guarded by a mutex. One slot is
// kept free so that head == tail always means empty.
type RingQueue struct {
	mu    sync.Mutex
	slots []*domain.Packet
	head  int
	tail  int
	cap   int
}

func NewRingQueue(capacity int) *RingQueue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RingQueue{
		slots: make([]*domain.Packet, capacity+1),
		cap:   capacity,
	}
}

// Enqueue appends p and marks it queued. The queue is unchanged on error.
func (q *RingQueue) Enqueue(p *domain.Packet) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := checkEnqueueable(p); err != nil {
		return err
	}
	if q.lenLocked() >= q.cap {
		return ErrQueueFull
	}
	p.Status = domain.StatusQueued
	q.slots[q.tail] = p
	q.tail = q.next(q.tail)
	return nil
}

// Peek returns the oldest packet without removing it.
func (q *RingQueue) Peek() (*domain.Packet, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == q.tail {
		return nil, ErrQueueEmpty
	}
	return q.slots[q.head], nil
}

// Dequeue removes and returns the oldest packet.
func (q *RingQueue) Dequeue() (*domain.Packet, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == q.tail {
		return nil, ErrQueueEmpty
	}
	return q.popLocked(), nil
}

// Discard drops the oldest packet, if any, without returning it.
func (q *RingQueue) Discard() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head != q.tail {
		q.popLocked()
	}
}

func (q *RingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

func (q *RingQueue) Cap() int { return q.cap }

func (q *RingQueue) popLocked() *domain.Packet {
	p := q.slots[q.head]
	q.slots[q.head] = nil
	q.head = q.next(q.head)
	return p
}

func (q *RingQueue) lenLocked() int {
	n := len(q.slots)
	return (q.tail - q.head + n) % n
}

func (q *RingQueue) next(i int) int { return (i + 1) % len(q.slots) }

func checkEnqueueable(p *domain.Packet) error {
	if p == nil {
		return &StateError{Reason: "nil packet"}
	}
	switch p.Status {
	case domain.StatusCreated, domain.StatusDelayed:
		return nil
	case domain.StatusProblem:
		return &StateError{Status: p.Status, Reason: fmt.Sprintf("packet has a problem: %s", p.Text())}
	case domain.StatusQueued:
		return &StateError{Status: p.Status, Reason: "packet already queued"}
	case domain.StatusSent:
		return &StateError{Status: p.Status, Reason: "packet already sent"}
	case domain.StatusDestroyed:
		return &StateError{Status: p.Status, Reason: "cannot enqueue destroyed packet"}
	default:
		panic(fmt.Sprintf("queue: packet status %d outside declared set", int(p.Status)))
	}
}

var _ ports.PacketQueue = (*RingQueue)(nil)
