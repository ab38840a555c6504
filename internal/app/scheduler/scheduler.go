// Package scheduler runs callbacks on one-shot or interval timers drawn
// from a bounded pool. Intervals are measured on the injected clock's
// monotonic reading, so wall clock steps do not shift them.
package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NetCenter-Dev/Fetcher/internal/clock"
)

// MaxTimers bounds the pool.
const MaxTimers = 128

type TimerID int

// NoTimer is returned alongside errors from Create.
const NoTimer TimerID = -1

var (
	ErrNoFreeTimer = errors.New("scheduler: there is no free timer")
	ErrNoSuchTimer = errors.New("scheduler: no such timer")
	ErrClosed      = errors.New("scheduler: closed")
	ErrNilCallback = errors.New("scheduler: nil callback")
	ErrBadDuration = errors.New("scheduler: duration must be positive")
)

type timer struct {
	fn func()

	// run serializes invocations of fn so that a slow callback never
	// overlaps with the next firing of the same timer.
	run sync.Mutex

	stop func()
}

func (t *timer) fire() {
	t.run.Lock()
	defer t.run.Unlock()
	t.fn()
}

type Scheduler struct {
	mu     sync.Mutex
	clock  clock.Clock
	slots  [MaxTimers]*timer
	closed bool
	wg     sync.WaitGroup
}

func New(c clock.Clock) *Scheduler {
	if c == nil {
		c = clock.Real()
	}
	return &Scheduler{clock: c}
}

// Create reserves a timer slot for fn. The timer is idle until started.
func (s *Scheduler) Create(fn func()) (TimerID, error) {
	if fn == nil {
		return NoTimer, ErrNilCallback
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return NoTimer, ErrClosed
	}
	for i, slot := range s.slots {
		if slot == nil {
			s.slots[i] = &timer{fn: fn}
			return TimerID(i), nil
		}
	}
	return NoTimer, ErrNoFreeTimer
}

// StartOnce fires the timer once after d. Starting a running timer
// restarts it.
func (s *Scheduler) StartOnce(id TimerID, d time.Duration) error {
	return s.start(id, d, false)
}

// StartInterval fires the timer every d until stopped.
func (s *Scheduler) StartInterval(id TimerID, d time.Duration) error {
	return s.start(id, d, true)
}

func (s *Scheduler) start(id TimerID, d time.Duration, repeat bool) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s", ErrBadDuration, d)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookupLocked(id)
	if err != nil {
		return err
	}
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}

	if !repeat {
		handle := s.clock.AfterFunc(d, t.fire)
		t.stop = func() { handle.Stop() }
		return nil
	}

	tk := s.clock.NewTicker(d)
	done := make(chan struct{})
	var once sync.Once
	t.stop = func() { once.Do(func() { close(done) }) }

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer tk.Stop()
		for {
			select {
			case <-done:
				return
			case <-tk.C:
				select {
				case <-done:
					return
				default:
				}
				t.fire()
			}
		}
	}()
	return nil
}

// Stop halts a timer without releasing its slot. A callback already
// running is allowed to finish.
func (s *Scheduler) Stop(id TimerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookupLocked(id)
	if err != nil {
		return err
	}
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
	return nil
}

// Delete stops the timer and frees its slot.
func (s *Scheduler) Delete(id TimerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookupLocked(id)
	if err != nil {
		return err
	}
	if t.stop != nil {
		t.stop()
	}
	s.slots[id] = nil
	return nil
}

// Active reports how many slots are in use.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.slots {
		if t != nil {
			n++
		}
	}
	return n
}

// Close deletes every timer and waits for interval loops to exit.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for i, t := range s.slots {
		if t != nil && t.stop != nil {
			t.stop()
		}
		s.slots[i] = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) lookupLocked(id TimerID) (*timer, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if id < 0 || int(id) >= MaxTimers || s.slots[id] == nil {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchTimer, id)
	}
	return s.slots[id], nil
}
