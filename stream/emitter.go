package stream

import (
	"sync"
)

// Emitter is the single hot multicast stream for one agent-loop execution.
// The loop pushes events onto it in order; every subscriber — whenever it
// subscribes — sees the same ordered sequence starting from the beginning
// of this execution. The loop never re-runs for a new subscriber (§4.A,
// §9 "do not re-run the loop per subscriber").
//
// Emit never blocks beyond enqueueing: each subscription owns a private
// queue drained by its own goroutine, so a slow subscriber cannot stall
// the loop or other subscribers.
type Emitter struct {
	mu      sync.Mutex
	profile StreamProfile
	history []Event
	subs    map[*Subscription]struct{}
	done    bool
	err     error
}

// NewEmitter constructs an Emitter that enqueues only the event kinds
// allowed by profile.
func NewEmitter(profile StreamProfile) *Emitter {
	return &Emitter{profile: profile, subs: make(map[*Subscription]struct{})}
}

// Emit pushes event to the active stream. A no-op once Complete or Error
// has been called, or if the profile filters this event's kind out.
func (e *Emitter) Emit(event Event) {
	if event == nil {
		return
	}
	e.mu.Lock()
	if e.done || !e.profile.Allows(event.Type()) {
		e.mu.Unlock()
		return
	}
	e.history = append(e.history, event)
	subs := make([]*Subscription, 0, len(e.subs))
	for s := range e.subs {
		subs = append(subs, s)
	}
	e.mu.Unlock()

	for _, s := range subs {
		s.push(event)
	}
}

// Subscribe returns an ordered event stream. Late subscribers receive a
// replay of every prior event of this execution before seeing live events.
func (e *Emitter) Subscribe() *Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := newSubscription()
	for _, ev := range e.history {
		s.push(ev)
	}
	if e.done {
		s.close()
		return s
	}
	e.subs[s] = struct{}{}
	return s
}

// Unsubscribe detaches a subscription early (used on cancellation).
func (e *Emitter) Unsubscribe(s *Subscription) {
	e.mu.Lock()
	delete(e.subs, s)
	e.mu.Unlock()
	s.close()
}

// Complete terminates the execution successfully. Further Emit calls are discarded.
func (e *Emitter) Complete() {
	e.finish(nil)
}

// Error terminates the execution with err. Further Emit calls are discarded.
func (e *Emitter) Error(err error) {
	e.finish(err)
}

func (e *Emitter) finish(err error) {
	e.mu.Lock()
	if e.done {
		e.mu.Unlock()
		return
	}
	e.done = true
	e.err = err
	subs := make([]*Subscription, 0, len(e.subs))
	for s := range e.subs {
		subs = append(subs, s)
	}
	e.subs = make(map[*Subscription]struct{})
	e.mu.Unlock()

	for _, s := range subs {
		s.close()
	}
}

// Subscription is an ordered, per-subscriber view of an Emitter's stream.
// Its internal queue is unbounded for the lifetime of one turn (§5
// backpressure contract): a slow reader cannot block the emitter.
type Subscription struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Event
	closed bool
	out    chan Event
	once   sync.Once
}

func newSubscription() *Subscription {
	s := &Subscription{out: make(chan Event, 64)}
	s.cond = sync.NewCond(&s.mu)
	go s.drain()
	return s
}

func (s *Subscription) push(ev Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, ev)
	s.cond.Signal()
	s.mu.Unlock()
}

func (s *Subscription) close() {
	s.mu.Lock()
	s.closed = true
	s.cond.Signal()
	s.mu.Unlock()
}

// drain moves queued events into the buffered output channel in order,
// blocking only when the channel itself is full, never on the emitter.
func (s *Subscription) drain() {
	defer s.once.Do(func() { close(s.out) })
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 && s.closed {
			s.mu.Unlock()
			return
		}
		ev := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		s.out <- ev
	}
}

// Events returns the channel of events for this subscription. The channel
// is closed once the execution completes/errors and all queued events have
// been delivered.
func (s *Subscription) Events() <-chan Event {
	return s.out
}
