package subscribers

import (
	"sync"
	"sync/atomic"

	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/metrics"
)

type State int32

const (
	StateConnected State = iota
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

const (
	DefaultBufferSize int = 64
	DefaultMaxMissed  int = 3
)

// Subscriber is one live connection. Frames are read from Outbound until it is closed.
type Subscriber struct {
	outbound chan []byte
	state    atomic.Int32
	missed   atomic.Int32
	evicted  atomic.Bool
}

func (s *Subscriber) Outbound() <-chan []byte {
	return s.outbound
}

func (s *Subscriber) State() State {
	return State(s.state.Load())
}

// Evicted reports whether the registry dropped the subscriber for falling behind.
// Only meaningful once Outbound has been closed.
func (s *Subscriber) Evicted() bool {
	return State(s.state.Load()) == StateClosed && s.evicted.Load()
}

type Option func(*options)

type options struct {
	bufferSize int
}

func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// Registry tracks connected subscribers. All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	members   map[*Subscriber]struct{}
	maxMissed int
	closed    bool
}

func New(maxMissed int) *Registry {
	if maxMissed <= 0 {
		maxMissed = DefaultMaxMissed
	}

	return &Registry{
		members:   make(map[*Subscriber]struct{}),
		maxMissed: maxMissed,
	}
}

func (r *Registry) Register(opts ...Option) *Subscriber {
	o := options{bufferSize: DefaultBufferSize}
	for _, apply := range opts {
		apply(&o)
	}

	s := &Subscriber{outbound: make(chan []byte, o.bufferSize)}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		s.state.Store(int32(StateClosed))
		close(s.outbound)
		return s
	}

	r.members[s] = struct{}{}
	metrics.Subscribers.Set(float64(len(r.members)))

	return s
}

// Unregister removes s and closes its outbound channel. Calling it more than once is a no-op.
func (r *Registry) Unregister(s *Subscriber) {
	if s == nil {
		return
	}

	s.state.CompareAndSwap(int32(StateConnected), int32(StateClosing))

	r.mu.Lock()
	defer r.mu.Unlock()

	r.remove(s)
}

// remove must be called with the write lock held.
func (r *Registry) remove(s *Subscriber) bool {
	if _, ok := r.members[s]; !ok {
		return false
	}

	delete(r.members, s)
	s.state.Store(int32(StateClosed))
	close(s.outbound)
	metrics.Subscribers.Set(float64(len(r.members)))

	return true
}

// Broadcast offers frame to every connected subscriber without blocking and returns the
// number of subscribers that accepted it. Subscribers that miss maxMissed consecutive
// frames are evicted.
func (r *Registry) Broadcast(frame []byte) int {
	var lagging []*Subscriber
	delivered := 0

	r.mu.RLock()
	for s := range r.members {
		if State(s.state.Load()) != StateConnected {
			continue
		}

		select {
		case s.outbound <- frame:
			s.missed.Store(0)
			delivered++
		default:
			if int(s.missed.Add(1)) >= r.maxMissed {
				lagging = append(lagging, s)
			}
		}
	}
	r.mu.RUnlock()

	if len(lagging) > 0 {
		r.mu.Lock()
		for _, s := range lagging {
			if _, ok := r.members[s]; !ok {
				continue
			}
			s.evicted.Store(true)
			r.remove(s)
			metrics.SubscribersEvicted.Inc()
		}
		r.mu.Unlock()
	}

	return delivered
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Close disconnects every subscriber and rejects later registrations.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for s := range r.members {
		r.remove(s)
	}
	r.closed = true
}
