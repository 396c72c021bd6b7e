// Package relay holds the in-process live-location state: the latest sample
// per order plus the subscriber fan-out that pushes new samples to open
// tracking streams.
package relay

import (
	"sync"

	"github.com/Jafar777/Turbo-Essen-sub001/models"
)

// Store maps an order ID to its latest location sample and the set of
// subscriptions watching it. A Store is constructed once per process and
// shared by the publish and stream handlers. All methods are safe for
// concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	sample *models.LocationSample
	subs   map[*Subscription]struct{}
}

// Subscription delivers samples for one order. The channel is closed when
// the subscription is cancelled or the order is evicted.
type Subscription struct {
	ch      chan *models.LocationSample
	orderID string
	store   *Store
	closed  bool // guarded by store.mu
}

func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Put replaces the current sample for the order and wakes every subscriber.
// Last writer wins; there is no sequencing beyond arrival order.
func (s *Store) Put(sample *models.LocationSample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensure(sample.OrderID)
	e.sample = sample
	for sub := range e.subs {
		sub.deliver(sample)
	}
}

// PutIfAbsent stores the sample only when the order has no current one,
// waking subscribers as Put does. Used for mirror hydration: a stale mirror
// read must never displace a sample published in the meantime.
func (s *Store) PutIfAbsent(sample *models.LocationSample) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensure(sample.OrderID)
	if e.sample != nil {
		return false
	}
	e.sample = sample
	for sub := range e.subs {
		sub.deliver(sample)
	}
	return true
}

// Get returns the current sample for the order, or false if none has been
// published since the entry was created or last evicted.
func (s *Store) Get(orderID string) (*models.LocationSample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[orderID]
	if !ok || e.sample == nil {
		return nil, false
	}
	return e.sample, true
}

// Subscribe registers a watcher for the order. Subscribing before the first
// publish is allowed; the subscription simply waits for it.
func (s *Store) Subscribe(orderID string) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &Subscription{
		ch:      make(chan *models.LocationSample, 1),
		orderID: orderID,
		store:   s,
	}
	e := s.ensure(orderID)
	e.subs[sub] = struct{}{}
	return sub
}

// Evict drops the order's entry and closes every open subscription for it.
// Called when the order reaches a terminal status, which bounds the store.
func (s *Store) Evict(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[orderID]
	if !ok {
		return
	}
	for sub := range e.subs {
		sub.closed = true
		close(sub.ch)
	}
	delete(s.entries, orderID)
}

// Len reports the number of tracked orders.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) ensure(orderID string) *entry {
	e, ok := s.entries[orderID]
	if !ok {
		e = &entry{subs: make(map[*Subscription]struct{})}
		s.entries[orderID] = e
	}
	return e
}

// C is the receive side of the subscription. A closed channel means the
// subscription was cancelled or the order was evicted.
func (sub *Subscription) C() <-chan *models.LocationSample {
	return sub.ch
}

// Cancel detaches the subscription and closes its channel. Idempotent and
// safe to call after eviction.
func (sub *Subscription) Cancel() {
	s := sub.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.ch)

	e, ok := s.entries[sub.orderID]
	if !ok {
		return
	}
	delete(e.subs, sub)
	if len(e.subs) == 0 && e.sample == nil {
		delete(s.entries, sub.orderID)
	}
}

// deliver performs a non-blocking send, displacing an unread sample so a
// slow subscriber always sees the latest one. Caller holds store.mu, so
// deliver never races with close.
func (sub *Subscription) deliver(sample *models.LocationSample) {
	for {
		select {
		case sub.ch <- sample:
			return
		default:
		}
		select {
		case <-sub.ch:
		default:
		}
	}
}
