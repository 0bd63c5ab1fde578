package cart

import (
	"sync"

	"storefront/internal/domain"
)

// Store owns one cart. Dispatch is serialized, so transitions are totally
// ordered and subscribers only ever receive complete states, in order.
// Subscribers must not call Dispatch.
type Store struct {
	mu       sync.Mutex
	notifyMu sync.Mutex
	state    State
	nextID   int
	subs     map[int]func(State)
}

// NewStore returns a store in the initial state: no items, panel hidden.
func NewStore() *Store {
	return &Store{
		state: State{Items: []Item{}},
		subs:  make(map[int]func(State)),
	}
}

// Dispatch applies cmd and returns the resulting snapshot.
func (s *Store) Dispatch(cmd Command) State {
	s.mu.Lock()
	s.state = Reduce(s.state, cmd)
	snap := s.state.clone()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	// take notifyMu before releasing mu so notifications keep dispatch order
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, fn := range subs {
		fn(snap.clone())
	}
	return snap
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive every new state after a dispatch.
// The returned func removes the subscription.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Convenience wrappers mirroring the command set.

func (s *Store) Add(p domain.Product) State           { return s.Dispatch(AddItem{Product: p}) }
func (s *Store) Remove(productID string) State        { return s.Dispatch(RemoveItem{ProductID: productID}) }
func (s *Store) SetQuantity(id string, n int64) State { return s.Dispatch(SetQuantity{ProductID: id, Quantity: n}) }
func (s *Store) Clear() State                         { return s.Dispatch(Clear{}) }
func (s *Store) Toggle() State                        { return s.Dispatch(ToggleVisible{}) }
func (s *Store) Close() State                         { return s.Dispatch(Close{}) }
