package dashboard

import "sync"

// Store holds the current Snapshot. Every sync takes a generation from Begin;
// Replace only accepts a generation newer than the one on display, so a slow
// older sync can never overwrite a newer result.
type Store struct {
	mu       sync.Mutex
	issued   uint64
	applied  uint64
	current  *Snapshot
	inflight int
	subs     map[int]chan Snapshot
	nextSub  int
}

func NewStore() *Store {
	return &Store{subs: make(map[int]chan Snapshot)}
}

// Begin issues the next generation and marks a sync as in flight.
func (s *Store) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	s.inflight++
	return s.issued
}

// End closes the loading boundary opened by Begin.
func (s *Store) End(uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight > 0 {
		s.inflight--
	}
}

// Loading reports whether any sync is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Replace publishes snap wholesale. It returns false for a stale generation.
func (s *Store) Replace(gen uint64, snap Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen <= s.applied {
		return false
	}
	snap.Generation = gen
	s.applied = gen
	s.current = &snap
	for _, ch := range s.subs {
		offerLatest(ch, snap)
	}
	return true
}

// Current returns the snapshot on display, if any.
func (s *Store) Current() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Snapshot{}, false
	}
	return *s.current, true
}

// Reset drops the snapshot and invalidates every generation issued so far.
// Syncs still in flight from a torn-down session are discarded on completion.
// Subscribers receive an empty snapshot with Generation 0.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.applied = s.issued
	cleared := emptySnapshot()
	for _, ch := range s.subs {
		offerLatest(ch, cleared)
	}
}

// Subscribe delivers each published snapshot, starting with the current one.
// A slow reader only ever sees the latest snapshot, never a backlog.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Snapshot, 1)
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	if s.current != nil {
		ch <- *s.current
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func offerLatest(ch chan Snapshot, snap Snapshot) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
