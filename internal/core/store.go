package core

// store.go implements the in-memory record store.
//
// The store has a single writer (the refresh operation) and many readers
// (view queries, exports). The record slice is never mutated in place: a
// refresh swaps in a new slice under the write lock, so a reader holding a
// snapshot keeps seeing a complete, consistent set.
//
// Refreshes are ordered by ticket. Begin issues a strictly increasing ticket;
// only the most recently issued ticket may Commit or Fail. A response that
// arrives after a newer request was issued is discarded, which gives
// last-request-wins semantics regardless of arrival order.

import (
	"sync"
	"time"
)

// Ticket identifies one refresh attempt.
type Ticket uint64

// RecordStore holds the fetched record set.
type RecordStore struct {
	mu        sync.RWMutex
	records   []Record
	issued    Ticket
	applied   Ticket
	loading   bool
	lastErr   error
	updatedAt time.Time
	now       func() time.Time
}

// NewRecordStore creates an empty store.
func NewRecordStore() *RecordStore {
	return &RecordStore{now: time.Now}
}

// Refresh replaces the whole record set, bypassing ticket ordering.
// Used to seed the store from a local snapshot.
func (s *RecordStore) Refresh(records []Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(records)
}

// Begin starts a refresh attempt and returns its ticket.
// Any earlier ticket that has not yet completed is superseded.
func (s *RecordStore) Begin() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	s.loading = true
	return s.issued
}

// Commit applies the result of refresh t.
// Returns false, leaving the store unchanged, if a newer refresh was issued.
func (s *RecordStore) Commit(t Ticket, records []Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t != s.issued {
		return false
	}
	s.replace(records)
	s.applied = t
	s.loading = false
	s.lastErr = nil
	return true
}

// Fail records that refresh t failed. The current records are kept.
// Returns false if a newer refresh was issued.
func (s *RecordStore) Fail(t Ticket, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t != s.issued {
		return false
	}
	s.loading = false
	s.lastErr = err
	return true
}

// replace swaps the record slice. Caller must hold the write lock.
func (s *RecordStore) replace(records []Record) {
	cp := make([]Record, len(records))
	copy(cp, records)
	s.records = cp
	s.updatedAt = s.now()
}

// All returns the stored records in store order.
// The returned slice is a copy; modifying it does not affect the store.
func (s *RecordStore) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := make([]Record, len(s.records))
	copy(cp, s.records)
	return cp
}

// Len returns the number of stored records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// At returns the record at position i in store order.
func (s *RecordStore) At(i int) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i < 0 || i >= len(s.records) {
		return Record{}, false
	}
	return s.records[i], true
}

// Status returns a snapshot of the loading/error state.
func (s *RecordStore) Status() StoreStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return StoreStatus{
		Loading:    s.loading,
		Err:        s.lastErr,
		Generation: uint64(s.applied),
		UpdatedAt:  s.updatedAt,
		Count:      len(s.records),
	}
}
