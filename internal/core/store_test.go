package core

import (
	"errors"
	"sync"
	"testing"
)

func numberRecords(ns ...float64) []Record {
	records := make([]Record, len(ns))
	for i, n := range ns {
		records[i] = NewRecord(NumberValue(n))
	}
	return records
}

func TestRecordStore_CommitReplacesRecords(t *testing.T) {
	s := NewRecordStore()

	tk := s.Begin()
	if !s.Status().Loading {
		t.Error("Loading = false after Begin, want true")
	}

	if !s.Commit(tk, numberRecords(1, 2, 3)) {
		t.Fatal("Commit() = false, want true")
	}

	status := s.Status()
	if status.Loading {
		t.Error("Loading = true after Commit, want false")
	}
	if status.Count != 3 {
		t.Errorf("Count = %d, want 3", status.Count)
	}
	if status.Generation != uint64(tk) {
		t.Errorf("Generation = %d, want %d", status.Generation, tk)
	}
	if status.UpdatedAt.IsZero() {
		t.Error("UpdatedAt is zero after Commit")
	}
}

func TestRecordStore_StaleResponseDiscarded(t *testing.T) {
	s := NewRecordStore()

	a := s.Begin()
	b := s.Begin()

	if !s.Commit(b, numberRecords(2, 2)) {
		t.Fatal("Commit(b) = false, want true")
	}
	if s.Commit(a, numberRecords(1)) {
		t.Error("Commit(a) = true after newer ticket committed, want false")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2 (response b)", s.Len())
	}
}

func TestRecordStore_StaleResponseBeforeNewer(t *testing.T) {
	s := NewRecordStore()

	a := s.Begin()
	b := s.Begin()

	// A arrives first but was superseded by B.
	if s.Commit(a, numberRecords(1)) {
		t.Error("Commit(a) = true while b is outstanding, want false")
	}
	if !s.Status().Loading {
		t.Error("Loading = false while b is outstanding, want true")
	}
	if !s.Commit(b, numberRecords(2, 2)) {
		t.Fatal("Commit(b) = false, want true")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestRecordStore_FailKeepsRecords(t *testing.T) {
	s := NewRecordStore()
	s.Refresh(numberRecords(1, 2))

	boom := errors.New("boom")
	tk := s.Begin()
	if !s.Fail(tk, boom) {
		t.Fatal("Fail() = false, want true")
	}

	status := s.Status()
	if !errors.Is(status.Err, boom) {
		t.Errorf("Err = %v, want %v", status.Err, boom)
	}
	if status.Loading {
		t.Error("Loading = true after Fail, want false")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}

	// A later success clears the error.
	tk = s.Begin()
	s.Commit(tk, numberRecords(9))
	if s.Status().Err != nil {
		t.Errorf("Err = %v after Commit, want nil", s.Status().Err)
	}
}

func TestRecordStore_StaleFailIgnored(t *testing.T) {
	s := NewRecordStore()
	a := s.Begin()
	b := s.Begin()

	if s.Fail(a, errors.New("late failure")) {
		t.Error("Fail(a) = true after b issued, want false")
	}
	s.Commit(b, numberRecords(1))
	if s.Status().Err != nil {
		t.Errorf("Err = %v, want nil", s.Status().Err)
	}
}

func TestRecordStore_AllReturnsCopy(t *testing.T) {
	s := NewRecordStore()
	s.Refresh(numberRecords(1, 2, 3))

	all := s.All()
	all[0] = NewRecord(NumberValue(100))

	r, ok := s.At(0)
	if !ok {
		t.Fatal("At(0) not found")
	}
	if n, _ := r.Get(0).Number(); n != 1 {
		t.Errorf("store record 0 = %v, want 1", n)
	}
	if _, ok := s.At(3); ok {
		t.Error("At(3) found, want out of range")
	}
	if _, ok := s.At(-1); ok {
		t.Error("At(-1) found, want out of range")
	}
}

func TestRecordStore_RefreshDoesNotAliasInput(t *testing.T) {
	s := NewRecordStore()
	input := numberRecords(1, 2)
	s.Refresh(input)
	input[0] = NewRecord(NumberValue(50))

	r, _ := s.At(0)
	if n, _ := r.Get(0).Number(); n != 1 {
		t.Errorf("store record 0 = %v, want 1", n)
	}
}

func TestRecordStore_ConcurrentReaders(t *testing.T) {
	s := NewRecordStore()
	s.Refresh(numberRecords(1, 2, 3))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if n := len(s.All()); n != 3 && n != 4 {
					t.Errorf("len(All()) = %d, want 3 or 4", n)
					return
				}
			}
		}()
	}

	for j := 0; j < 50; j++ {
		tk := s.Begin()
		s.Commit(tk, numberRecords(1, 2, 3, 4))
	}
	wg.Wait()
}
