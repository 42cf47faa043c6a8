package service

import (
	"sync"

	"crypto_dash/internal/domain"
)

// Change kinds carried by render notifications.
const (
	ChangeLoad   = "load"
	ChangeAppend = "append"
	ChangePatch  = "patch"
	ChangeStatus = "status"
)

// Change describes one Store mutation.
type Change struct {
	Version uint64 `json:"version"`
	Kind    string `json:"kind"`
}

// View is a consistent copy of the list, the flags and the version.
type View struct {
	Records []domain.AssetRecord `json:"records"`
	Status  domain.Status        `json:"status"`
	Version uint64               `json:"version"`
}

// Store is the View-Model Store: the authoritative ordered list of displayed assets
// plus the loading/error flags shown next to it.
//
// Mutations are expected from a single goroutine (the engine loop).
// The lock only protects concurrent readers such as HTTP handlers.
type Store struct {
	mu       sync.RWMutex
	records  []domain.AssetRecord
	index    map[string]int // id -> position in records
	status   domain.Status
	version  uint64
	onChange func(Change)
}

// NewStore creates an empty store. onChange may be nil.
func NewStore(onChange func(Change)) *Store {
	return &Store{
		index:    make(map[string]int),
		status:   domain.Status{Stream: domain.StreamClosed, Page: 1},
		onChange: onChange,
	}
}

// OnChange replaces the render callback. Call before the loop starts.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// LoadInitial replaces the whole list, preserving order.
// Duplicate ids inside records are collapsed, first occurrence wins.
func (s *Store) LoadInitial(records []domain.AssetRecord) int {
	s.mu.Lock()
	s.records = make([]domain.AssetRecord, 0, len(records))
	s.index = make(map[string]int, len(records))
	s.appendLocked(records)
	n := len(s.records)
	ch := s.bumpLocked(ChangeLoad)
	s.mu.Unlock()

	s.notify(ch)
	return n
}

// Append adds records at the end, skipping ids already present.
// Returns the number of records actually added.
func (s *Store) Append(records []domain.AssetRecord) int {
	s.mu.Lock()
	added := s.appendLocked(records)
	ch := s.bumpLocked(ChangeAppend)
	s.mu.Unlock()

	s.notify(ch)
	return added
}

// Must be called with lock held
func (s *Store) appendLocked(records []domain.AssetRecord) int {
	added := 0
	for _, r := range records {
		if _, exists := s.index[r.ID]; exists {
			continue
		}
		s.index[r.ID] = len(s.records)
		s.records = append(s.records, r)
		added++
	}
	return added
}

// Patch overwrites the fields present in p on the row matching key.
// key matches an id first, then a symbol case-insensitively (first row in rank order).
// An unknown key leaves the list untouched and returns false.
func (s *Store) Patch(key string, p domain.AssetPatch) bool {
	if p.IsEmpty() {
		return false
	}

	s.mu.Lock()
	pos := s.findLocked(key)
	if pos < 0 {
		s.mu.Unlock()
		return false
	}
	s.records[pos].Apply(p)
	ch := s.bumpLocked(ChangePatch)
	s.mu.Unlock()

	s.notify(ch)
	return true
}

// Must be called with lock held
func (s *Store) findLocked(key string) int {
	if pos, ok := s.index[key]; ok {
		return pos
	}
	for i := range s.records {
		if s.records[i].Matches(key) {
			return i
		}
	}
	return -1
}

// UpdateStatus mutates the flags in place and notifies.
func (s *Store) UpdateStatus(fn func(*domain.Status)) {
	s.mu.Lock()
	before := s.status
	fn(&s.status)
	if s.status == before {
		s.mu.Unlock()
		return
	}
	ch := s.bumpLocked(ChangeStatus)
	s.mu.Unlock()

	s.notify(ch)
}

// Must be called with lock held
func (s *Store) bumpLocked(kind string) Change {
	s.version++
	return Change{Version: s.version, Kind: kind}
}

func (s *Store) notify(ch Change) {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn(ch)
	}
}

// CurrentList returns a copy of the live ordered list.
func (s *Store) CurrentList() []domain.AssetRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AssetRecord, len(s.records))
	copy(result, s.records)
	return result
}

// Get returns the row with the given id.
func (s *Store) Get(id string) (domain.AssetRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.index[id]
	if !ok {
		return domain.AssetRecord{}, false
	}
	return s.records[pos], true
}

// Len returns the number of rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Status returns the current flags.
func (s *Store) Status() domain.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Version returns the number of mutations applied so far.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// View returns list, flags and version under one read lock.
func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.AssetRecord, len(s.records))
	copy(records, s.records)
	return View{Records: records, Status: s.status, Version: s.version}
}
