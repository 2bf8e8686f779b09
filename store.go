// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package inspector

import "sync"

// recordStore retains the most recent resolved records in memory, bounded
// by a fixed capacity. When full, the oldest record is evicted. It backs
// [Inspector.Records] and the debug handler.
type recordStore struct {
	mu      sync.RWMutex
	records []*Record // oldest first
	byID    map[string]*Record
	max     int
}

// newRecordStore creates a store that retains up to max records.
func newRecordStore(max int) *recordStore {
	return &recordStore{
		records: make([]*Record, 0, max),
		byID:    make(map[string]*Record, max),
		max:     max,
	}
}

// add appends a record, evicting the oldest one when the store is full.
// It returns the evicted record's ID, or "" when nothing was evicted.
func (s *recordStore) add(rec *Record) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := ""
	if len(s.records) >= s.max {
		oldest := s.records[0]
		evicted = oldest.ID
		delete(s.byID, oldest.ID)
		copy(s.records, s.records[1:])
		s.records = s.records[:len(s.records)-1]
	}

	s.records = append(s.records, rec)
	s.byID[rec.ID] = rec

	return evicted
}

// get returns the record with the given ID, if it is still retained.
func (s *recordStore) get(id string) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	return rec, ok
}

// len returns the number of retained records.
func (s *recordStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// list returns the retained records, newest first.
func (s *recordStore) list() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, len(s.records))
	for i, rec := range s.records {
		out[len(s.records)-1-i] = rec
	}
	return out
}

// Records returns the retained records, newest first. Records are immutable
// once resolved, so the returned slice is safe to read concurrently with
// ongoing requests.
//
// Returns [ErrStoreDisabled] when the store is disabled via
// [WithoutStore] or WithMaxStoredRecords(0).
func (i *Inspector) Records() ([]*Record, error) {
	if i.store == nil {
		return nil, ErrStoreDisabled
	}
	return i.store.list(), nil
}

// Record returns the retained record with the given ID. The boolean is
// false when the record was never stored or has been evicted.
//
// Returns [ErrStoreDisabled] when the store is disabled via
// [WithoutStore] or WithMaxStoredRecords(0).
func (i *Inspector) Record(id string) (*Record, bool, error) {
	if i.store == nil {
		return nil, false, ErrStoreDisabled
	}
	rec, ok := i.store.get(id)
	return rec, ok, nil
}
