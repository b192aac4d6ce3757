package main

import (
	"encoding/json"
	"os"
	"sync"
)

// ValueStore persists the last accepted value of every numeric control so
// it survives a restart. Flat identity -> value JSON file; an absent or
// unreadable file simply means nothing to restore.
type ValueStore struct {
	mu     sync.Mutex
	path   string
	values map[string]float64
}

func NewValueStore(path string) *ValueStore {
	store := &ValueStore{
		path:   path,
		values: map[string]float64{},
	}
	if path == "" {
		return store
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return store
	}
	if err := json.Unmarshal(data, &store.values); err != nil {
		log.Errorf("couldn't parse value store %v: %v", path, err)
		store.values = map[string]float64{}
	}
	return store
}

// LastValue implements controls.RestoreStore.
func (s *ValueStore) LastValue(identity string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[identity]
	return v, ok
}

// RecordValue stores a newly accepted value and rewrites the backing file.
func (s *ValueStore) RecordValue(identity string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[identity] = value
	if s.path == "" {
		return
	}
	data, err := json.Marshal(s.values)
	if err != nil {
		log.Errorf("couldn't encode value store: %v", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		log.Errorf("couldn't write value store %v: %v", s.path, err)
	}
}
