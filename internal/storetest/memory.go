// Package storetest provides an in-memory IntegrationRepository for
// tests and local development.
package storetest

import (
	"context"
	"sync"

	"github.com/monthwrap/integrations/domain"
)

type key struct {
	userID   string
	provider domain.Provider
}

// MemoryStore keeps integration records in a map guarded by a mutex.
// Upsert applies the same merge semantics as the persistent store.
type MemoryStore struct {
	mu      sync.Mutex
	records map[key]*domain.IntegrationRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[key]*domain.IntegrationRecord)}
}

func (s *MemoryStore) Get(_ context.Context, userID string, provider domain.Provider) (*domain.IntegrationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key{userID, provider}]
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) Upsert(_ context.Context, record *domain.IntegrationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{record.UserID, record.Provider}
	merged := domain.MergeRecords(s.records[k], record)
	s.records[k] = merged
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string, provider domain.Provider) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{userID, provider}
	if _, ok := s.records[k]; !ok {
		return false, nil
	}
	delete(s.records, k)
	return true, nil
}
