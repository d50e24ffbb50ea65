package jobstore

import (
	"context"
	"sync"
	"time"

	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
)

// MemoryStore is the non-durable fallback used when Redis is not
// configured or unreachable. Expired records are reaped lazily on read.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*memoryRecord

	// now is swappable in tests.
	now func() time.Time
}

type memoryRecord struct {
	rec       models.JobRecord
	expiresAt time.Time
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*memoryRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Create(_ context.Context, jobID string, metadata map[string]interface{}) error {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[jobID] = &memoryRecord{
		rec:       *newRecord(jobID, metadata, now),
		expiresAt: now.Add(TTL),
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, jobID string) (*models.JobRecord, error) {
	now := s.now()

	s.mu.RLock()
	mr, ok := s.records[jobID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if now.After(mr.expiresAt) {
		s.mu.Lock()
		delete(s.records, jobID)
		s.mu.Unlock()
		return nil, nil
	}

	rec := mr.rec
	if rec.Metadata != nil {
		meta := make(map[string]interface{}, len(rec.Metadata))
		for k, v := range rec.Metadata {
			meta[k] = v
		}
		rec.Metadata = meta
	}
	return &rec, nil
}

func (s *MemoryStore) Update(_ context.Context, jobID string, u Update) error {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	mr, ok := s.records[jobID]
	if !ok {
		return nil
	}
	if now.After(mr.expiresAt) {
		delete(s.records, jobID)
		return nil
	}

	apply(&mr.rec, u, now)
	mr.expiresAt = now.Add(TTL)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, jobID)
	return nil
}

func (s *MemoryStore) Durable() bool { return false }

func (s *MemoryStore) Close() error { return nil }
