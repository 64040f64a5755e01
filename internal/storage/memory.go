package storage

import (
	"context"
	"sync"

	"github.com/cyderes/dog-ratings-pipeline/internal/models"
)

// MemoryStorage keeps the master table in process. It is the default
// backend and what the serve command uses when nothing else is configured.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []models.MasterRecord
	byID    map[string]int
	status  *models.RunStatus
}

// NewMemoryStorage creates an empty in-memory store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{byID: map[string]int{}}
}

// StoreRecords replaces the stored table with a copy of records
func (m *MemoryStorage) StoreRecords(ctx context.Context, records []models.MasterRecord) error {
	cp := make([]models.MasterRecord, len(records))
	copy(cp, records)
	byID := make(map[string]int, len(cp))
	for i, r := range cp {
		byID[r.TweetID] = i
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = cp
	m.byID = byID
	return nil
}

// GetRecords returns one page of records in merge order
func (m *MemoryStorage) GetRecords(ctx context.Context, limit int, offset int) ([]models.MasterRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return page(m.records, limit, offset), nil
}

// GetRecordByID returns nil when the id is not stored
func (m *MemoryStorage) GetRecordByID(ctx context.Context, tweetID string) (*models.MasterRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.byID[tweetID]
	if !ok {
		return nil, nil
	}
	r := m.records[i]
	return &r, nil
}

func (m *MemoryStorage) UpdateRunStatus(ctx context.Context, status models.RunStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = &status
	return nil
}

func (m *MemoryStorage) GetRunStatus(ctx context.Context) (*models.RunStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.status == nil {
		return neverRun(), nil
	}
	s := *m.status
	return &s, nil
}

func (m *MemoryStorage) Close() error { return nil }
