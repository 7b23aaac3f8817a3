package storage

import (
	"sort"
	"sync"

	"github.com/imagetoprompts/naimeta/internal/models"
)

// RecordStore keeps extraction results in memory for the HTTP server
type RecordStore struct {
	records map[string]*models.StoredRecord
	mu      sync.RWMutex
}

func New() *RecordStore {
	return &RecordStore{
		records: make(map[string]*models.StoredRecord),
	}
}

func (s *RecordStore) Get(id string) (*models.StoredRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, exists := s.records[id]
	return record, exists
}

func (s *RecordStore) Set(id string, record *models.StoredRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = record
}

// List returns every record, oldest first
func (s *RecordStore) List() []*models.StoredRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.StoredRecord, 0, len(s.records))
	for _, v := range s.records {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Delete removes a record and reports whether it existed
func (s *RecordStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.records[id]
	delete(s.records, id)
	return exists
}
