package repository

import (
	"sync"

	"github.com/vibast-solutions/ms-go-website/app/entity"
)

const DefaultRecordCapacity = 100

// RecordStats counts records by status.
type RecordStats struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// RecordStore is a bounded in-memory FIFO of email records.
type RecordStore struct {
	mu       sync.Mutex
	capacity int
	records  []entity.EmailRecord
}

// NewRecordStore constructs a store holding at most capacity records.
func NewRecordStore(capacity int) *RecordStore {
	if capacity <= 0 {
		capacity = DefaultRecordCapacity
	}
	return &RecordStore{
		capacity: capacity,
		records:  make([]entity.EmailRecord, 0, capacity),
	}
}

// Append adds a record, evicting the oldest when full.
func (s *RecordStore) Append(record entity.EmailRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) >= s.capacity {
		copy(s.records, s.records[1:])
		s.records = s.records[:len(s.records)-1]
	}
	s.records = append(s.records, record)
}

// List returns a copy of the records, oldest first.
func (s *RecordStore) List() []entity.EmailRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entity.EmailRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *RecordStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *RecordStore) Capacity() int {
	return s.capacity
}

// Stats counts the retained records by status.
func (s *RecordStore) Stats() RecordStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats RecordStats
	for _, r := range s.records {
		switch r.Status {
		case entity.EmailStatusSent:
			stats.Sent++
		case entity.EmailStatusFailed:
			stats.Failed++
		}
	}
	return stats
}
