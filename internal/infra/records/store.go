package records

import (
	"fmt"
	"sync"

	"hydroponics/internal/domain"
)

// Store is the ordered, in-memory list of plant records. It is never
// written to disk except through ExportCSV.
type Store struct {
	mu      sync.RWMutex
	records []domain.PlantRecord
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Add(rec domain.PlantRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *Store) Remove(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.records) {
		return &domain.ValidationError{
			Field:  "index",
			Reason: fmt.Sprintf("no record at position %d (have %d)", index+1, len(s.records)),
			Err:    domain.ErrIndexOutOfRange,
		}
	}

	s.records = append(s.records[:index:index], s.records[index+1:]...)
	return nil
}

func (s *Store) Get(index int) (domain.PlantRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.records) {
		return domain.PlantRecord{}, false
	}
	return s.records[index], true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// List returns a copy of the records in display order.
func (s *Store) List() []domain.PlantRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.PlantRecord, len(s.records))
	copy(result, s.records)
	return result
}

// ReplaceAll swaps the whole sequence in one step.
func (s *Store) ReplaceAll(recs []domain.PlantRecord) {
	next := make([]domain.PlantRecord, len(recs))
	copy(next, recs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = next
}

func (s *Store) ExportCSV(path string) error {
	return ExportCSV(path, s.List())
}
