// Package storage keeps recent pipeline reports so a trial session can
// fetch a run again after the fact. The store holds rendered views, not
// raw results, so withheld text can never resurface from history.
package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/ProVishP/protegrity-developer-edition-trial-center/internal/report"
)

// ErrNotFound is returned when a report ID is unknown or evicted.
var ErrNotFound = fmt.Errorf("storage: report not found")

// ReportStore persists rendered pipeline reports.
type ReportStore interface {
	Put(ctx context.Context, view *report.View) error
	Get(ctx context.Context, id string) (*report.View, error)
	List(ctx context.Context) ([]*report.View, error)
}

// DefaultCapacity bounds an in-memory store when none is given.
const DefaultCapacity = 256

// MemoryReportStore is an in-memory ReportStore with a fixed capacity.
// When full, the oldest report is evicted.
type MemoryReportStore struct {
	mu       sync.RWMutex
	capacity int
	reports  map[string]*report.View
	order    []string
}

// NewMemoryReportStore creates an in-memory store. A non-positive
// capacity falls back to DefaultCapacity.
func NewMemoryReportStore(capacity int) *MemoryReportStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryReportStore{
		capacity: capacity,
		reports:  make(map[string]*report.View),
	}
}

// Put stores a report view, evicting the oldest entry when full.
func (s *MemoryReportStore) Put(_ context.Context, view *report.View) error {
	if view == nil || view.ID == "" {
		return fmt.Errorf("storage: report view must have an ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[view.ID]; !exists {
		if len(s.order) >= s.capacity {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.reports, oldest)
		}
		s.order = append(s.order, view.ID)
	}
	s.reports[view.ID] = view
	return nil
}

// Get retrieves a report view by ID.
func (s *MemoryReportStore) Get(_ context.Context, id string) (*report.View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return view, nil
}

// List returns the stored views, oldest first.
func (s *MemoryReportStore) List(_ context.Context) ([]*report.View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make([]*report.View, 0, len(s.order))
	for _, id := range s.order {
		views = append(views, s.reports[id])
	}
	return views, nil
}
