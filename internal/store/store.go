// Package store provides run-history storage backends for PersonaPipe.
//
// It includes an in-memory store for tests and short-lived processes, plus
// SQLite and PostgreSQL backed stores for persistent run history.
package store

import (
	"sync"
	"time"
)

// RunRecord is one persisted workflow run summary.
type RunRecord struct {
	ID             string         `json:"id"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
	Success        bool           `json:"success"`
	Apps           []string       `json:"apps"`
	EntryCounts    map[string]int `json:"entry_counts"`
	ErrorCount     int            `json:"error_count"`
	OutputPath     string         `json:"output_path"`
	OverallQuality string         `json:"overall_quality"`
	RealismScore   int            `json:"realism_score"`
	DiversityScore int            `json:"diversity_score"`
	CoherenceScore int            `json:"coherence_score"`
}

// RunStore persists workflow run summaries.
type RunStore interface {
	RecordRun(r RunRecord) error
	ListRuns() ([]RunRecord, error)
}

// InMemoryStore is a simple in-memory run store.
type InMemoryStore struct {
	mu   sync.Mutex
	runs []RunRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) RecordRun(r RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, r)
	return nil
}

// ListRuns returns recorded runs newest first.
func (s *InMemoryStore) ListRuns() ([]RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RunRecord, len(s.runs))
	for i, r := range s.runs {
		out[len(s.runs)-1-i] = r
	}
	return out, nil
}
