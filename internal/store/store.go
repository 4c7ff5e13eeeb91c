// Package store holds model metadata and usage tracking for the service.
// The metadata store implements the collaborator contract the inference
// core consumes: lookups by id/user, partial updates, request counting and
// soft deletion. Persistence is in-memory; rows are seeded from the
// registry scan at startup.
package store

import (
	"sync"
	"time"

	"predictd/pkg/types"
)

// ModelUpdate is a partial update applied to a metadata row. Nil fields are
// left untouched.
type ModelUpdate struct {
	Name        *string
	Description *string
	Status      *types.ModelStatus
	InputSchema *types.InputSchema
}

// ModelStore is an in-memory metadata store.
type ModelStore struct {
	mu     sync.RWMutex
	models map[string]*types.ModelMetadata
}

func NewModelStore() *ModelStore {
	return &ModelStore{models: make(map[string]*types.ModelMetadata)}
}

// Seed inserts metadata rows, replacing any existing row with the same id.
func (s *ModelStore) Seed(models []types.ModelMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range models {
		m := models[i]
		s.models[m.ID] = &m
	}
}

// Insert adds a new row. Returns false when the id is already present.
func (s *ModelStore) Insert(md types.ModelMetadata) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.models[md.ID]; ok {
		return false
	}
	if md.CreatedAt.IsZero() {
		md.CreatedAt = time.Now()
	}
	s.models[md.ID] = &md
	return true
}

// FindByID returns a copy of the row, or nil when unknown.
func (s *ModelStore) FindByID(id string) *types.ModelMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[id]
	if !ok {
		return nil
	}
	cp := *m
	return &cp
}

// FindByUserID returns copies of all rows owned by userID.
func (s *ModelStore) FindByUserID(userID string) []types.ModelMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.ModelMetadata
	for _, m := range s.models {
		if m.UserID == userID {
			out = append(out, *m)
		}
	}
	return out
}

// List returns copies of all rows, soft-deleted ones included unless
// activeOnly is set.
func (s *ModelStore) List(activeOnly bool) []types.ModelMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.ModelMetadata, 0, len(s.models))
	for _, m := range s.models {
		if activeOnly && m.Status != types.StatusActive {
			continue
		}
		out = append(out, *m)
	}
	return out
}

// Update applies a partial update. Returns false when the id is unknown.
func (s *ModelStore) Update(id string, upd ModelUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.models[id]
	if !ok {
		return false
	}
	if upd.Name != nil {
		m.Name = *upd.Name
	}
	if upd.Description != nil {
		m.Description = *upd.Description
	}
	if upd.Status != nil {
		m.Status = *upd.Status
	}
	if upd.InputSchema != nil {
		m.InputSchema = upd.InputSchema
	}
	return true
}

// IncrementRequestCount bumps the usage counter and last-used time.
// Unknown ids are ignored; usage tracking must never fail a prediction.
func (s *ModelStore) IncrementRequestCount(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.models[id]; ok {
		m.RequestCount++
		m.LastUsedAt = time.Now()
	}
}

// SoftDelete transitions a row to the deleted status. The row remains
// readable; nothing is ever physically removed.
func (s *ModelStore) SoftDelete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.models[id]
	if !ok {
		return false
	}
	m.Status = types.StatusDeleted
	return true
}

// Count returns the number of rows.
func (s *ModelStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.models)
}
