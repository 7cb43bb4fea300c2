package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"etatcivil/internal/declaration/models"
	id "etatcivil/pkg/domain"
	"etatcivil/pkg/platform/sentinel"
)

// InMemory keeps declarations in process memory. Read-modify-write atomicity
// across calls comes from the caller's transaction lock, not from this type.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.DeclarationID]*models.Declaration
	byKey   map[string]id.DeclarationID
	history map[id.DeclarationID][]models.Transition
}

func NewInMemory() *InMemory {
	return &InMemory{
		records: make(map[id.DeclarationID]*models.Declaration),
		byKey:   make(map[string]id.DeclarationID),
		history: make(map[id.DeclarationID][]models.Transition),
	}
}

func (s *InMemory) Create(_ context.Context, d *models.Declaration, created models.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := d.DuplicateKey()
	if _, taken := s.byKey[key]; taken {
		return sentinel.ErrConflict
	}
	s.byKey[key] = d.ID
	s.records[d.ID] = d.Clone()
	s.history[d.ID] = []models.Transition{created}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, declarationID id.DeclarationID) (*models.Declaration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.records[declarationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return d.Clone(), nil
}

// FindForUpdate is FindByID; the row lock is the caller's shard lock.
func (s *InMemory) FindForUpdate(ctx context.Context, declarationID id.DeclarationID) (*models.Declaration, error) {
	return s.FindByID(ctx, declarationID)
}

func (s *InMemory) List(_ context.Context, filter models.ListFilter) ([]*models.Declaration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Declaration, 0)
	for _, d := range s.records {
		if filter.Matches(d) {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out, nil
}

func (s *InMemory) History(_ context.Context, declarationID id.DeclarationID) ([]models.Transition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.history[declarationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]models.Transition(nil), h...), nil
}

// ApplyTransition writes the new state and appends t in one step.
func (s *InMemory) ApplyTransition(_ context.Context, d *models.Declaration, t models.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[d.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.records[d.ID] = d.Clone()
	s.history[d.ID] = append(s.history[d.ID], t)
	return nil
}

func (s *InMemory) LinkCertificate(_ context.Context, declarationID id.DeclarationID, certificateID id.CertificateID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.records[declarationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if d.CertificateID != nil {
		return sentinel.ErrAlreadyUsed
	}
	d.CertificateID = &certificateID
	d.UpdatedAt = at
	return nil
}
