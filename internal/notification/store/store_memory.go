package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"etatcivil/internal/notification/models"
	id "etatcivil/pkg/domain"
	"etatcivil/pkg/platform/sentinel"
)

// InMemory keeps notifications in process memory.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.NotificationID]*models.Notification
	// seq breaks CreatedAt ties so listing stays newest first.
	seq   map[id.NotificationID]uint64
	next  uint64
	byRcp map[id.UserID][]id.NotificationID
}

func NewInMemory() *InMemory {
	return &InMemory{
		records: make(map[id.NotificationID]*models.Notification),
		seq:     make(map[id.NotificationID]uint64),
		byRcp:   make(map[id.UserID][]id.NotificationID),
	}
}

func (s *InMemory) Save(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	if _, exists := s.records[n.ID]; !exists {
		s.next++
		s.seq[n.ID] = s.next
		s.byRcp[n.RecipientID] = append(s.byRcp[n.RecipientID], n.ID)
	}
	s.records[n.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, notificationID id.NotificationID) (*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.records[notificationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *InMemory) ListByRecipient(_ context.Context, recipient id.UserID, unreadOnly bool) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byRcp[recipient]
	out := make([]*models.Notification, 0, len(ids))
	for _, nid := range ids {
		n := s.records[nid]
		if unreadOnly && n.Read {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] > s.seq[out[j].ID]
	})
	return out, nil
}

func (s *InMemory) MarkRead(_ context.Context, notificationID id.NotificationID, at time.Time) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.records[notificationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	n.MarkRead(at)
	cp := *n
	return &cp, nil
}

func (s *InMemory) MarkAllRead(_ context.Context, recipient id.UserID, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, nid := range s.byRcp[recipient] {
		if s.records[nid].MarkRead(at) {
			count++
		}
	}
	return count, nil
}

func (s *InMemory) CountUnread(_ context.Context, recipient id.UserID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, nid := range s.byRcp[recipient] {
		if !s.records[nid].Read {
			count++
		}
	}
	return count, nil
}
