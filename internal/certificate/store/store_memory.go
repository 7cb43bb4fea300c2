package store

import (
	"context"
	"sort"
	"sync"

	"etatcivil/internal/certificate/models"
	id "etatcivil/pkg/domain"
	"etatcivil/pkg/platform/sentinel"
)

// InMemory keeps certificates and ledger entries in process memory.
type InMemory struct {
	mu            sync.RWMutex
	certificates  map[id.CertificateID]*models.Certificate
	byDeclaration map[id.DeclarationID]id.CertificateID
	registry      map[string]struct{}
	downloads     map[string]*models.DownloadEntry
	seq           map[string]int64
	next          int64
}

func NewInMemory() *InMemory {
	return &InMemory{
		certificates:  make(map[id.CertificateID]*models.Certificate),
		byDeclaration: make(map[id.DeclarationID]id.CertificateID),
		registry:      make(map[string]struct{}),
		downloads:     make(map[string]*models.DownloadEntry),
		seq:           make(map[string]int64),
	}
}

func (s *InMemory) Create(_ context.Context, c *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byDeclaration[c.DeclarationID]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.registry[c.RegistryNumber]; ok {
		return sentinel.ErrConflict
	}
	s.certificates[c.ID] = c.Clone()
	s.byDeclaration[c.DeclarationID] = c.ID
	s.registry[c.RegistryNumber] = struct{}{}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, certificateID id.CertificateID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.certificates[certificateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *InMemory) FindByDeclaration(_ context.Context, declarationID id.DeclarationID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cid, ok := s.byDeclaration[declarationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.certificates[cid].Clone(), nil
}

func (s *InMemory) UpdateDocument(_ context.Context, certificateID id.CertificateID, doc models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.certificates[certificateID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.Document = doc
	return nil
}

func (s *InMemory) AppendDownload(_ context.Context, e *models.DownloadEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.certificates[e.CertificateID]; !ok {
		return sentinel.ErrNotFound
	}
	if _, ok := s.downloads[e.Reference]; ok {
		return sentinel.ErrConflict
	}
	s.next++
	s.seq[e.Reference] = s.next
	s.downloads[e.Reference] = e.Clone()
	return nil
}

func (s *InMemory) FindDownload(_ context.Context, reference string) (*models.DownloadEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.downloads[reference]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return e.Clone(), nil
}

// ListDownloads returns a certificate's entries in append order.
func (s *InMemory) ListDownloads(_ context.Context, certificateID id.CertificateID) ([]*models.DownloadEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.DownloadEntry, 0)
	for _, e := range s.downloads {
		if e.CertificateID == certificateID {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].Reference] < s.seq[out[j].Reference] })
	return out, nil
}

// SettleDownload moves a pending entry to its final status; exactly one caller wins.
func (s *InMemory) SettleDownload(_ context.Context, reference string, st models.Settlement) (*models.DownloadEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.downloads[reference]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if e.Status != models.DownloadPending {
		return nil, sentinel.ErrInvalidState
	}
	at := st.At
	e.Status = st.Status
	e.Released = st.Released()
	e.FileRef = st.FileRef
	e.SettledAt = &at
	return e.Clone(), nil
}
