package directory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	id "etatcivil/pkg/domain"
	"etatcivil/pkg/platform/sentinel"
)

type agent struct {
	role     id.Role
	orgID    uuid.UUID
	verified bool
}

// Memory is a seedable in-process Directory.
type Memory struct {
	mu        sync.RWMutex
	offices   map[id.OfficeID]*Office
	hospitals map[id.HospitalID]*Hospital
	users     map[id.UserID]id.Role
	agents    map[id.UserID]agent
}

func NewMemory() *Memory {
	return &Memory{
		offices:   make(map[id.OfficeID]*Office),
		hospitals: make(map[id.HospitalID]*Hospital),
		users:     make(map[id.UserID]id.Role),
		agents:    make(map[id.UserID]agent),
	}
}

func (m *Memory) AddOffice(o Office) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offices[o.ID] = &o
}

func (m *Memory) AddHospital(h Hospital) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hospitals[h.ID] = &h
}

// AddUser registers a user with no affiliation.
func (m *Memory) AddUser(userID id.UserID, role id.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = role
}

// AddAgent registers an agent user. A nil orgID records the agent without affiliation.
func (m *Memory) AddAgent(userID id.UserID, role id.Role, orgID uuid.UUID, verified bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = role
	m.agents[userID] = agent{role: role, orgID: orgID, verified: verified}
}

func (m *Memory) FindOffice(_ context.Context, officeID id.OfficeID) (*Office, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.offices[officeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *Memory) FindHospital(_ context.Context, hospitalID id.HospitalID) (*Hospital, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.hospitals[hospitalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (m *Memory) AgentsAffiliatedWith(_ context.Context, role id.Role, orgID uuid.UUID) ([]id.UserID, error) {
	return m.selectAgents(func(a agent) bool {
		return a.role == role && orgID != uuid.Nil && a.orgID == orgID
	}), nil
}

func (m *Memory) AgentsByRole(_ context.Context, role id.Role) ([]id.UserID, error) {
	return m.selectAgents(func(a agent) bool { return a.role == role }), nil
}

func (m *Memory) Affiliation(_ context.Context, userID id.UserID) (uuid.UUID, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agents[userID]
	if !ok || a.orgID == uuid.Nil {
		return uuid.Nil, false, nil
	}
	return a.orgID, true, nil
}

func (m *Memory) UserExists(_ context.Context, userID id.UserID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.users[userID]
	return ok, nil
}

// selectAgents returns verified matches in a stable order.
func (m *Memory) selectAgents(match func(agent) bool) []id.UserID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []id.UserID
	for userID, a := range m.agents {
		if a.verified && match(a) {
			out = append(out, userID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

var _ Directory = (*Memory)(nil)
