// Package directory resolves offices, hospitals and agent affiliations.
//
// The data is owned by the geography/affiliation collaborator; this service
// only reads it. Error Contract:
//   - FindOffice and FindHospital return sentinel.ErrNotFound for unknown IDs
//   - Affiliation returns ok=false when the user has no affiliation on record
package directory

import (
	"context"

	"github.com/google/uuid"

	id "etatcivil/pkg/domain"
)

// Office is a civil-registry office (mairie).
type Office struct {
	ID        id.OfficeID
	Name      string
	ShortCode string
}

// Hospital is a health facility able to confirm a delivery.
type Hospital struct {
	ID       id.HospitalID
	Name     string
	OfficeID id.OfficeID
}

// Directory is the read side used by the workflow and the notification fan-out.
type Directory interface {
	FindOffice(ctx context.Context, officeID id.OfficeID) (*Office, error)
	FindHospital(ctx context.Context, hospitalID id.HospitalID) (*Hospital, error)
	// AgentsAffiliatedWith lists verified agents of role attached to orgID.
	AgentsAffiliatedWith(ctx context.Context, role id.Role, orgID uuid.UUID) ([]id.UserID, error)
	// AgentsByRole lists every verified agent of role.
	AgentsByRole(ctx context.Context, role id.Role) ([]id.UserID, error)
	Affiliation(ctx context.Context, userID id.UserID) (uuid.UUID, bool, error)
	UserExists(ctx context.Context, userID id.UserID) (bool, error)
}
