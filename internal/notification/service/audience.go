package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	id "etatcivil/pkg/domain"
)

// Tier records which audience strategy produced the recipients.
type Tier string

const (
	// TierTargeted means verified agents affiliated with the organization.
	TierTargeted Tier = "targeted"
	// TierBroadcast means no affiliated agent existed, so every verified agent of the role.
	TierBroadcast Tier = "broadcast"
	// TierEmpty means neither strategy found anyone.
	TierEmpty Tier = "empty"
	// TierDirect is a single addressed user.
	TierDirect Tier = "direct"
)

// AgentDirectory lists verified agents.
type AgentDirectory interface {
	AgentsAffiliatedWith(ctx context.Context, role id.Role, orgID uuid.UUID) ([]id.UserID, error)
	AgentsByRole(ctx context.Context, role id.Role) ([]id.UserID, error)
}

// Audience is a resolved recipient set.
type Audience struct {
	Recipients []id.UserID
	Tier       Tier
}

// AudienceResolver implements the two-tier strategy: the targeted set when it
// is non-empty, otherwise the role-wide broadcast set.
type AudienceResolver struct {
	agents AgentDirectory
}

func NewAudienceResolver(agents AgentDirectory) *AudienceResolver {
	return &AudienceResolver{agents: agents}
}

func (r *AudienceResolver) Resolve(ctx context.Context, role id.Role, orgID uuid.UUID) (Audience, error) {
	targeted, err := r.agents.AgentsAffiliatedWith(ctx, role, orgID)
	if err != nil {
		return Audience{}, fmt.Errorf("resolve affiliated %s agents: %w", role, err)
	}
	if len(targeted) > 0 {
		return Audience{Recipients: targeted, Tier: TierTargeted}, nil
	}

	broadcast, err := r.agents.AgentsByRole(ctx, role)
	if err != nil {
		return Audience{}, fmt.Errorf("resolve %s agents: %w", role, err)
	}
	if len(broadcast) > 0 {
		return Audience{Recipients: broadcast, Tier: TierBroadcast}, nil
	}
	return Audience{Tier: TierEmpty}, nil
}
