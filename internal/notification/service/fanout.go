package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"etatcivil/internal/notification/models"
	id "etatcivil/pkg/domain"
)

// Failure is one recipient that could not be notified.
type Failure struct {
	Recipient id.UserID
	Err       error
}

// Report summarizes a best-effort dispatch.
type Report struct {
	Tier      Tier
	Delivered int
	Failures  []Failure
	// ResolveErr is set when the audience itself could not be resolved.
	ResolveErr error
}

// NotifyAudience resolves the audience for role within orgID and notifies it.
// Failures are logged and counted; they are never returned as errors.
func (s *Service) NotifyAudience(ctx context.Context, role id.Role, orgID uuid.UUID, msg models.Message) Report {
	audience, err := s.audience.Resolve(ctx, role, orgID)
	if err != nil {
		s.logger.ErrorContext(ctx, "notification audience resolution failed",
			"role", role,
			"org_id", orgID,
			"type", msg.Type,
			"declaration_id", declarationAttr(msg),
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.IncFailure(string(msg.Type))
		}
		return Report{ResolveErr: err}
	}

	if s.metrics != nil {
		s.metrics.IncAudienceTier(string(role), string(audience.Tier))
	}
	switch audience.Tier {
	case TierBroadcast:
		s.logger.InfoContext(ctx, "no affiliated agents, broadcasting to role",
			"role", role,
			"org_id", orgID,
			"recipients", len(audience.Recipients),
			"declaration_id", declarationAttr(msg),
		)
	case TierEmpty:
		s.logger.WarnContext(ctx, "notification audience is empty",
			"role", role,
			"org_id", orgID,
			"type", msg.Type,
			"declaration_id", declarationAttr(msg),
		)
	}

	report := s.Fanout(ctx, audience.Recipients, msg)
	report.Tier = audience.Tier
	return report
}

// NotifyUser notifies a single addressed user, best effort.
func (s *Service) NotifyUser(ctx context.Context, userID id.UserID, msg models.Message) Report {
	report := s.Fanout(ctx, []id.UserID{userID}, msg)
	report.Tier = TierDirect
	return report
}

// Fanout creates one notification per recipient concurrently and aggregates failures.
func (s *Service) Fanout(ctx context.Context, recipients []id.UserID, msg models.Message) Report {
	var (
		g        errgroup.Group
		mu       sync.Mutex
		report   Report
		failures []Failure
	)
	g.SetLimit(s.fanoutLimit)

	for _, recipient := range recipients {
		g.Go(func() error {
			_, err := s.Notify(ctx, recipient, msg)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, Failure{Recipient: recipient, Err: err})
				return nil
			}
			report.Delivered++
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors

	for _, f := range failures {
		s.logger.WarnContext(ctx, "notification delivery failed",
			"recipient", f.Recipient.String(),
			"type", msg.Type,
			"declaration_id", declarationAttr(msg),
			"error", f.Err,
		)
		if s.metrics != nil {
			s.metrics.IncFailure(string(msg.Type))
		}
	}
	report.Failures = failures
	return report
}

func declarationAttr(msg models.Message) string {
	if msg.DeclarationID == nil {
		return ""
	}
	return msg.DeclarationID.String()
}
