package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"etatcivil/internal/declaration/models"
	id "etatcivil/pkg/domain"
	dErrors "etatcivil/pkg/domain-errors"
	"etatcivil/pkg/platform/sentinel"
	"etatcivil/pkg/requestcontext"
)

// step describes one workflow operation on top of the transition table.
type step struct {
	action models.Action
	reason string
	// guard runs after the source state and role checks, inside the transaction.
	guard func(ctx context.Context, actor id.Actor, d *models.Declaration) error
	// apply sets the fields that accompany the status change.
	apply func(d *models.Declaration, actor id.Actor, now time.Time)
}

// SendToHospital addresses the delivery certificate to a hospital for verification.
// hospitalID defaults to the registered delivering facility.
func (s *Service) SendToHospital(ctx context.Context, actor id.Actor, declarationID id.DeclarationID, hospitalID *id.HospitalID) (*models.Declaration, error) {
	var target id.HospitalID
	return s.transition(ctx, actor, declarationID, step{
		action: models.ActionSendToHospital,
		guard: func(ctx context.Context, _ id.Actor, d *models.Declaration) error {
			if hospitalID != nil {
				target = *hospitalID
			} else if registered, ok := d.Facility.HospitalID(); ok {
				target = registered
			} else {
				return dErrors.New(dErrors.CodeValidation, "hospital_id is required when the birth took place outside a registered hospital")
			}
			if _, err := s.directory.FindHospital(ctx, target); err != nil {
				return translateLookupErr(err, "hospital not found")
			}
			return nil
		},
		apply: func(d *models.Declaration, _ id.Actor, now time.Time) {
			d.AssignedHospitalID = &target
			d.SentToHospitalAt = &now
			d.VerifyingAgentID = nil
			d.Delivery.Authentic = nil
			d.Delivery.RejectionReason = ""
		},
	})
}

// Reject closes the declaration with the mairie's reason.
func (s *Service) Reject(ctx context.Context, actor id.Actor, declarationID id.DeclarationID, reason string) (*models.Declaration, error) {
	reason, err := requireReason(reason)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, declarationID, step{
		action: models.ActionReject,
		reason: reason,
		apply: func(d *models.Declaration, _ id.Actor, now time.Time) {
			d.RejectionReason = reason
			d.RejectedAt = &now
		},
	})
}

// ValidateCertificate records the hospital's confirmation of the delivery certificate.
func (s *Service) ValidateCertificate(ctx context.Context, actor id.Actor, declarationID id.DeclarationID) (*models.Declaration, error) {
	return s.transition(ctx, actor, declarationID, step{
		action: models.ActionValidateCertificate,
		guard:  s.requireAddressedHospital,
		apply: func(d *models.Declaration, actor id.Actor, _ time.Time) {
			authentic := true
			agent := actor.UserID
			d.Delivery.Authentic = &authentic
			d.Delivery.RejectionReason = ""
			d.VerifyingAgentID = &agent
		},
	})
}

// RejectCertificate records that the hospital could not confirm the delivery certificate.
func (s *Service) RejectCertificate(ctx context.Context, actor id.Actor, declarationID id.DeclarationID, reason string) (*models.Declaration, error) {
	reason, err := requireReason(reason)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, declarationID, step{
		action: models.ActionRejectCertificate,
		reason: reason,
		guard:  s.requireAddressedHospital,
		apply: func(d *models.Declaration, actor id.Actor, _ time.Time) {
			authentic := false
			agent := actor.UserID
			d.Delivery.Authentic = &authentic
			d.Delivery.RejectionReason = reason
			d.VerifyingAgentID = &agent
		},
	})
}

// Validate approves a declaration whose delivery certificate was verified.
func (s *Service) Validate(ctx context.Context, actor id.Actor, declarationID id.DeclarationID) (*models.Declaration, error) {
	return s.transition(ctx, actor, declarationID, step{
		action: models.ActionValidate,
		apply: func(d *models.Declaration, _ id.Actor, now time.Time) {
			d.ValidatedAt = &now
		},
	})
}

// Archive releases a validated declaration whose certificate has been issued.
func (s *Service) Archive(ctx context.Context, actor id.Actor, declarationID id.DeclarationID) (*models.Declaration, error) {
	return s.transition(ctx, actor, declarationID, step{
		action: models.ActionArchive,
		guard: func(_ context.Context, _ id.Actor, d *models.Declaration) error {
			if d.CertificateID == nil {
				return dErrors.InvalidTransition("cannot archive before a certificate is issued",
					string(d.Status)+" without certificate", string(models.StatusValidated)+" with certificate")
			}
			return nil
		},
		apply: func(d *models.Declaration, _ id.Actor, now time.Time) {
			d.ArchivedAt = &now
		},
	})
}

// requireAddressedHospital rejects hospital agents affiliated with a different
// hospital than the one the declaration was sent to.
func (s *Service) requireAddressedHospital(ctx context.Context, actor id.Actor, d *models.Declaration) error {
	org, ok, err := s.affiliation(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if ok && (d.AssignedHospitalID == nil || id.HospitalID(org) != *d.AssignedHospitalID) {
		return dErrors.New(dErrors.CodeForbidden, "declaration was sent to another hospital")
	}
	return nil
}

// transition loads, checks and mutates a declaration inside one transaction,
// then notifies once the change is committed.
func (s *Service) transition(ctx context.Context, actor id.Actor, declarationID id.DeclarationID, st step) (*models.Declaration, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "declaration."+string(st.action), trace.WithAttributes(
		attribute.String("declaration_id", declarationID.String()),
		attribute.String("actor_role", string(actor.Role)),
	))

	rule, ok := models.RuleFor(st.action)
	if !ok {
		err := dErrors.New(dErrors.CodeInternal, "unknown workflow action")
		endSpan(span, err)
		return nil, err
	}

	var (
		updated *models.Declaration
		record  models.Transition
	)
	err := s.tx.RunInTx(ctx, declarationID.String(), func(ctx context.Context, stores Stores) error {
		d, err := stores.Declarations.FindForUpdate(ctx, declarationID)
		if err != nil {
			return translateStoreErr(err, "failed to load declaration")
		}
		if !rule.Allows(d.Status) {
			return dErrors.InvalidTransition(
				fmt.Sprintf("cannot %s a declaration in status %s (expected %s)",
					humanAction(st.action), d.Status, strings.Join(rule.FromStrings(), " or ")),
				string(d.Status), rule.FromStrings()...)
		}
		if !actor.Is(rule.Role) {
			return dErrors.New(dErrors.CodeForbidden, fmt.Sprintf("%s requires the %s role", humanAction(st.action), rule.Role))
		}
		if st.guard != nil {
			if err := st.guard(ctx, actor, d); err != nil {
				return err
			}
		}

		now := requestcontext.Now(ctx)
		record = models.Transition{From: d.Status, To: rule.To, ActorID: actor.UserID, At: now, Reason: st.reason}
		d.Status = rule.To
		d.UpdatedAt = now
		if st.apply != nil {
			st.apply(d, actor, now)
		}

		// event first: the in-memory tx cannot undo a saved transition
		if err := appendEvent(ctx, stores.Outbox, models.EventType(st.action), d, record); err != nil {
			return err
		}
		if err := stores.Declarations.ApplyTransition(ctx, d, record); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "declaration not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save transition")
		}
		updated = d
		return nil
	})

	if s.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = string(dErrors.CodeOf(err))
		}
		s.metrics.ObserveTransition(string(st.action), outcome, time.Since(start).Seconds())
	}
	endSpan(span, err)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "declaration transitioned",
		"declaration_id", declarationID.String(),
		"action", st.action,
		"from", record.From,
		"to", record.To,
		"actor_id", actor.UserID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.notifyAfterTransition(ctx, st.action, updated, st.reason)
	return updated, nil
}

func requireReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", dErrors.New(dErrors.CodeValidation, "a rejection reason is required")
	}
	return reason, nil
}

func humanAction(a models.Action) string {
	return strings.ReplaceAll(string(a), "_", " ")
}
