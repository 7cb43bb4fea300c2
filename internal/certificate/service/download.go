package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"etatcivil/internal/blob"
	"etatcivil/internal/certificate/models"
	declarationmodels "etatcivil/internal/declaration/models"
	notificationmodels "etatcivil/internal/notification/models"
	"etatcivil/internal/payment"
	id "etatcivil/pkg/domain"
	dErrors "etatcivil/pkg/domain-errors"
	"etatcivil/pkg/platform/sentinel"
	"etatcivil/pkg/requestcontext"
)

// referenceAttempts bounds retries when two requests format the same millisecond reference.
const referenceAttempts = 5

// RequestDownload opens a pending ledger entry for copies of a certificate.
// No document is released until the payment is confirmed.
func (s *Service) RequestDownload(ctx context.Context, actor id.Actor, certificateID id.CertificateID, copies int, channel string) (*models.DownloadEntry, error) {
	if copies < 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "copies must be at least 1")
	}
	if channel == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "payment channel is required")
	}
	c, err := s.store.FindByID(ctx, certificateID)
	if err != nil {
		return nil, translateCertificateErr(err)
	}
	if !actor.Is(id.RoleParent) || c.OwnerID != actor.UserID {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the declaring parent can download this certificate")
	}

	now := requestcontext.Now(ctx)
	entry := &models.DownloadEntry{
		CertificateID: c.ID,
		RequestedBy:   actor.UserID,
		Copies:        copies,
		Amount:        int64(copies) * c.UnitPrice,
		Channel:       channel,
		Status:        models.DownloadPending,
		CreatedAt:     now,
	}
	for attempt := range referenceAttempts {
		entry.Reference = models.PaymentReference(c.ActNumber, now.Add(time.Duration(attempt)*time.Millisecond))
		err = s.store.AppendDownload(ctx, entry)
		if !errors.Is(err, sentinel.ErrConflict) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "could not allocate a unique payment reference")
		}
		return nil, translateCertificateErr(err)
	}

	s.logger.InfoContext(ctx, "download requested",
		"certificate_id", c.ID.String(),
		"reference", entry.Reference,
		"copies", copies,
		"amount", entry.Amount,
		"request_id", requestcontext.RequestID(ctx),
	)
	return entry, nil
}

// ConfirmAndRelease settles a pending entry from the processor's verdict and
// releases the document for exactly that entry. The declaration must be
// validated or archived. A reference that is already settled is rejected.
func (s *Service) ConfirmAndRelease(ctx context.Context, actor id.Actor, reference string) (*models.Release, error) {
	ctx, span := s.tracer.Start(ctx, "certificate.confirm_and_release",
		trace.WithAttributes(attribute.String("reference", reference)))
	var err error
	defer func() { endSpan(span, err) }()

	var (
		entry *models.DownloadEntry
		c     *models.Certificate
	)
	if entry, c, err = s.ownedEntry(ctx, actor, reference); err != nil {
		return nil, err
	}

	var d *declarationmodels.Declaration
	if d, err = s.declarations.FindByID(ctx, c.DeclarationID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			err = dErrors.New(dErrors.CodeNotFound, "declaration not found")
			return nil, err
		}
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to load declaration")
		return nil, err
	}
	if d.Status != declarationmodels.StatusValidated && d.Status != declarationmodels.StatusArchived {
		err = dErrors.InvalidTransition(
			fmt.Sprintf("cannot release a certificate for a declaration in status %s (expected %s or %s)",
				d.Status, declarationmodels.StatusValidated, declarationmodels.StatusArchived),
			string(d.Status), string(declarationmodels.StatusValidated), string(declarationmodels.StatusArchived))
		return nil, err
	}
	if entry.Status != models.DownloadPending {
		err = settledErr(entry.Status)
		return nil, err
	}
	if !c.Document.Attached() {
		err = dErrors.InvalidTransition("certificate document has not been attached yet",
			"no document", "document attached")
		return nil, err
	}

	var outcome payment.Outcome
	if outcome, err = s.payments.Outcome(ctx, reference); err != nil {
		err = dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "payment outcome unavailable")
		return nil, err
	}
	switch outcome {
	case payment.OutcomePending:
		err = dErrors.New(dErrors.CodeUpstreamUnavailable, "payment has not been confirmed by the processor yet")
		return nil, err
	case payment.OutcomeFailed:
		err = s.settleFailed(ctx, c, entry)
		return nil, err
	}

	// Fetch before settling: an entry is never marked paid without a released file.
	var doc *blob.Object
	if doc, err = s.documents.Get(ctx, c.Document.Ref); err != nil {
		s.observeDownload("unavailable", 0)
		err = translateBlobErr(err, "document store unavailable, retry the confirmation")
		return nil, err
	}

	var settled *models.DownloadEntry
	settled, err = s.store.SettleDownload(ctx, reference, models.Settlement{
		Status:  models.DownloadPaid,
		FileRef: c.Document.Ref,
		At:      requestcontext.Now(ctx),
	})
	if err != nil {
		err = translateSettleErr(err)
		return nil, err
	}

	s.observeDownload("released", settled.Amount)
	s.logger.InfoContext(ctx, "certificate released",
		"certificate_id", c.ID.String(),
		"reference", reference,
		"copies", settled.Copies,
		"amount", settled.Amount,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.notify(ctx, c.OwnerID, c.DeclarationID, notificationmodels.TypeDownloadReady,
		"Acte de naissance disponible",
		fmt.Sprintf("Votre paiement %s est confirmé. L'acte %s est prêt à être téléchargé.", reference, c.ActNumber))
	return &models.Release{Entry: settled, Document: doc}, nil
}

// Redownload returns the document already released for a paid entry. Totals
// are not affected.
func (s *Service) Redownload(ctx context.Context, actor id.Actor, reference string) (*models.Release, error) {
	entry, _, err := s.ownedEntry(ctx, actor, reference)
	if err != nil {
		return nil, err
	}
	if entry.Status != models.DownloadPaid || !entry.Released {
		return nil, dErrors.InvalidTransition("download has not been paid and released",
			string(entry.Status), string(models.DownloadPaid))
	}
	doc, err := s.documents.Get(ctx, entry.FileRef)
	if err != nil {
		return nil, translateBlobErr(err, "document store unavailable")
	}
	s.observeDownload("redownload", 0)
	return &models.Release{Entry: entry, Document: doc}, nil
}

// RecordPaymentOutcome stores the processor's verdict for a reference. The
// first final outcome wins; the one in effect is returned.
func (s *Service) RecordPaymentOutcome(ctx context.Context, reference string, outcome payment.Outcome) (payment.Outcome, error) {
	if !outcome.IsFinal() {
		return "", dErrors.New(dErrors.CodeValidation, "outcome must be paid or failed")
	}
	if _, err := s.store.FindDownload(ctx, reference); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeNotFound, "payment reference not found")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load download entry")
	}
	effective, err := s.payments.Record(ctx, reference, outcome)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "payment ledger unavailable")
	}
	s.logger.InfoContext(ctx, "payment outcome recorded",
		"reference", reference,
		"outcome", string(effective),
		"request_id", requestcontext.RequestID(ctx),
	)
	return effective, nil
}

func (s *Service) ownedEntry(ctx context.Context, actor id.Actor, reference string) (*models.DownloadEntry, *models.Certificate, error) {
	entry, err := s.store.FindDownload(ctx, reference)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "payment reference not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load download entry")
	}
	c, err := s.store.FindByID(ctx, entry.CertificateID)
	if err != nil {
		return nil, nil, translateCertificateErr(err)
	}
	if !actor.Is(id.RoleParent) || c.OwnerID != actor.UserID {
		return nil, nil, dErrors.New(dErrors.CodeForbidden, "only the declaring parent can download this certificate")
	}
	return entry, c, nil
}

func (s *Service) settleFailed(ctx context.Context, c *models.Certificate, entry *models.DownloadEntry) error {
	if _, err := s.store.SettleDownload(ctx, entry.Reference, models.Settlement{
		Status: models.DownloadFailed,
		At:     requestcontext.Now(ctx),
	}); err != nil {
		return translateSettleErr(err)
	}
	s.observeDownload("payment_failed", 0)
	s.logger.WarnContext(ctx, "payment failed",
		"certificate_id", c.ID.String(),
		"reference", entry.Reference,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.notify(ctx, c.OwnerID, c.DeclarationID, notificationmodels.TypePaymentFailed,
		"Paiement échoué",
		fmt.Sprintf("Le paiement %s n'a pas abouti. Vous pouvez effectuer une nouvelle demande.", entry.Reference))
	return dErrors.New(dErrors.CodeForbidden, "payment was declined by the processor")
}

func (s *Service) observeDownload(outcome string, amount int64) {
	if s.metrics != nil {
		s.metrics.ObserveDownload(outcome, amount)
	}
}

func settledErr(status models.DownloadStatus) error {
	return dErrors.InvalidTransition(
		fmt.Sprintf("payment reference is already %s", status),
		string(status), string(models.DownloadPending))
}

func translateSettleErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.InvalidTransition("payment reference was settled concurrently",
			"settled", string(models.DownloadPending))
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "payment reference not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to settle download entry")
	}
}
