package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"etatcivil/internal/blob"
	"etatcivil/internal/certificate/metrics"
	"etatcivil/internal/certificate/models"
	declarationmodels "etatcivil/internal/declaration/models"
	"etatcivil/internal/directory"
	notificationmodels "etatcivil/internal/notification/models"
	notificationservice "etatcivil/internal/notification/service"
	"etatcivil/internal/payment"
	"etatcivil/internal/sequence"
	id "etatcivil/pkg/domain"
	dErrors "etatcivil/pkg/domain-errors"
	"etatcivil/pkg/platform/outbox"
	"etatcivil/pkg/platform/sentinel"
	"etatcivil/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/certificate-mocks.go -package=mocks DocumentStore,PaymentLedger

// Store defines the persistence interface for certificates and their download ledger.
// Error Contract:
//   - FindByID, FindByDeclaration and FindDownload return sentinel.ErrNotFound for unknown keys
//   - Create returns sentinel.ErrConflict when the declaration or the registry number is taken
//   - AppendDownload returns sentinel.ErrConflict for a reused reference
//   - SettleDownload returns sentinel.ErrInvalidState when the entry is no longer pending
type Store interface {
	Create(ctx context.Context, c *models.Certificate) error
	FindByID(ctx context.Context, certificateID id.CertificateID) (*models.Certificate, error)
	FindByDeclaration(ctx context.Context, declarationID id.DeclarationID) (*models.Certificate, error)
	UpdateDocument(ctx context.Context, certificateID id.CertificateID, doc models.Document) error
	AppendDownload(ctx context.Context, e *models.DownloadEntry) error
	FindDownload(ctx context.Context, reference string) (*models.DownloadEntry, error)
	ListDownloads(ctx context.Context, certificateID id.CertificateID) ([]*models.DownloadEntry, error)
	SettleDownload(ctx context.Context, reference string, st models.Settlement) (*models.DownloadEntry, error)
}

// DeclarationWriter is the part of the declaration store issuance locks and links.
// LinkCertificate returns sentinel.ErrAlreadyUsed when a certificate is already linked.
type DeclarationWriter interface {
	FindForUpdate(ctx context.Context, declarationID id.DeclarationID) (*declarationmodels.Declaration, error)
	LinkCertificate(ctx context.Context, declarationID id.DeclarationID, certificateID id.CertificateID, at time.Time) error
}

// DeclarationReader loads the declaration a download depends on.
type DeclarationReader interface {
	FindByID(ctx context.Context, declarationID id.DeclarationID) (*declarationmodels.Declaration, error)
}

// Directory resolves issuing offices and mairie affiliations.
type Directory interface {
	FindOffice(ctx context.Context, officeID id.OfficeID) (*directory.Office, error)
	Affiliation(ctx context.Context, userID id.UserID) (uuid.UUID, bool, error)
}

// DocumentStore holds rendered certificate documents. Errors wrapping
// sentinel.ErrUnavailable are retriable.
type DocumentStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, ref string) (*blob.Object, error)
}

// PaymentLedger exposes the processor outcomes reported for payment references.
type PaymentLedger interface {
	Record(ctx context.Context, reference string, outcome payment.Outcome) (payment.Outcome, error)
	Outcome(ctx context.Context, reference string) (payment.Outcome, error)
}

// Notifier sends best-effort notifications to the parent.
type Notifier interface {
	NotifyUser(ctx context.Context, userID id.UserID, msg notificationmodels.Message) notificationservice.Report
}

const (
	aggregateType = "certificate"

	EventIssued = "certificate.issued"

	// DefaultUnitPrice is the price of one downloaded copy.
	DefaultUnitPrice int64 = 250

	defaultContentType = "application/pdf"
)

type Option func(*Service)

// Service issues certificates and gates their paid download.
type Service struct {
	store        Store
	declarations DeclarationReader
	tx           StoreTx
	directory    Directory
	documents    DocumentStore
	payments     PaymentLedger
	notifier     Notifier
	unitPrice    int64
	metrics      *metrics.Metrics
	logger       *slog.Logger
	tracer       trace.Tracer
}

func New(
	store Store,
	declarations DeclarationReader,
	tx StoreTx,
	dir Directory,
	documents DocumentStore,
	payments PaymentLedger,
	notifier Notifier,
	opts ...Option,
) *Service {
	s := &Service{
		store:        store,
		declarations: declarations,
		tx:           tx,
		directory:    dir,
		documents:    documents,
		payments:     payments,
		notifier:     notifier,
		unitPrice:    DefaultUnitPrice,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("etatcivil/certificate")
	}
	return s
}

// WithUnitPrice sets the per-copy price recorded on newly issued certificates.
func WithUnitPrice(price int64) Option {
	return func(s *Service) {
		if price > 0 {
			s.unitPrice = price
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// Issue numbers and persists the certificate of a verified or validated
// declaration and links it back. A second issuance fails with already_issued.
func (s *Service) Issue(ctx context.Context, actor id.Actor, declarationID id.DeclarationID) (*models.Certificate, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "certificate.issue",
		trace.WithAttributes(attribute.String("declaration_id", declarationID.String())))
	var err error
	defer func() { endSpan(span, err) }()

	if !actor.Is(id.RoleMairie) {
		err = dErrors.New(dErrors.CodeForbidden, "only a mairie agent can issue a certificate")
		s.observeIssueFailure(err)
		return nil, err
	}

	var (
		issued      *models.Certificate
		declaration *declarationmodels.Declaration
	)
	err = s.tx.RunInTx(ctx, declarationID.String(), func(ctx context.Context, stores Stores) error {
		d, err := stores.Declarations.FindForUpdate(ctx, declarationID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "declaration not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load declaration")
		}
		if d.Status != declarationmodels.StatusCertificateVerified && d.Status != declarationmodels.StatusValidated {
			return dErrors.InvalidTransition(
				fmt.Sprintf("cannot issue a certificate for a declaration in status %s (expected %s or %s)",
					d.Status, declarationmodels.StatusCertificateVerified, declarationmodels.StatusValidated),
				string(d.Status), string(declarationmodels.StatusCertificateVerified), string(declarationmodels.StatusValidated))
		}
		if d.CertificateID != nil {
			return dErrors.New(dErrors.CodeAlreadyIssued, "a certificate was already issued for this declaration")
		}
		if err := s.requireOffice(ctx, actor, d.OfficeID); err != nil {
			return err
		}
		office, err := s.directory.FindOffice(ctx, d.OfficeID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "issuing office not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "directory lookup failed")
		}

		now := requestcontext.Now(ctx)
		year := now.UTC().Year()
		seq, err := stores.Sequence.Next(ctx, sequence.ScopeKey(d.OfficeID, year))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate registry sequence")
		}

		stamp, err := models.NewStamp()
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate stamp")
		}
		c := &models.Certificate{
			ID:             id.CertificateID(uuid.New()),
			DeclarationID:  d.ID,
			OfficeID:       d.OfficeID,
			OwnerID:        d.OwnerID,
			Year:           year,
			Sequence:       seq,
			RegistryNumber: models.RegistryNumber(d.OfficeID, year, seq),
			ActNumber:      models.ActNumber(d.OfficeID, year, seq),
			Stamp:          stamp,
			Seal:           models.Seal(office.Name, now),
			Snapshot:       models.SnapshotOf(d, office.Name),
			UnitPrice:      s.unitPrice,
			IssuedBy:       actor.UserID,
			IssuedAt:       now,
		}
		if err := stores.Certificates.Create(ctx, c); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeAlreadyIssued, "a certificate was already issued for this declaration")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save certificate")
		}
		if err := stores.Declarations.LinkCertificate(ctx, d.ID, c.ID, now); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeAlreadyIssued, "a certificate was already issued for this declaration")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to link certificate")
		}
		if err := appendIssued(ctx, stores.Outbox, c); err != nil {
			return err
		}
		issued, declaration = c, d
		return nil
	})
	if err != nil {
		s.observeIssueFailure(err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveIssued(time.Since(start).Seconds())
	}
	span.SetAttributes(attribute.String("certificate_id", issued.ID.String()),
		attribute.String("registry_number", issued.RegistryNumber))
	s.logger.InfoContext(ctx, "certificate issued",
		"certificate_id", issued.ID.String(),
		"declaration_id", declarationID.String(),
		"registry_number", issued.RegistryNumber,
		"request_id", requestcontext.RequestID(ctx),
	)

	s.notify(ctx, issued.OwnerID, declarationID, notificationmodels.TypeCertificateIssued,
		"Acte de naissance établi",
		fmt.Sprintf("L'acte de naissance de %s %s a été établi sous le numéro %s.",
			declaration.Child.FirstName, declaration.Child.LastName, issued.RegistryNumber))
	return issued, nil
}

// Get returns a certificate with its ledger when the caller may see it.
func (s *Service) Get(ctx context.Context, actor id.Actor, certificateID id.CertificateID) (*models.View, error) {
	c, err := s.store.FindByID(ctx, certificateID)
	if err != nil {
		return nil, translateCertificateErr(err)
	}
	return s.view(ctx, actor, c)
}

// GetByDeclaration returns the certificate issued for a declaration.
func (s *Service) GetByDeclaration(ctx context.Context, actor id.Actor, declarationID id.DeclarationID) (*models.View, error) {
	c, err := s.store.FindByDeclaration(ctx, declarationID)
	if err != nil {
		return nil, translateCertificateErr(err)
	}
	return s.view(ctx, actor, c)
}

func (s *Service) view(ctx context.Context, actor id.Actor, c *models.Certificate) (*models.View, error) {
	if err := s.authorizeRead(ctx, actor, c); err != nil {
		return nil, err
	}
	entries, err := s.store.ListDownloads(ctx, c.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load download ledger")
	}
	return &models.View{Certificate: c, Downloads: entries, Totals: models.TotalsOf(entries)}, nil
}

// AttachDocument stores the rendered act and records its reference. It can be
// repeated to regenerate the document; numbering is untouched.
func (s *Service) AttachDocument(ctx context.Context, actor id.Actor, certificateID id.CertificateID, data []byte, contentType string) (*models.Certificate, error) {
	ctx, span := s.tracer.Start(ctx, "certificate.attach_document",
		trace.WithAttributes(attribute.String("certificate_id", certificateID.String())))
	var err error
	defer func() { endSpan(span, err) }()

	if !actor.Is(id.RoleMairie) {
		err = dErrors.New(dErrors.CodeForbidden, "only a mairie agent can attach the certificate document")
		return nil, err
	}
	if len(data) == 0 {
		err = dErrors.New(dErrors.CodeValidation, "document is empty")
		return nil, err
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	var c *models.Certificate
	if c, err = s.store.FindByID(ctx, certificateID); err != nil {
		err = translateCertificateErr(err)
		return nil, err
	}
	if err = s.requireOffice(ctx, actor, c.OfficeID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	key := fmt.Sprintf("certificates/%s/document-%d", c.ID, now.UnixNano())
	var ref string
	if ref, err = s.documents.Put(ctx, key, data, contentType); err != nil {
		err = translateBlobErr(err, "document store unavailable")
		return nil, err
	}
	c.Document = models.Document{Ref: ref, ContentType: contentType, UpdatedAt: &now}
	if err = s.store.UpdateDocument(ctx, c.ID, c.Document); err != nil {
		err = translateCertificateErr(err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "certificate document attached",
		"certificate_id", c.ID.String(),
		"size", len(data),
		"request_id", requestcontext.RequestID(ctx),
	)
	return c, nil
}

// authorizeRead lets the owning parent and mairie agents of the issuing office
// read a certificate.
func (s *Service) authorizeRead(ctx context.Context, actor id.Actor, c *models.Certificate) error {
	switch actor.Role {
	case id.RoleParent:
		if c.OwnerID != actor.UserID {
			return dErrors.New(dErrors.CodeForbidden, "certificate is not visible to this user")
		}
		return nil
	case id.RoleMairie:
		return s.requireOffice(ctx, actor, c.OfficeID)
	default:
		return dErrors.New(dErrors.CodeForbidden, "certificate is not visible to this user")
	}
}

// requireOffice rejects mairie agents affiliated with another office.
// Agents without affiliation data are not narrowed.
func (s *Service) requireOffice(ctx context.Context, actor id.Actor, officeID id.OfficeID) error {
	org, ok, err := s.directory.Affiliation(ctx, actor.UserID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve affiliation")
	}
	if ok && org != uuid.Nil && id.OfficeID(org) != officeID {
		return dErrors.New(dErrors.CodeForbidden, "certificate belongs to another office")
	}
	return nil
}

func (s *Service) observeIssueFailure(err error) {
	if s.metrics != nil {
		s.metrics.IncIssueFailure(string(dErrors.CodeOf(err)))
	}
}

func (s *Service) notify(ctx context.Context, userID id.UserID, declarationID id.DeclarationID, typ notificationmodels.Type, title, body string) {
	s.notifier.NotifyUser(ctx, userID, notificationmodels.Message{
		Type:          typ,
		Title:         title,
		Body:          body,
		DeclarationID: &declarationID,
	})
}

// IssuedEvent is the outbox payload for an issued certificate.
type IssuedEvent struct {
	CertificateID  string `json:"certificate_id"`
	DeclarationID  string `json:"declaration_id"`
	OfficeID       string `json:"office_id"`
	RegistryNumber string `json:"registry_number"`
	ActNumber      string `json:"act_number"`
	IssuedBy       string `json:"issued_by"`
	IssuedAt       string `json:"issued_at"`
}

func appendIssued(ctx context.Context, appender outbox.Appender, c *models.Certificate) error {
	entry, err := outbox.NewJSONEntry(aggregateType, c.ID.String(), EventIssued, IssuedEvent{
		CertificateID:  c.ID.String(),
		DeclarationID:  c.DeclarationID.String(),
		OfficeID:       c.OfficeID.String(),
		RegistryNumber: c.RegistryNumber,
		ActNumber:      c.ActNumber,
		IssuedBy:       c.IssuedBy.String(),
		IssuedAt:       c.IssuedAt.UTC().Format(time.RFC3339Nano),
	}, c.IssuedAt)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode certificate event")
	}
	if err := appender.Append(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append certificate event")
	}
	return nil
}

func translateCertificateErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "certificate not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "certificate store failure")
}

func translateBlobErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "certificate document is missing from the store")
	}
	return dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, msg)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
