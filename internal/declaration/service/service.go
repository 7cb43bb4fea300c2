package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"etatcivil/internal/declaration/metrics"
	"etatcivil/internal/declaration/models"
	"etatcivil/internal/directory"
	notificationmodels "etatcivil/internal/notification/models"
	notificationservice "etatcivil/internal/notification/service"
	id "etatcivil/pkg/domain"
	dErrors "etatcivil/pkg/domain-errors"
	"etatcivil/pkg/platform/outbox"
	"etatcivil/pkg/platform/sentinel"
	"etatcivil/pkg/requestcontext"
)

// Store defines the persistence interface for declarations.
// Error Contract:
//   - FindByID, FindForUpdate and History return sentinel.ErrNotFound for unknown IDs
//   - Create returns sentinel.ErrConflict when the duplicate key is already taken
//   - LinkCertificate returns sentinel.ErrAlreadyUsed when a certificate is already linked
type Store interface {
	Create(ctx context.Context, d *models.Declaration, created models.Transition) error
	FindByID(ctx context.Context, declarationID id.DeclarationID) (*models.Declaration, error)
	FindForUpdate(ctx context.Context, declarationID id.DeclarationID) (*models.Declaration, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Declaration, error)
	History(ctx context.Context, declarationID id.DeclarationID) ([]models.Transition, error)
	ApplyTransition(ctx context.Context, d *models.Declaration, t models.Transition) error
	LinkCertificate(ctx context.Context, declarationID id.DeclarationID, certificateID id.CertificateID, at time.Time) error
}

// Directory resolves the offices, hospitals and affiliations the workflow checks.
type Directory interface {
	FindOffice(ctx context.Context, officeID id.OfficeID) (*directory.Office, error)
	FindHospital(ctx context.Context, hospitalID id.HospitalID) (*directory.Hospital, error)
	Affiliation(ctx context.Context, userID id.UserID) (uuid.UUID, bool, error)
}

// Notifier delivers best-effort notifications after a transition commits.
type Notifier interface {
	NotifyAudience(ctx context.Context, role id.Role, orgID uuid.UUID, msg notificationmodels.Message) notificationservice.Report
	NotifyUser(ctx context.Context, userID id.UserID, msg notificationmodels.Message) notificationservice.Report
}

const aggregateType = "declaration"

type Option func(*Service)

// Service runs the birth declaration workflow.
type Service struct {
	store     Store
	tx        StoreTx
	directory Directory
	notifier  Notifier
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

func New(store Store, tx StoreTx, dir Directory, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		store:     store,
		tx:        tx,
		directory: dir,
		notifier:  notifier,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("etatcivil/declaration")
	}
	return s
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

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// Create submits a new declaration on behalf of a parent.
func (s *Service) Create(ctx context.Context, actor id.Actor, in models.CreateInput) (*models.Declaration, error) {
	ctx, span := s.tracer.Start(ctx, "declaration.create",
		trace.WithAttributes(attribute.String("office_id", in.OfficeID.String())))
	var err error
	defer func() { endSpan(span, err) }()

	if !actor.Is(id.RoleParent) {
		err = dErrors.New(dErrors.CodeForbidden, "only a parent can submit a declaration")
		return nil, err
	}
	if verr := in.Validate(); verr != nil {
		err = dErrors.New(dErrors.CodeValidation, verr.Error())
		return nil, err
	}
	if _, err = s.directory.FindOffice(ctx, in.OfficeID); err != nil {
		err = translateLookupErr(err, "office not found")
		return nil, err
	}
	if hospitalID, ok := in.Facility.HospitalID(); ok {
		if _, err = s.directory.FindHospital(ctx, hospitalID); err != nil {
			err = translateLookupErr(err, "hospital not found")
			return nil, err
		}
	}

	now := requestcontext.Now(ctx)
	d := models.NewDeclaration(actor.UserID, in, now)
	created := models.Transition{To: models.StatusSubmittedToMairie, ActorID: actor.UserID, At: now}

	err = s.tx.RunInTx(ctx, d.DuplicateKey(), func(ctx context.Context, stores Stores) error {
		if err := stores.Declarations.Create(ctx, d, created); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "a declaration for this child already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save declaration")
		}
		return appendEvent(ctx, stores.Outbox, models.EventCreated, d, created)
	})
	if err != nil {
		if s.metrics != nil && dErrors.HasCode(err, dErrors.CodeConflict) {
			s.metrics.IncDuplicate()
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncCreated()
	}
	span.SetAttributes(attribute.String("declaration_id", d.ID.String()))
	s.logger.InfoContext(ctx, "declaration submitted",
		"declaration_id", d.ID.String(),
		"office_id", d.OfficeID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)

	s.notifyAfterCreate(ctx, d)
	return d, nil
}

// Get returns a declaration and its status history when the caller may see it.
func (s *Service) Get(ctx context.Context, actor id.Actor, declarationID id.DeclarationID) (*models.Declaration, []models.Transition, error) {
	d, err := s.store.FindByID(ctx, declarationID)
	if err != nil {
		return nil, nil, translateStoreErr(err, "failed to load declaration")
	}
	if err := s.authorizeRead(ctx, actor, d); err != nil {
		return nil, nil, err
	}
	history, err := s.store.History(ctx, declarationID)
	if err != nil {
		return nil, nil, translateStoreErr(err, "failed to load declaration history")
	}
	return d, history, nil
}

// List returns the declarations visible to the caller, newest first.
func (s *Service) List(ctx context.Context, actor id.Actor, statuses []models.Status) ([]*models.Declaration, error) {
	filter, err := s.listFilter(ctx, actor, statuses)
	if err != nil {
		return nil, err
	}
	list, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list declarations")
	}
	return list, nil
}

func (s *Service) listFilter(ctx context.Context, actor id.Actor, statuses []models.Status) (models.ListFilter, error) {
	for _, st := range statuses {
		if !st.IsValid() {
			return models.ListFilter{}, dErrors.New(dErrors.CodeValidation, "unknown status "+string(st))
		}
	}

	switch actor.Role {
	case id.RoleParent:
		owner := actor.UserID
		return models.ListFilter{OwnerID: &owner, Statuses: statuses}, nil
	case id.RoleMairie:
		filter := models.ListFilter{Statuses: statuses}
		org, ok, err := s.affiliation(ctx, actor.UserID)
		if err != nil {
			return models.ListFilter{}, err
		}
		if ok {
			office := id.OfficeID(org)
			filter.OfficeID = &office
		}
		return filter, nil
	case id.RoleHospital:
		if len(statuses) == 0 {
			statuses = []models.Status{models.StatusPendingHospitalVerification}
		}
		filter := models.ListFilter{Statuses: statuses}
		org, ok, err := s.affiliation(ctx, actor.UserID)
		if err != nil {
			return models.ListFilter{}, err
		}
		if ok {
			hospital := id.HospitalID(org)
			filter.HospitalID = &hospital
		}
		return filter, nil
	default:
		return models.ListFilter{}, dErrors.New(dErrors.CodeForbidden, "role cannot list declarations")
	}
}

// authorizeRead lets the owning parent, mairie agents of the office and
// hospital agents of the addressed hospital read a declaration. Agents without
// affiliation data are not narrowed.
func (s *Service) authorizeRead(ctx context.Context, actor id.Actor, d *models.Declaration) error {
	forbidden := dErrors.New(dErrors.CodeForbidden, "declaration is not visible to this user")
	switch actor.Role {
	case id.RoleParent:
		if d.OwnerID != actor.UserID {
			return forbidden
		}
		return nil
	case id.RoleMairie:
		org, ok, err := s.affiliation(ctx, actor.UserID)
		if err != nil {
			return err
		}
		if ok && id.OfficeID(org) != d.OfficeID {
			return forbidden
		}
		return nil
	case id.RoleHospital:
		if d.AssignedHospitalID == nil {
			return forbidden
		}
		org, ok, err := s.affiliation(ctx, actor.UserID)
		if err != nil {
			return err
		}
		if ok && id.HospitalID(org) != *d.AssignedHospitalID {
			return forbidden
		}
		return nil
	default:
		return forbidden
	}
}

func (s *Service) affiliation(ctx context.Context, userID id.UserID) (uuid.UUID, bool, error) {
	org, ok, err := s.directory.Affiliation(ctx, userID)
	if err != nil {
		return uuid.Nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve affiliation")
	}
	return org, ok, nil
}

// Event is the outbox payload for declaration changes.
type Event struct {
	DeclarationID string `json:"declaration_id"`
	OwnerID       string `json:"owner_id"`
	OfficeID      string `json:"office_id"`
	From          string `json:"from,omitempty"`
	To            string `json:"to"`
	ActorID       string `json:"actor_id"`
	Reason        string `json:"reason,omitempty"`
	At            string `json:"at"`
}

func appendEvent(ctx context.Context, appender outbox.Appender, eventType string, d *models.Declaration, t models.Transition) error {
	entry, err := outbox.NewJSONEntry(aggregateType, d.ID.String(), eventType, Event{
		DeclarationID: d.ID.String(),
		OwnerID:       d.OwnerID.String(),
		OfficeID:      d.OfficeID.String(),
		From:          string(t.From),
		To:            string(t.To),
		ActorID:       t.ActorID.String(),
		Reason:        t.Reason,
		At:            t.At.UTC().Format(time.RFC3339Nano),
	}, t.At)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode declaration event")
	}
	if err := appender.Append(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append declaration event")
	}
	return nil
}

func translateStoreErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "declaration not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func translateLookupErr(err error, notFound string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFound)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "directory lookup failed")
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
