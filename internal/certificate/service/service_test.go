package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"etatcivil/internal/blob"
	"etatcivil/internal/certificate/metrics"
	"etatcivil/internal/certificate/models"
	"etatcivil/internal/certificate/service/mocks"
	certstore "etatcivil/internal/certificate/store"
	declarationmodels "etatcivil/internal/declaration/models"
	declstore "etatcivil/internal/declaration/store"
	"etatcivil/internal/directory"
	notificationmodels "etatcivil/internal/notification/models"
	notificationservice "etatcivil/internal/notification/service"
	"etatcivil/internal/payment"
	"etatcivil/internal/sequence"
	id "etatcivil/pkg/domain"
	dErrors "etatcivil/pkg/domain-errors"
	outboxmemory "etatcivil/pkg/platform/outbox/store/memory"
	"etatcivil/pkg/platform/sentinel"
	platformsync "etatcivil/pkg/platform/sync"
	"etatcivil/pkg/requestcontext"
	"etatcivil/pkg/testutil"
)

type userNotifier struct {
	mu   sync.Mutex
	sent []notificationmodels.Message
	to   []id.UserID
}

func (n *userNotifier) NotifyUser(_ context.Context, userID id.UserID, msg notificationmodels.Message) notificationservice.Report {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	n.to = append(n.to, userID)
	return notificationservice.Report{Tier: notificationservice.TierDirect, Delivered: 1}
}

func (n *userNotifier) types() []notificationmodels.Type {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notificationmodels.Type, len(n.sent))
	for i, m := range n.sent {
		out[i] = m.Type
	}
	return out
}

type IssuerSuite struct {
	suite.Suite
	dir          *directory.Memory
	declarations *declstore.InMemory
	certificates *certstore.InMemory
	outbox       *outboxmemory.Store
	documents    *blob.MemoryStore
	ledger       *payment.MemoryLedger
	notifier     *userNotifier
	svc          *Service

	seeded int

	office directory.Office
	parent id.Actor
	other  id.Actor
	mairie id.Actor
	nurse  id.Actor
}

func TestIssuerSuite(t *testing.T) {
	suite.Run(t, new(IssuerSuite))
}

func (s *IssuerSuite) SetupTest() {
	s.seeded = 0
	s.dir = directory.NewMemory()
	s.office = directory.Office{ID: testutil.TestIDs.OfficeID1, Name: "Mairie de Dakar Plateau", ShortCode: "DKP"}
	s.dir.AddOffice(s.office)

	s.parent = id.Actor{UserID: testutil.TestIDs.ParentID1, Role: id.RoleParent}
	s.other = id.Actor{UserID: testutil.TestIDs.ParentID2, Role: id.RoleParent}
	s.mairie = id.Actor{UserID: testutil.TestIDs.MairieID1, Role: id.RoleMairie}
	s.nurse = id.Actor{UserID: testutil.TestIDs.HospitalAg1, Role: id.RoleHospital}
	s.dir.AddAgent(s.mairie.UserID, id.RoleMairie, uuid.UUID(s.office.ID), true)

	s.declarations = declstore.NewInMemory()
	s.certificates = certstore.NewInMemory()
	s.outbox = outboxmemory.New()
	s.documents = blob.NewMemoryStore()
	s.ledger = payment.NewMemoryLedger()
	s.notifier = &userNotifier{}
	s.svc = s.newService(s.documents, s.ledger)
}

func (s *IssuerSuite) newService(docs DocumentStore, ledger PaymentLedger) *Service {
	tx := NewShardedTx(platformsync.NewShardedMutex(), Stores{
		Certificates: s.certificates,
		Declarations: s.declarations,
		Sequence:     sequence.NewMemoryAllocator(),
		Outbox:       s.outbox,
	})
	return New(s.certificates, s.declarations, tx, s.dir, docs, ledger, s.notifier,
		WithUnitPrice(250),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func (s *IssuerSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
}

// seed stores a declaration of the suite's parent already in status.
func (s *IssuerSuite) seed(status declarationmodels.Status) *declarationmodels.Declaration {
	s.seeded++
	d, created := testutil.NewDeclarationBuilder(s.seeded).
		WithOwner(s.parent.UserID).
		WithOffice(s.office.ID).
		WithStatus(status).
		Build()
	s.Require().NoError(s.declarations.Create(s.ctx(), d, created))
	return d
}

func (s *IssuerSuite) setStatus(d *declarationmodels.Declaration, to declarationmodels.Status) {
	current, err := s.declarations.FindByID(s.ctx(), d.ID)
	s.Require().NoError(err)
	from := current.Status
	current.Status = to
	s.Require().NoError(s.declarations.ApplyTransition(s.ctx(), current,
		declarationmodels.Transition{From: from, To: to, ActorID: s.mairie.UserID, At: time.Now()}))
}

// releasable issues a certificate for a validated declaration and attaches its document.
func (s *IssuerSuite) releasable() *models.Certificate {
	d := s.seed(declarationmodels.StatusValidated)
	c, err := s.svc.Issue(s.ctx(), s.mairie, d.ID)
	s.Require().NoError(err)
	c, err = s.svc.AttachDocument(s.ctx(), s.mairie, c.ID, []byte("%PDF-acte"), "")
	s.Require().NoError(err)
	return c
}

func (s *IssuerSuite) assertCode(err error, code dErrors.Code) {
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func (s *IssuerSuite) TestIssueNumbersSnapshotsAndLinks() {
	d := s.seed(declarationmodels.StatusCertificateVerified)

	c, err := s.svc.Issue(s.ctx(), s.mairie, d.ID)
	s.Require().NoError(err)

	s.Equal("9E1F-2025-000001", c.RegistryNumber)
	s.Equal("ACT-9E1F-2025-000001", c.ActNumber)
	s.Equal(int64(1), c.Sequence)
	s.Regexp(`^[0-9A-F]{32}$`, c.Stamp)
	s.Equal(models.Seal(s.office.Name, c.IssuedAt), c.Seal)
	s.Equal(int64(250), c.UnitPrice)
	s.Equal(d.Child.FirstName, c.Snapshot.ChildFirstName)
	s.Equal(s.office.Name, c.Snapshot.OfficeName)
	s.Equal(s.parent.UserID, c.OwnerID)

	linked, err := s.declarations.FindByID(s.ctx(), d.ID)
	s.Require().NoError(err)
	s.Require().NotNil(linked.CertificateID)
	s.Equal(c.ID, *linked.CertificateID)
	s.Equal(declarationmodels.StatusCertificateVerified, linked.Status, "issuance does not move the workflow")

	pending, err := s.outbox.CountPending(s.ctx())
	s.Require().NoError(err)
	s.Equal(int64(1), pending)

	s.Equal([]notificationmodels.Type{notificationmodels.TypeCertificateIssued}, s.notifier.types())
	s.Equal(s.parent.UserID, s.notifier.to[0])
	s.Contains(s.notifier.sent[0].Body, c.RegistryNumber)
}

func (s *IssuerSuite) TestIssueTwiceIsAlreadyIssued() {
	d := s.seed(declarationmodels.StatusValidated)
	first, err := s.svc.Issue(s.ctx(), s.mairie, d.ID)
	s.Require().NoError(err)

	_, err = s.svc.Issue(s.ctx(), s.mairie, d.ID)
	s.assertCode(err, dErrors.CodeAlreadyIssued)

	view, err := s.svc.GetByDeclaration(s.ctx(), s.mairie, d.ID)
	s.Require().NoError(err)
	s.Equal(first.RegistryNumber, view.Certificate.RegistryNumber)
}

func (s *IssuerSuite) TestIssuePreconditions() {
	s.Run("status must be verified or validated", func() {
		d := s.seed(declarationmodels.StatusSubmittedToMairie)
		_, err := s.svc.Issue(s.ctx(), s.mairie, d.ID)
		s.assertCode(err, dErrors.CodeInvalidStateTransition)

		var de *dErrors.Error
		s.Require().True(errors.As(err, &de))
		s.Equal(string(declarationmodels.StatusSubmittedToMairie), de.Actual)
		s.ElementsMatch([]string{"certificate_verified", "validated"}, de.Expected)
	})
	s.Run("archived declarations cannot be issued again", func() {
		d := s.seed(declarationmodels.StatusArchived)
		_, err := s.svc.Issue(s.ctx(), s.mairie, d.ID)
		s.assertCode(err, dErrors.CodeInvalidStateTransition)
	})
	s.Run("only mairie agents", func() {
		d := s.seed(declarationmodels.StatusValidated)
		_, err := s.svc.Issue(s.ctx(), s.parent, d.ID)
		s.assertCode(err, dErrors.CodeForbidden)
	})
	s.Run("agents of another office", func() {
		outsider := id.Actor{UserID: id.UserID(uuid.New()), Role: id.RoleMairie}
		s.dir.AddAgent(outsider.UserID, id.RoleMairie, uuid.UUID(testutil.TestIDs.OfficeID2), true)
		d := s.seed(declarationmodels.StatusValidated)
		_, err := s.svc.Issue(s.ctx(), outsider, d.ID)
		s.assertCode(err, dErrors.CodeForbidden)
	})
	s.Run("unknown declaration", func() {
		_, err := s.svc.Issue(s.ctx(), s.mairie, id.DeclarationID(uuid.New()))
		s.assertCode(err, dErrors.CodeNotFound)
	})
}

func (s *IssuerSuite) TestConcurrentIssuanceInOneOfficeGetsDistinctSequences() {
	first := s.seed(declarationmodels.StatusValidated)
	second := s.seed(declarationmodels.StatusValidated)
	targets := []id.DeclarationID{first.ID, second.ID}

	issued, errs := testutil.RunConcurrentCollect(2, func(i int) (*models.Certificate, error) {
		return s.svc.Issue(s.ctx(), s.mairie, targets[i])
	})
	s.Require().NoError(errors.Join(errs...))

	s.ElementsMatch([]int64{1, 2}, []int64{issued[0].Sequence, issued[1].Sequence})
	s.NotEqual(issued[0].RegistryNumber, issued[1].RegistryNumber)
}

func (s *IssuerSuite) TestConcurrentIssuanceOfOneDeclarationHasOneWinner() {
	d := s.seed(declarationmodels.StatusValidated)

	result := testutil.RunConcurrent(10, func(int) error {
		_, err := s.svc.Issue(s.ctx(), s.mairie, d.ID)
		return err
	})
	s.Equal(int32(1), result.Successes)
	s.Equal(int32(9), result.AlreadyIssued)
}

func (s *IssuerSuite) TestReadAccess() {
	d := s.seed(declarationmodels.StatusValidated)
	_, err := s.svc.GetByDeclaration(s.ctx(), s.parent, d.ID)
	s.assertCode(err, dErrors.CodeNotFound)

	c, err := s.svc.Issue(s.ctx(), s.mairie, d.ID)
	s.Require().NoError(err)

	view, err := s.svc.Get(s.ctx(), s.parent, c.ID)
	s.Require().NoError(err)
	s.Empty(view.Downloads)
	s.Equal(models.Totals{}, view.Totals)

	_, err = s.svc.Get(s.ctx(), s.mairie, c.ID)
	s.NoError(err)
	_, err = s.svc.Get(s.ctx(), s.other, c.ID)
	s.assertCode(err, dErrors.CodeForbidden)
	_, err = s.svc.Get(s.ctx(), s.nurse, c.ID)
	s.assertCode(err, dErrors.CodeForbidden)
}

func (s *IssuerSuite) TestAttachDocumentCanBeRegenerated() {
	d := s.seed(declarationmodels.StatusValidated)
	c, err := s.svc.Issue(s.ctx(), s.mairie, d.ID)
	s.Require().NoError(err)

	_, err = s.svc.AttachDocument(s.ctx(), s.mairie, c.ID, nil, "")
	s.assertCode(err, dErrors.CodeValidation)
	_, err = s.svc.AttachDocument(s.ctx(), s.parent, c.ID, []byte("x"), "")
	s.assertCode(err, dErrors.CodeForbidden)

	v1, err := s.svc.AttachDocument(s.ctx(), s.mairie, c.ID, []byte("v1"), "")
	s.Require().NoError(err)
	s.Equal("application/pdf", v1.Document.ContentType)

	later := requestcontext.WithTime(context.Background(), time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	v2, err := s.svc.AttachDocument(later, s.mairie, c.ID, []byte("v2"), "image/png")
	s.Require().NoError(err)
	s.NotEqual(v1.Document.Ref, v2.Document.Ref)
	s.Equal(c.RegistryNumber, v2.RegistryNumber)

	obj, err := s.documents.Get(s.ctx(), v2.Document.Ref)
	s.Require().NoError(err)
	s.Equal([]byte("v2"), obj.Data)
}

func (s *IssuerSuite) TestRequestDownloadComputesAmount() {
	c := s.releasable()

	entry, err := s.svc.RequestDownload(s.ctx(), s.parent, c.ID, 3, "wave")
	s.Require().NoError(err)
	s.Equal(int64(750), entry.Amount)
	s.Equal(models.DownloadPending, entry.Status)
	s.False(entry.Released)
	s.True(strings.HasPrefix(entry.Reference, "PAY-ACT-9E1F-2025-000001-"), entry.Reference)

	again, err := s.svc.RequestDownload(s.ctx(), s.parent, c.ID, 1, "wave")
	s.Require().NoError(err)
	s.NotEqual(entry.Reference, again.Reference)

	_, err = s.svc.RequestDownload(s.ctx(), s.parent, c.ID, 0, "wave")
	s.assertCode(err, dErrors.CodeValidation)
	_, err = s.svc.RequestDownload(s.ctx(), s.parent, c.ID, 1, "")
	s.assertCode(err, dErrors.CodeValidation)
	_, err = s.svc.RequestDownload(s.ctx(), s.other, c.ID, 1, "wave")
	s.assertCode(err, dErrors.CodeForbidden)
	_, err = s.svc.RequestDownload(s.ctx(), s.mairie, c.ID, 1, "wave")
	s.assertCode(err, dErrors.CodeForbidden)
	_, err = s.svc.RequestDownload(s.ctx(), s.parent, id.CertificateID(uuid.New()), 1, "wave")
	s.assertCode(err, dErrors.CodeNotFound)
}

func (s *IssuerSuite) TestConfirmRequiresValidatedOrArchived() {
	d := s.seed(declarationmodels.StatusCertificateVerified)
	c, err := s.svc.Issue(s.ctx(), s.mairie, d.ID)
	s.Require().NoError(err)
	_, err = s.svc.AttachDocument(s.ctx(), s.mairie, c.ID, []byte("%PDF"), "")
	s.Require().NoError(err)

	entry, err := s.svc.RequestDownload(s.ctx(), s.parent, c.ID, 3, "wave")
	s.Require().NoError(err)
	s.Equal(int64(750), entry.Amount)
	_, err = s.svc.RecordPaymentOutcome(s.ctx(), entry.Reference, payment.OutcomePaid)
	s.Require().NoError(err)

	_, err = s.svc.ConfirmAndRelease(s.ctx(), s.parent, entry.Reference)
	s.assertCode(err, dErrors.CodeInvalidStateTransition)

	stored, err := s.certificates.FindDownload(s.ctx(), entry.Reference)
	s.Require().NoError(err)
	s.Equal(models.DownloadPending, stored.Status)

	s.setStatus(d, declarationmodels.StatusValidated)
	release, err := s.svc.ConfirmAndRelease(s.ctx(), s.parent, entry.Reference)
	s.Require().NoError(err)
	s.True(release.Entry.Released)
}

func (s *IssuerSuite) TestConfirmReleasesExactlyOnce() {
	c := s.releasable()
	entry, err := s.svc.RequestDownload(s.ctx(), s.parent, c.ID, 2, "orange_money")
	s.Require().NoError(err)
	_, err = s.svc.RecordPaymentOutcome(s.ctx(), entry.Reference, payment.OutcomePaid)
	s.Require().NoError(err)
	s.notifier.sent, s.notifier.to = nil, nil

	release, err := s.svc.ConfirmAndRelease(s.ctx(), s.parent, entry.Reference)
	s.Require().NoError(err)
	s.Equal(models.DownloadPaid, release.Entry.Status)
	s.True(release.Entry.Released)
	s.Equal(c.Document.Ref, release.Entry.FileRef)
	s.Equal([]byte("%PDF-acte"), release.Document.Data)
	s.Equal([]notificationmodels.Type{notificationmodels.TypeDownloadReady}, s.notifier.types())

	_, err = s.svc.ConfirmAndRelease(s.ctx(), s.parent, entry.Reference)
	s.assertCode(err, dErrors.CodeInvalidStateTransition)

	again, err := s.svc.Redownload(s.ctx(), s.parent, entry.Reference)
	s.Require().NoError(err)
	s.Equal([]byte("%PDF-acte"), again.Document.Data)

	view, err := s.svc.Get(s.ctx(), s.parent, c.ID)
	s.Require().NoError(err)
	s.Equal(models.Totals{Copies: 2, Amount: 500}, view.Totals)

	_, err = s.svc.Redownload(s.ctx(), s.other, entry.Reference)
	s.assertCode(err, dErrors.CodeForbidden)
}

func (s *IssuerSuite) TestConcurrentConfirmReleasesOnce() {
	c := s.releasable()
	entry, err := s.svc.RequestDownload(s.ctx(), s.parent, c.ID, 1, "wave")
	s.Require().NoError(err)
	_, err = s.svc.RecordPaymentOutcome(s.ctx(), entry.Reference, payment.OutcomePaid)
	s.Require().NoError(err)

	result := testutil.RunConcurrent(10, func(int) error {
		_, err := s.svc.ConfirmAndRelease(s.ctx(), s.parent, entry.Reference)
		return err
	})
	s.Equal(int32(1), result.Successes)
	s.Equal(int32(9), result.InvalidTransitions)

	view, err := s.svc.Get(s.ctx(), s.parent, c.ID)
	s.Require().NoError(err)
	s.Equal(models.Totals{Copies: 1, Amount: 250}, view.Totals)
}

func (s *IssuerSuite) TestConfirmWaitsForProcessor() {
	c := s.releasable()
	entry, err := s.svc.RequestDownload(s.ctx(), s.parent, c.ID, 1, "wave")
	s.Require().NoError(err)

	_, err = s.svc.ConfirmAndRelease(s.ctx(), s.parent, entry.Reference)
	s.assertCode(err, dErrors.CodeUpstreamUnavailable)

	stored, err := s.certificates.FindDownload(s.ctx(), entry.Reference)
	s.Require().NoError(err)
	s.Equal(models.DownloadPending, stored.Status)
}

func (s *IssuerSuite) TestDeclinedPaymentSettlesFailed() {
	c := s.releasable()
	entry, err := s.svc.RequestDownload(s.ctx(), s.parent, c.ID, 1, "wave")
	s.Require().NoError(err)
	_, err = s.svc.RecordPaymentOutcome(s.ctx(), entry.Reference, payment.OutcomeFailed)
	s.Require().NoError(err)
	s.notifier.sent, s.notifier.to = nil, nil

	_, err = s.svc.ConfirmAndRelease(s.ctx(), s.parent, entry.Reference)
	s.assertCode(err, dErrors.CodeForbidden)
	s.Equal([]notificationmodels.Type{notificationmodels.TypePaymentFailed}, s.notifier.types())

	stored, err := s.certificates.FindDownload(s.ctx(), entry.Reference)
	s.Require().NoError(err)
	s.Equal(models.DownloadFailed, stored.Status)
	s.False(stored.Released)

	_, err = s.svc.Redownload(s.ctx(), s.parent, entry.Reference)
	s.assertCode(err, dErrors.CodeInvalidStateTransition)
	_, err = s.svc.ConfirmAndRelease(s.ctx(), s.parent, entry.Reference)
	s.assertCode(err, dErrors.CodeInvalidStateTransition)
}

func (s *IssuerSuite) TestConfirmNeedsAttachedDocument() {
	d := s.seed(declarationmodels.StatusValidated)
	c, err := s.svc.Issue(s.ctx(), s.mairie, d.ID)
	s.Require().NoError(err)
	entry, err := s.svc.RequestDownload(s.ctx(), s.parent, c.ID, 1, "wave")
	s.Require().NoError(err)
	_, err = s.svc.RecordPaymentOutcome(s.ctx(), entry.Reference, payment.OutcomePaid)
	s.Require().NoError(err)

	_, err = s.svc.ConfirmAndRelease(s.ctx(), s.parent, entry.Reference)
	s.assertCode(err, dErrors.CodeInvalidStateTransition)
}

func (s *IssuerSuite) TestUnreachableBlobStoreKeepsEntryPending() {
	c := s.releasable()
	entry, err := s.svc.RequestDownload(s.ctx(), s.parent, c.ID, 1, "wave")
	s.Require().NoError(err)
	_, err = s.svc.RecordPaymentOutcome(s.ctx(), entry.Reference, payment.OutcomePaid)
	s.Require().NoError(err)

	ctrl := gomock.NewController(s.T())
	docs := mocks.NewMockDocumentStore(ctrl)
	svc := s.newService(docs, s.ledger)

	gomock.InOrder(
		docs.EXPECT().Get(gomock.Any(), c.Document.Ref).
			Return(nil, fmt.Errorf("s3 timeout: %w", sentinel.ErrUnavailable)),
		docs.EXPECT().Get(gomock.Any(), c.Document.Ref).
			Return(&blob.Object{Data: []byte("%PDF-acte"), ContentType: "application/pdf"}, nil),
	)

	_, err = svc.ConfirmAndRelease(s.ctx(), s.parent, entry.Reference)
	s.assertCode(err, dErrors.CodeUpstreamUnavailable)
	stored, err := s.certificates.FindDownload(s.ctx(), entry.Reference)
	s.Require().NoError(err)
	s.Equal(models.DownloadPending, stored.Status)
	s.False(stored.Released)

	release, err := svc.ConfirmAndRelease(s.ctx(), s.parent, entry.Reference)
	s.Require().NoError(err)
	s.True(release.Entry.Released)
}

func (s *IssuerSuite) TestPaymentLedgerFailureIsRetriable() {
	c := s.releasable()
	entry, err := s.svc.RequestDownload(s.ctx(), s.parent, c.ID, 1, "wave")
	s.Require().NoError(err)

	ctrl := gomock.NewController(s.T())
	ledger := mocks.NewMockPaymentLedger(ctrl)
	ledger.EXPECT().Outcome(gomock.Any(), entry.Reference).Return(payment.Outcome(""), errors.New("redis: connection refused"))
	svc := s.newService(s.documents, ledger)

	_, err = svc.ConfirmAndRelease(s.ctx(), s.parent, entry.Reference)
	s.assertCode(err, dErrors.CodeUpstreamUnavailable)
}

func (s *IssuerSuite) TestRecordPaymentOutcome() {
	c := s.releasable()
	entry, err := s.svc.RequestDownload(s.ctx(), s.parent, c.ID, 1, "wave")
	s.Require().NoError(err)

	_, err = s.svc.RecordPaymentOutcome(s.ctx(), "PAY-UNKNOWN", payment.OutcomePaid)
	s.assertCode(err, dErrors.CodeNotFound)
	_, err = s.svc.RecordPaymentOutcome(s.ctx(), entry.Reference, payment.OutcomePending)
	s.assertCode(err, dErrors.CodeValidation)

	got, err := s.svc.RecordPaymentOutcome(s.ctx(), entry.Reference, payment.OutcomeFailed)
	s.Require().NoError(err)
	s.Equal(payment.OutcomeFailed, got)
	got, err = s.svc.RecordPaymentOutcome(s.ctx(), entry.Reference, payment.OutcomePaid)
	s.Require().NoError(err)
	s.Equal(payment.OutcomeFailed, got, "first verdict wins")
}
