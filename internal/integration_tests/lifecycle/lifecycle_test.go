package lifecycle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"etatcivil/internal/blob"
	certificatehandler "etatcivil/internal/certificate/handler"
	certificateservice "etatcivil/internal/certificate/service"
	certificatestore "etatcivil/internal/certificate/store"
	declarationhandler "etatcivil/internal/declaration/handler"
	declarationmodels "etatcivil/internal/declaration/models"
	declarationservice "etatcivil/internal/declaration/service"
	declarationstore "etatcivil/internal/declaration/store"
	"etatcivil/internal/directory"
	jwttoken "etatcivil/internal/jwt_token"
	notificationhandler "etatcivil/internal/notification/handler"
	notificationmodels "etatcivil/internal/notification/models"
	notificationservice "etatcivil/internal/notification/service"
	notificationstore "etatcivil/internal/notification/store"
	"etatcivil/internal/payment"
	"etatcivil/internal/sequence"
	httptransport "etatcivil/internal/transport/http"
	id "etatcivil/pkg/domain"
	dErrors "etatcivil/pkg/domain-errors"
	"etatcivil/pkg/platform/circuit"
	"etatcivil/pkg/platform/httputil"
	outboxmemory "etatcivil/pkg/platform/outbox/store/memory"
	platformsync "etatcivil/pkg/platform/sync"
	"etatcivil/pkg/testutil"
)

const callbackSecret = "lifecycle-secret"

var (
	parent        = id.Actor{UserID: testutil.TestIDs.ParentID1, Role: id.RoleParent}
	mairieAgent   = id.Actor{UserID: testutil.TestIDs.MairieID1, Role: id.RoleMairie}
	hospitalAgent = id.Actor{UserID: testutil.TestIDs.HospitalAg1, Role: id.RoleHospital}
)

// LifecycleSuite drives the declaration, certificate and notification
// modules through the production router on in-memory stores.
type LifecycleSuite struct {
	suite.Suite
	router http.Handler
	tokens *jwttoken.JWTService
	outbox *outboxmemory.Store
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dir := directory.NewMemory()
	dir.AddOffice(directory.Office{ID: testutil.TestIDs.OfficeID1, Name: "Mairie de Dakar-Plateau", ShortCode: "9E1F"})
	dir.AddHospital(directory.Hospital{ID: testutil.TestIDs.HospitalID1, Name: "Hopital Principal", OfficeID: testutil.TestIDs.OfficeID1})
	dir.AddUser(parent.UserID, id.RoleParent)
	dir.AddAgent(mairieAgent.UserID, id.RoleMairie, uuid.UUID(testutil.TestIDs.OfficeID1), true)
	dir.AddAgent(hospitalAgent.UserID, id.RoleHospital, uuid.UUID(testutil.TestIDs.HospitalID1), true)

	declarations := declarationstore.NewInMemory()
	certificates := certificatestore.NewInMemory()
	s.outbox = outboxmemory.New()
	mu := platformsync.NewShardedMutex()

	notifications := notificationservice.New(notificationstore.NewInMemory(), dir,
		notificationservice.NewAudienceResolver(dir), notificationservice.WithLogger(logger))
	declarationSvc := declarationservice.New(declarations,
		declarationservice.NewShardedTx(mu, declarationservice.Stores{Declarations: declarations, Outbox: s.outbox}, nil),
		dir, notifications, declarationservice.WithLogger(logger))
	certificateSvc := certificateservice.New(certificates, declarations,
		certificateservice.NewShardedTx(mu, certificateservice.Stores{
			Certificates: certificates,
			Declarations: declarations,
			Sequence:     sequence.NewMemoryAllocator(),
			Outbox:       s.outbox,
		}),
		dir,
		blob.NewGuardedStore(blob.NewMemoryStore(), circuit.New("blob")),
		payment.NewMemoryLedger(),
		notifications,
		certificateservice.WithLogger(logger),
	)

	s.tokens = jwttoken.NewJWTService("lifecycle-signing-key", "etatcivil", time.Hour)
	s.router = httptransport.NewRouter(httptransport.Deps{
		Declarations:   declarationhandler.New(declarationSvc, logger),
		Certificates:   certificatehandler.New(certificateSvc, logger),
		Notifications:  notificationhandler.New(notifications, logger),
		Tokens:         jwttoken.NewJWTServiceAdapter(s.tokens),
		CallbackSecret: callbackSecret,
		Gatherer:       prometheus.NewRegistry(),
		Logger:         logger,
	})
}

func (s *LifecycleSuite) do(actor id.Actor, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	token, err := s.tokens.GenerateToken(context.Background(), actor)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *LifecycleSuite) decode(w *httptest.ResponseRecorder, out any) {
	s.Require().NoError(json.NewDecoder(w.Body).Decode(out), w.Body.String())
}

func (s *LifecycleSuite) requireStatus(w *httptest.ResponseRecorder, status int) {
	s.Require().Equal(status, w.Code, w.Body.String())
}

func (s *LifecycleSuite) errorOf(w *httptest.ResponseRecorder) httputil.ErrorResponse {
	var body httputil.ErrorResponse
	s.decode(w, &body)
	return body
}

func (s *LifecycleSuite) createDeclaration(childName string) declarationhandler.DeclarationResponse {
	w := s.do(parent, http.MethodPost, "/declarations", map[string]any{
		"office_id": testutil.TestIDs.OfficeID1.String(),
		"child": map[string]any{
			"first_name":  childName,
			"last_name":   "Sow",
			"sex":         "f",
			"birth_date":  "2025-05-20",
			"birth_place": "Dakar",
		},
		"parents": map[string]any{
			"father": map[string]any{"first_name": "Ousmane", "last_name": "Sow"},
			"mother": map[string]any{"first_name": "Mariama", "last_name": "Ba"},
		},
		"facility": map[string]any{"kind": "registered", "hospital_id": testutil.TestIDs.HospitalID1.String()},
		"registry": map[string]any{"region": "Dakar", "commune": "Plateau"},
	})
	s.requireStatus(w, http.StatusCreated)

	var d declarationhandler.DeclarationResponse
	s.decode(w, &d)
	s.Require().Equal(declarationmodels.StatusSubmittedToMairie, d.Status)
	return d
}

// transition posts one workflow action and returns the updated declaration.
func (s *LifecycleSuite) transition(actor id.Actor, declarationID, action string, body any) declarationhandler.DeclarationResponse {
	w := s.do(actor, http.MethodPost, "/declarations/"+declarationID+"/"+action, body)
	s.requireStatus(w, http.StatusOK)
	var d declarationhandler.DeclarationResponse
	s.decode(w, &d)
	return d
}

// verified walks a new declaration up to certificate_verified.
func (s *LifecycleSuite) verified(childName string) string {
	d := s.createDeclaration(childName)
	s.transition(mairieAgent, d.ID, "send-to-hospital", map[string]string{"hospital_id": testutil.TestIDs.HospitalID1.String()})
	s.transition(hospitalAgent, d.ID, "validate-certificate", nil)
	return d.ID
}

func (s *LifecycleSuite) inbox(actor id.Actor) []notificationhandler.NotificationResponse {
	w := s.do(actor, http.MethodGet, "/notifications", nil)
	s.requireStatus(w, http.StatusOK)
	var list notificationhandler.ListResponse
	s.decode(w, &list)
	return list.Notifications
}

func countOfType(list []notificationhandler.NotificationResponse, typ notificationmodels.Type) int {
	n := 0
	for _, item := range list {
		if item.Type == typ {
			n++
		}
	}
	return n
}

func (s *LifecycleSuite) issue(declarationID string) certificatehandler.CertificateResponse {
	w := s.do(mairieAgent, http.MethodPost, "/declarations/"+declarationID+"/certificate", nil)
	s.requireStatus(w, http.StatusCreated)
	var c certificatehandler.CertificateResponse
	s.decode(w, &c)
	return c
}

func (s *LifecycleSuite) TestScenarioA_HappyPathToArchive() {
	d := s.createDeclaration("Aminata")

	d = s.transition(mairieAgent, d.ID, "send-to-hospital", map[string]string{"hospital_id": testutil.TestIDs.HospitalID1.String()})
	s.Equal(declarationmodels.StatusPendingHospitalVerification, d.Status)
	s.Equal(1, countOfType(s.inbox(hospitalAgent), notificationmodels.TypeDeclarationToHospital))
	s.Equal(1, countOfType(s.inbox(parent), notificationmodels.TypeDeclarationToHospital))

	d = s.transition(hospitalAgent, d.ID, "validate-certificate", nil)
	s.Equal(declarationmodels.StatusCertificateVerified, d.Status)

	d = s.transition(mairieAgent, d.ID, "validate", nil)
	s.Equal(declarationmodels.StatusValidated, d.Status)

	c := s.issue(d.ID)
	year := time.Now().UTC().Year()
	s.Equal(fmt.Sprintf("9E1F-%d-000001", year), c.RegistryNumber)
	s.Equal(fmt.Sprintf("ACT-9E1F-%d-000001", year), c.ActNumber)
	s.Regexp(regexp.MustCompile(`^[0-9A-F]{32}$`), c.Stamp)

	w := s.do(parent, http.MethodGet, "/declarations/"+d.ID, nil)
	s.requireStatus(w, http.StatusOK)
	var linked declarationhandler.DeclarationResponse
	s.decode(w, &linked)
	s.Equal(c.ID, linked.CertificateID)

	d = s.transition(mairieAgent, d.ID, "archive", nil)
	s.Equal(declarationmodels.StatusArchived, d.Status)

	w = s.do(parent, http.MethodGet, "/declarations/"+d.ID, nil)
	s.requireStatus(w, http.StatusOK)
	var archived declarationhandler.DeclarationResponse
	s.decode(w, &archived)
	path := make([]declarationmodels.Status, 0, len(archived.History))
	for _, t := range archived.History {
		path = append(path, t.To)
	}
	s.True(declarationmodels.IsValidPath(path), "history %v", path)
	s.Len(path, 5)

	pending, err := s.outbox.CountPending(context.Background())
	s.Require().NoError(err)
	s.Positive(pending)
}

func (s *LifecycleSuite) TestScenarioB_ConcurrentIssuanceGetsDistinctSequences() {
	first := s.verified("Awa")
	second := s.verified("Khady")
	s.transition(mairieAgent, first, "validate", nil)
	s.transition(mairieAgent, second, "validate", nil)

	sequences, errs := testutil.RunConcurrentCollect(2, func(i int) (int64, error) {
		target := first
		if i == 1 {
			target = second
		}
		w := s.do(mairieAgent, http.MethodPost, "/declarations/"+target+"/certificate", nil)
		if w.Code != http.StatusCreated {
			return 0, fmt.Errorf("issue %s: %d %s", target, w.Code, w.Body.String())
		}
		var c certificatehandler.CertificateResponse
		if err := json.NewDecoder(w.Body).Decode(&c); err != nil {
			return 0, err
		}
		return c.Sequence, nil
	})
	for _, err := range errs {
		s.Require().NoError(err)
	}
	s.ElementsMatch([]int64{1, 2}, sequences)
}

func (s *LifecycleSuite) TestScenarioC_RejectCertificateNeedsReason() {
	d := s.createDeclaration("Fatou")
	s.transition(mairieAgent, d.ID, "send-to-hospital", map[string]string{"hospital_id": testutil.TestIDs.HospitalID1.String()})

	w := s.do(hospitalAgent, http.MethodPost, "/declarations/"+d.ID+"/reject-certificate", map[string]string{"reason": "  "})
	s.requireStatus(w, http.StatusBadRequest)
	s.Equal(string(dErrors.CodeValidation), s.errorOf(w).Error)

	reason := "numero d'accouchement inconnu"
	rejected := s.transition(hospitalAgent, d.ID, "reject-certificate", map[string]string{"reason": reason})
	s.Equal(declarationmodels.StatusCertificateRejected, rejected.Status)

	for _, actor := range []id.Actor{mairieAgent, parent} {
		found := false
		for _, n := range s.inbox(actor) {
			if n.Type == notificationmodels.TypeCertificateRejected && strings.Contains(n.Body, reason) {
				found = true
			}
		}
		s.True(found, "%s was not told the reason", actor.Role)
	}
}

func (s *LifecycleSuite) TestScenarioD_ReleaseWaitsForValidation() {
	declarationID := s.verified("Ndeye")
	c := s.issue(declarationID)

	req := httptest.NewRequest(http.MethodPut, "/certificates/"+c.ID+"/document", strings.NewReader("%PDF-acte"))
	req.Header.Set("Content-Type", "application/pdf")
	token, err := s.tokens.GenerateToken(context.Background(), mairieAgent)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)
	attach := httptest.NewRecorder()
	s.router.ServeHTTP(attach, req)
	s.requireStatus(attach, http.StatusOK)

	w := s.do(parent, http.MethodPost, "/certificates/"+c.ID+"/downloads", map[string]any{"copies": 3, "channel": "wave"})
	s.requireStatus(w, http.StatusCreated)
	var entry certificatehandler.DownloadResponse
	s.decode(w, &entry)
	s.Equal(int64(750), entry.Amount)
	s.Equal("pending", entry.Status)

	callback := httptest.NewRequest(http.MethodPost, "/payments/callback",
		strings.NewReader(fmt.Sprintf(`{"reference":%q,"outcome":"paid"}`, entry.Reference)))
	callback.Header.Set(payment.SecretHeader, callbackSecret)
	paid := httptest.NewRecorder()
	s.router.ServeHTTP(paid, callback)
	s.requireStatus(paid, http.StatusOK)

	w = s.do(parent, http.MethodPost, "/downloads/"+entry.Reference+"/confirm", nil)
	s.requireStatus(w, http.StatusConflict)
	gate := s.errorOf(w)
	s.Equal(string(dErrors.CodeInvalidStateTransition), gate.Error)
	s.Equal(string(declarationmodels.StatusCertificateVerified), gate.ActualState)

	s.transition(mairieAgent, declarationID, "validate", nil)

	w = s.do(parent, http.MethodPost, "/downloads/"+entry.Reference+"/confirm", nil)
	s.requireStatus(w, http.StatusOK)
	s.Equal("%PDF-acte", w.Body.String())
	s.Equal("3", w.Header().Get("X-Copies"))

	w = s.do(parent, http.MethodGet, "/certificates/"+c.ID, nil)
	s.requireStatus(w, http.StatusOK)
	var view certificatehandler.CertificateResponse
	s.decode(w, &view)
	s.Equal(int64(750), view.Totals.Amount)
	s.Equal(int64(3), view.Totals.Copies)

	w = s.do(parent, http.MethodPost, "/downloads/"+entry.Reference+"/confirm", nil)
	s.requireStatus(w, http.StatusConflict)
}
