package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"etatcivil/internal/blob"
	"etatcivil/internal/certificate/handler/mocks"
	"etatcivil/internal/certificate/models"
	"etatcivil/internal/payment"
	id "etatcivil/pkg/domain"
	dErrors "etatcivil/pkg/domain-errors"
	"etatcivil/pkg/platform/httputil"
	"etatcivil/pkg/requestcontext"
)

const callbackSecret = "processor-secret"

type CertificateHandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
	actor   id.Actor
}

func TestCertificateHandlerSuite(t *testing.T) {
	suite.Run(t, new(CertificateHandlerSuite))
}

func (s *CertificateHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.actor = id.Actor{UserID: id.UserID(uuid.New()), Role: id.RoleParent}

	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	h.Register(s.router)
	h.RegisterPaymentCallback(s.router, callbackSecret)
}

func (s *CertificateHandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	req = req.WithContext(requestcontext.WithActor(req.Context(), s.actor))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *CertificateHandlerSuite) certificate() *models.Certificate {
	office := id.OfficeID(uuid.New())
	return &models.Certificate{
		ID:             id.CertificateID(uuid.New()),
		DeclarationID:  id.DeclarationID(uuid.New()),
		OfficeID:       office,
		OwnerID:        s.actor.UserID,
		Year:           2025,
		Sequence:       1,
		RegistryNumber: models.RegistryNumber(office, 2025, 1),
		ActNumber:      models.ActNumber(office, 2025, 1),
		Stamp:          "ABCDEF0123456789ABCDEF0123456789",
		Seal:           "0123456789ABCDEF",
		UnitPrice:      250,
		IssuedAt:       time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (s *CertificateHandlerSuite) decodeError(w *httptest.ResponseRecorder) httputil.ErrorResponse {
	var body httputil.ErrorResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&body))
	return body
}

func (s *CertificateHandlerSuite) TestIssue() {
	c := s.certificate()
	s.service.EXPECT().Issue(gomock.Any(), s.actor, c.DeclarationID).Return(c, nil)

	w := s.do(httptest.NewRequest(http.MethodPost, "/declarations/"+c.DeclarationID.String()+"/certificate", nil))
	s.Equal(http.StatusCreated, w.Code)

	var body CertificateResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&body))
	s.Equal(c.RegistryNumber, body.RegistryNumber)
	s.Equal(c.ActNumber, body.ActNumber)
	s.Nil(body.Document)
	s.Empty(body.Downloads)
}

func (s *CertificateHandlerSuite) TestIssueTwiceIsConflict() {
	declarationID := id.DeclarationID(uuid.New())
	s.service.EXPECT().Issue(gomock.Any(), s.actor, declarationID).
		Return(nil, dErrors.New(dErrors.CodeAlreadyIssued, "a certificate was already issued for this declaration"))

	w := s.do(httptest.NewRequest(http.MethodPost, "/declarations/"+declarationID.String()+"/certificate", nil))
	s.Equal(http.StatusConflict, w.Code)
	s.Equal(string(dErrors.CodeAlreadyIssued), s.decodeError(w).Error)
}

func (s *CertificateHandlerSuite) TestGetIncludesLedgerAndTotals() {
	c := s.certificate()
	entries := []*models.DownloadEntry{
		{Reference: "PAY-1", CertificateID: c.ID, Copies: 2, Amount: 500, Channel: "wave", Status: models.DownloadPaid, Released: true},
		{Reference: "PAY-2", CertificateID: c.ID, Copies: 1, Amount: 250, Channel: "wave", Status: models.DownloadPending},
	}
	s.service.EXPECT().Get(gomock.Any(), s.actor, c.ID).
		Return(&models.View{Certificate: c, Downloads: entries, Totals: models.TotalsOf(entries)}, nil)

	w := s.do(httptest.NewRequest(http.MethodGet, "/certificates/"+c.ID.String(), nil))
	s.Require().Equal(http.StatusOK, w.Code)

	var body CertificateResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&body))
	s.Len(body.Downloads, 2)
	s.Equal(models.Totals{Copies: 2, Amount: 500}, body.Totals)
}

func (s *CertificateHandlerSuite) TestAttachDocumentPassesBodyAndContentType() {
	c := s.certificate()
	s.service.EXPECT().AttachDocument(gomock.Any(), s.actor, c.ID, []byte("%PDF-1.7"), "application/pdf").
		Return(c, nil)

	req := httptest.NewRequest(http.MethodPut, "/certificates/"+c.ID.String()+"/document", bytes.NewBufferString("%PDF-1.7"))
	req.Header.Set("Content-Type", "application/pdf")
	w := s.do(req)
	s.Equal(http.StatusOK, w.Code)
}

func (s *CertificateHandlerSuite) TestRequestDownload() {
	c := s.certificate()

	s.Run("creates a pending entry", func() {
		s.service.EXPECT().RequestDownload(gomock.Any(), s.actor, c.ID, 3, "wave").
			Return(&models.DownloadEntry{Reference: "PAY-ACT-1", Copies: 3, Amount: 750, Channel: "wave", Status: models.DownloadPending}, nil)

		w := s.do(httptest.NewRequest(http.MethodPost, "/certificates/"+c.ID.String()+"/downloads",
			bytes.NewBufferString(`{"copies":3,"channel":" Wave "}`)))
		s.Require().Equal(http.StatusCreated, w.Code)

		var body DownloadResponse
		s.Require().NoError(json.NewDecoder(w.Body).Decode(&body))
		s.Equal(int64(750), body.Amount)
		s.Equal("pending", body.Status)
		s.False(body.Released)
	})
	s.Run("rejects zero copies before the service", func() {
		w := s.do(httptest.NewRequest(http.MethodPost, "/certificates/"+c.ID.String()+"/downloads",
			bytes.NewBufferString(`{"copies":0,"channel":"wave"}`)))
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal(string(dErrors.CodeValidation), s.decodeError(w).Error)
	})
}

func (s *CertificateHandlerSuite) TestConfirmStreamsDocument() {
	release := &models.Release{
		Entry:    &models.DownloadEntry{Reference: "PAY-ACT-1", Copies: 2, Status: models.DownloadPaid, Released: true},
		Document: &blob.Object{Data: []byte("%PDF-acte"), ContentType: "application/pdf"},
	}
	s.service.EXPECT().ConfirmAndRelease(gomock.Any(), s.actor, "PAY-ACT-1").Return(release, nil)

	w := s.do(httptest.NewRequest(http.MethodPost, "/downloads/PAY-ACT-1/confirm", nil))
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("application/pdf", w.Header().Get("Content-Type"))
	s.Equal("PAY-ACT-1", w.Header().Get("X-Payment-Reference"))
	s.Equal("2", w.Header().Get("X-Copies"))
	s.Equal("%PDF-acte", w.Body.String())
}

func (s *CertificateHandlerSuite) TestConfirmBeforeReleaseGateCarriesStates() {
	s.service.EXPECT().ConfirmAndRelease(gomock.Any(), s.actor, "PAY-ACT-1").
		Return(nil, dErrors.InvalidTransition("cannot release", "certificate_verified", "validated", "archived"))

	w := s.do(httptest.NewRequest(http.MethodPost, "/downloads/PAY-ACT-1/confirm", nil))
	s.Equal(http.StatusConflict, w.Code)
	body := s.decodeError(w)
	s.Equal("certificate_verified", body.ActualState)
	s.Equal([]string{"validated", "archived"}, body.ExpectedState)
}

func (s *CertificateHandlerSuite) TestConfirmUnavailableSetsRetryAfter() {
	s.service.EXPECT().ConfirmAndRelease(gomock.Any(), s.actor, "PAY-ACT-1").
		Return(nil, dErrors.New(dErrors.CodeUpstreamUnavailable, "document store unavailable"))

	w := s.do(httptest.NewRequest(http.MethodPost, "/downloads/PAY-ACT-1/confirm", nil))
	s.Equal(http.StatusServiceUnavailable, w.Code)
	s.NotEmpty(w.Header().Get("Retry-After"))
}

func (s *CertificateHandlerSuite) TestRedownload() {
	release := &models.Release{
		Entry:    &models.DownloadEntry{Reference: "PAY-ACT-1", Copies: 1, Status: models.DownloadPaid, Released: true},
		Document: &blob.Object{Data: []byte("png"), ContentType: "image/png"},
	}
	s.service.EXPECT().Redownload(gomock.Any(), s.actor, "PAY-ACT-1").Return(release, nil)

	w := s.do(httptest.NewRequest(http.MethodGet, "/downloads/PAY-ACT-1", nil))
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("image/png", w.Header().Get("Content-Type"))
}

func (s *CertificateHandlerSuite) TestPaymentCallback() {
	s.Run("requires the shared secret", func() {
		w := s.do(httptest.NewRequest(http.MethodPost, "/payments/callback",
			bytes.NewBufferString(`{"reference":"PAY-ACT-1","outcome":"paid"}`)))
		s.Equal(http.StatusUnauthorized, w.Code)
	})
	s.Run("records the outcome", func() {
		s.service.EXPECT().RecordPaymentOutcome(gomock.Any(), "PAY-ACT-1", payment.OutcomePaid).
			Return(payment.OutcomePaid, nil)

		req := httptest.NewRequest(http.MethodPost, "/payments/callback",
			bytes.NewBufferString(`{"reference":" PAY-ACT-1 ","outcome":"PAID"}`))
		req.Header.Set(payment.SecretHeader, callbackSecret)
		w := s.do(req)
		s.Require().Equal(http.StatusOK, w.Code)

		var body PaymentCallbackResponse
		s.Require().NoError(json.NewDecoder(w.Body).Decode(&body))
		s.Equal("paid", body.Outcome)
	})
	s.Run("rejects pending outcomes", func() {
		req := httptest.NewRequest(http.MethodPost, "/payments/callback",
			bytes.NewBufferString(`{"reference":"PAY-ACT-1","outcome":"pending"}`))
		req.Header.Set(payment.SecretHeader, callbackSecret)
		w := s.do(req)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *CertificateHandlerSuite) TestMalformedIDs() {
	w := s.do(httptest.NewRequest(http.MethodGet, "/certificates/not-a-uuid", nil))
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(httptest.NewRequest(http.MethodPost, "/declarations/nope/certificate", nil))
	s.Equal(http.StatusBadRequest, w.Code)
}
