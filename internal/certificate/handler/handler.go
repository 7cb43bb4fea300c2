package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"etatcivil/internal/certificate/models"
	"etatcivil/internal/payment"
	id "etatcivil/pkg/domain"
	dErrors "etatcivil/pkg/domain-errors"
	"etatcivil/pkg/platform/httputil"
	"etatcivil/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/certificate-mocks.go -package=mocks Service

// MaxDocumentBytes caps an uploaded certificate document.
const MaxDocumentBytes = 10 << 20

// Service defines the certificate operations exposed over HTTP.
type Service interface {
	Issue(ctx context.Context, actor id.Actor, declarationID id.DeclarationID) (*models.Certificate, error)
	Get(ctx context.Context, actor id.Actor, certificateID id.CertificateID) (*models.View, error)
	GetByDeclaration(ctx context.Context, actor id.Actor, declarationID id.DeclarationID) (*models.View, error)
	AttachDocument(ctx context.Context, actor id.Actor, certificateID id.CertificateID, data []byte, contentType string) (*models.Certificate, error)
	RequestDownload(ctx context.Context, actor id.Actor, certificateID id.CertificateID, copies int, channel string) (*models.DownloadEntry, error)
	ConfirmAndRelease(ctx context.Context, actor id.Actor, reference string) (*models.Release, error)
	Redownload(ctx context.Context, actor id.Actor, reference string) (*models.Release, error)
	RecordPaymentOutcome(ctx context.Context, reference string, outcome payment.Outcome) (payment.Outcome, error)
}

// Handler serves certificate issuance, download and payment callback endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register registers the authenticated certificate routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/declarations/{id}/certificate", h.HandleIssue)
	r.Get("/declarations/{id}/certificate", h.HandleGetByDeclaration)
	r.Get("/certificates/{id}", h.HandleGet)
	r.Put("/certificates/{id}/document", h.HandleAttachDocument)
	r.Post("/certificates/{id}/downloads", h.HandleRequestDownload)
	r.Post("/downloads/{reference}/confirm", h.HandleConfirm)
	r.Get("/downloads/{reference}", h.HandleRedownload)
}

// RegisterPaymentCallback registers the processor callback behind the shared secret.
func (h *Handler) RegisterPaymentCallback(r chi.Router, secret string) {
	r.With(payment.RequireSecret(secret)).Post("/payments/callback", h.HandlePaymentCallback)
}

func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, declarationID, ok := h.declarationTarget(w, r)
	if !ok {
		return
	}
	c, err := h.service.Issue(ctx, actor, declarationID)
	if err != nil {
		h.logFailure(ctx, "issue certificate", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toCertificateResponse(&models.View{Certificate: c}))
}

func (h *Handler) HandleGetByDeclaration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, declarationID, ok := h.declarationTarget(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetByDeclaration(ctx, actor, declarationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCertificateResponse(view))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, certificateID, ok := h.certificateTarget(w, r)
	if !ok {
		return
	}
	view, err := h.service.Get(ctx, actor, certificateID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCertificateResponse(view))
}

// HandleAttachDocument takes the rendered document as the raw request body.
func (h *Handler) HandleAttachDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, certificateID, ok := h.certificateTarget(w, r)
	if !ok {
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxDocumentBytes))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "document must be at most 10 MiB"))
		return
	}
	c, err := h.service.AttachDocument(ctx, actor, certificateID, data, r.Header.Get("Content-Type"))
	if err != nil {
		h.logFailure(ctx, "attach document", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCertificateResponse(&models.View{Certificate: c}))
}

func (h *Handler) HandleRequestDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, certificateID, ok := h.certificateTarget(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[DownloadRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	entry, err := h.service.RequestDownload(ctx, actor, certificateID, req.Copies, req.Channel)
	if err != nil {
		h.logFailure(ctx, "request download", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toDownloadResponse(entry))
}

func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := httputil.RequireActor(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	release, err := h.service.ConfirmAndRelease(ctx, actor, chi.URLParam(r, "reference"))
	if err != nil {
		h.logFailure(ctx, "confirm download", err)
		httputil.WriteError(w, err)
		return
	}
	writeDocument(w, release)
}

func (h *Handler) HandleRedownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := httputil.RequireActor(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	release, err := h.service.Redownload(ctx, actor, chi.URLParam(r, "reference"))
	if err != nil {
		h.logFailure(ctx, "redownload", err)
		httputil.WriteError(w, err)
		return
	}
	writeDocument(w, release)
}

// HandlePaymentCallback records the processor's verdict. It carries no user token.
func (h *Handler) HandlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[PaymentCallbackRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	outcome, err := h.service.RecordPaymentOutcome(ctx, req.Reference, payment.Outcome(req.Outcome))
	if err != nil {
		h.logFailure(ctx, "record payment outcome", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PaymentCallbackResponse{Reference: req.Reference, Outcome: string(outcome)})
}

// writeDocument streams the released file; ledger facts travel in headers.
func writeDocument(w http.ResponseWriter, release *models.Release) {
	contentType := release.Document.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(release.Document.Data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", release.Entry.Reference))
	w.Header().Set("X-Payment-Reference", release.Entry.Reference)
	w.Header().Set("X-Copies", strconv.Itoa(release.Entry.Copies))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(release.Document.Data)
}

func (h *Handler) declarationTarget(w http.ResponseWriter, r *http.Request) (id.Actor, id.DeclarationID, bool) {
	actor, err := httputil.RequireActor(r.Context(), h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return id.Actor{}, id.DeclarationID{}, false
	}
	declarationID, err := id.ParseDeclarationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.Actor{}, id.DeclarationID{}, false
	}
	return actor, declarationID, true
}

func (h *Handler) certificateTarget(w http.ResponseWriter, r *http.Request) (id.Actor, id.CertificateID, bool) {
	actor, err := httputil.RequireActor(r.Context(), h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return id.Actor{}, id.CertificateID{}, false
	}
	certificateID, err := id.ParseCertificateID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.Actor{}, id.CertificateID{}, false
	}
	return actor, certificateID, true
}

func (h *Handler) logFailure(ctx context.Context, op string, err error) {
	code := dErrors.CodeOf(err)
	if code != dErrors.CodeInternal && code != dErrors.CodeUpstreamUnavailable {
		return
	}
	h.logger.ErrorContext(ctx, "certificate operation failed",
		"operation", op,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}
