package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"etatcivil/internal/declaration/models"
	id "etatcivil/pkg/domain"
	dErrors "etatcivil/pkg/domain-errors"
	"etatcivil/pkg/platform/httputil"
	platformstrings "etatcivil/pkg/platform/strings"
	"etatcivil/pkg/platform/validation"
	"etatcivil/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/declaration-mocks.go -package=mocks Service

// Service defines the declaration workflow operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, actor id.Actor, in models.CreateInput) (*models.Declaration, error)
	Get(ctx context.Context, actor id.Actor, declarationID id.DeclarationID) (*models.Declaration, []models.Transition, error)
	List(ctx context.Context, actor id.Actor, statuses []models.Status) ([]*models.Declaration, error)
	SendToHospital(ctx context.Context, actor id.Actor, declarationID id.DeclarationID, hospitalID *id.HospitalID) (*models.Declaration, error)
	Reject(ctx context.Context, actor id.Actor, declarationID id.DeclarationID, reason string) (*models.Declaration, error)
	ValidateCertificate(ctx context.Context, actor id.Actor, declarationID id.DeclarationID) (*models.Declaration, error)
	RejectCertificate(ctx context.Context, actor id.Actor, declarationID id.DeclarationID, reason string) (*models.Declaration, error)
	Validate(ctx context.Context, actor id.Actor, declarationID id.DeclarationID) (*models.Declaration, error)
	Archive(ctx context.Context, actor id.Actor, declarationID id.DeclarationID) (*models.Declaration, error)
}

// Handler serves the birth declaration endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register registers the declaration routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/declarations", h.HandleCreate)
	r.Get("/declarations", h.HandleList)
	r.Get("/declarations/{id}", h.HandleGet)
	r.Post("/declarations/{id}/send-to-hospital", h.HandleSendToHospital)
	r.Post("/declarations/{id}/reject", h.HandleReject)
	r.Post("/declarations/{id}/validate-certificate", h.HandleValidateCertificate)
	r.Post("/declarations/{id}/reject-certificate", h.HandleRejectCertificate)
	r.Post("/declarations/{id}/validate", h.HandleValidate)
	r.Post("/declarations/{id}/archive", h.HandleArchive)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := httputil.RequireActor(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateDeclarationRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}

	d, err := h.service.Create(ctx, actor, req.ToInput())
	if err != nil {
		h.logFailure(ctx, "create declaration", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(d, nil))
}

// HandleList accepts ?status=a,b or repeated status parameters.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := httputil.RequireActor(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	filters := platformstrings.SplitList(r.URL.Query()["status"])
	if err := validation.CheckSliceCount("status filters", len(filters), validation.MaxStatusFilters); err != nil {
		httputil.WriteError(w, err)
		return
	}
	statuses := make([]models.Status, 0, len(filters))
	for _, f := range filters {
		statuses = append(statuses, models.Status(f))
	}

	list, err := h.service.List(ctx, actor, statuses)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListResponse(list))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, declarationID, ok := h.target(w, r)
	if !ok {
		return
	}
	d, history, err := h.service.Get(ctx, actor, declarationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(d, history))
}

// HandleSendToHospital takes an optional body; without hospital_id the
// registered delivering facility is used.
func (h *Handler) HandleSendToHospital(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, declarationID, ok := h.target(w, r)
	if !ok {
		return
	}

	var hospitalID *id.HospitalID
	if r.ContentLength != 0 {
		req, ok := httputil.DecodeAndPrepare[SendToHospitalRequest](w, r, h.logger, ctx)
		if !ok {
			return
		}
		hospitalID = req.hospitalID
	}

	h.respond(ctx, w, "send to hospital", func() (*models.Declaration, error) {
		return h.service.SendToHospital(ctx, actor, declarationID, hospitalID)
	})
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, declarationID, ok := h.target(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReasonRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	h.respond(ctx, w, "reject declaration", func() (*models.Declaration, error) {
		return h.service.Reject(ctx, actor, declarationID, req.Reason)
	})
}

func (h *Handler) HandleValidateCertificate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, declarationID, ok := h.target(w, r)
	if !ok {
		return
	}
	h.respond(ctx, w, "validate certificate", func() (*models.Declaration, error) {
		return h.service.ValidateCertificate(ctx, actor, declarationID)
	})
}

func (h *Handler) HandleRejectCertificate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, declarationID, ok := h.target(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReasonRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	h.respond(ctx, w, "reject certificate", func() (*models.Declaration, error) {
		return h.service.RejectCertificate(ctx, actor, declarationID, req.Reason)
	})
}

func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, declarationID, ok := h.target(w, r)
	if !ok {
		return
	}
	h.respond(ctx, w, "validate declaration", func() (*models.Declaration, error) {
		return h.service.Validate(ctx, actor, declarationID)
	})
}

func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, declarationID, ok := h.target(w, r)
	if !ok {
		return
	}
	h.respond(ctx, w, "archive declaration", func() (*models.Declaration, error) {
		return h.service.Archive(ctx, actor, declarationID)
	})
}

// target resolves the caller and the {id} path parameter.
func (h *Handler) target(w http.ResponseWriter, r *http.Request) (id.Actor, id.DeclarationID, bool) {
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

func (h *Handler) respond(ctx context.Context, w http.ResponseWriter, op string, run func() (*models.Declaration, error)) {
	d, err := run()
	if err != nil {
		h.logFailure(ctx, op, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(d, nil))
}

func (h *Handler) logFailure(ctx context.Context, op string, err error) {
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		return
	}
	h.logger.ErrorContext(ctx, "declaration operation failed",
		"operation", op,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}
