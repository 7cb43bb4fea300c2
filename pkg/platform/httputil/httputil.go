package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	id "etatcivil/pkg/domain"
	dErrors "etatcivil/pkg/domain-errors"
	"etatcivil/pkg/requestcontext"
)

// RetryAfterSeconds is advertised on upstream_unavailable responses.
const RetryAfterSeconds = 5

// ErrorResponse is the JSON body written for every failed request.
type ErrorResponse struct {
	Error            string   `json:"error"`
	ErrorDescription string   `json:"error_description,omitempty"`
	ExpectedState    []string `json:"expected_state,omitempty"`
	ActualState      string   `json:"actual_state,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError centralizes domain error translation to HTTP responses.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: string(dErrors.CodeInternal)})
		return
	}

	resp := ErrorResponse{
		Error:         string(domainErr.Code),
		ExpectedState: domainErr.Expected,
		ActualState:   domainErr.Actual,
	}
	// Internal failure messages can leak store details.
	if domainErr.Code != dErrors.CodeInternal {
		resp.ErrorDescription = domainErr.Message
	}
	if domainErr.Code == dErrors.CodeUpstreamUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}
	WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), resp)
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeConflict, dErrors.CodeInvalidStateTransition, dErrors.CodeAlreadyIssued:
		return http.StatusConflict
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// RequireActor extracts the authenticated actor from context.
// A missing actor after the auth middleware is a wiring bug, not a client error.
func RequireActor(ctx context.Context, logger *slog.Logger) (id.Actor, error) {
	actor := requestcontext.Actor(ctx)
	if actor.UserID.IsNil() || !actor.Role.IsValid() {
		if logger != nil {
			logger.ErrorContext(ctx, "actor missing from context despite auth middleware",
				"request_id", requestcontext.RequestID(ctx))
		}
		return id.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return actor, nil
}
