package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "etatcivil/pkg/domain"
	"etatcivil/pkg/requestcontext"
)

// JWTValidator defines the interface for validating identity tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	UserID string
	Role   string
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// parseClaims converts the string claims into a typed actor.
func parseClaims(claims *JWTClaims) (id.Actor, error) {
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return id.Actor{}, fmt.Errorf("invalid sub: %w", err)
	}
	if userID.IsNil() {
		return id.Actor{}, fmt.Errorf("invalid sub: nil user id")
	}
	role := id.Role(claims.Role)
	if !role.IsValid() {
		return id.Actor{}, fmt.Errorf("invalid role %q", claims.Role)
	}
	return id.Actor{UserID: userID, Role: role}, nil
}

// RequireAuth returns middleware that validates bearer tokens and stores the
// (userId, role) actor in the request context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			actor, err := parseClaims(claims)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed token claims",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithActor(ctx, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
