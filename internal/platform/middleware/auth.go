package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"kidgate/pkg/domain"
)

// PortalValidator validates parent-portal tokens issued after a successful
// identity lookup.
type PortalValidator interface {
	ValidateToken(tokenString string) (*PortalClaims, error)
}

// PortalClaims is what the portal token asserts: one responsible adult.
type PortalClaims struct {
	ResponsibleID domain.AdultID
}

type contextKeyResponsibleID struct{}

// ContextKeyResponsibleID is exported for handlers and tests.
var ContextKeyResponsibleID = contextKeyResponsibleID{}

// GetResponsibleID retrieves the authenticated responsible-adult ID from the
// context. Nil when the request carried no valid portal token.
func GetResponsibleID(ctx context.Context) domain.AdultID {
	id, ok := ctx.Value(ContextKeyResponsibleID).(domain.AdultID)
	if !ok {
		return domain.AdultID{}
	}
	return id
}

// RequirePortal enforces a valid portal bearer token and stashes the scoped
// responsible-adult ID in the request context.
func RequirePortal(validator PortalValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "portal token rejected",
					"request_id", GetRequestID(r.Context()),
					"error", err.Error(),
				)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeyResponsibleID, claims.ResponsibleID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the bearer credential from the Authorization header.
// Empty when the header is missing or malformed; the scheme match is
// case-insensitive per RFC 9110.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
