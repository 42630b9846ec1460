package testutil

import (
	"context"
	"net/http"

	"kidgate/internal/platform/middleware"
	"kidgate/pkg/domain"
)

// WithResponsible adds a responsible-adult ID to the request context.
// This simulates what the portal auth middleware does for valid tokens.
// An unparseable ID is silently ignored.
func WithResponsible(req *http.Request, responsibleID string) *http.Request {
	parsed, err := domain.ParseAdultID(responsibleID)
	if err != nil {
		return req
	}
	ctx := context.WithValue(req.Context(), middleware.ContextKeyResponsibleID, parsed)
	return req.WithContext(ctx)
}
