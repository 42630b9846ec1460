package portal

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kidgate/internal/identity"
	"kidgate/internal/platform/middleware"
	"kidgate/internal/transport/http/shared"
	dErrors "kidgate/pkg/errors"
)

// Resolver is the identity-resolution dependency.
type Resolver interface {
	Resolve(ctx context.Context, query string) (identity.ResponsibleAdult, error)
}

// Handler serves the parent-portal entry point: a contact-fragment lookup
// that, on success, issues a token scoped to the resolved adult.
type Handler struct {
	resolver Resolver
	tokens   *TokenService
	logger   *slog.Logger
}

func New(resolver Resolver, tokens *TokenService, logger *slog.Logger) *Handler {
	return &Handler{resolver: resolver, tokens: tokens, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/portal/lookup", h.handleLookup)
}

type lookupRequest struct {
	Query string `json:"query"`
}

type lookupResponse struct {
	Token         string `json:"token"`
	ResponsibleID string `json:"responsibleId"`
	DisplayName   string `json:"displayName"`
}

// handleLookup resolves a phone/national-ID fragment. Every resolution
// failure except a too-short input collapses into the same not-found
// envelope: distinguishing "no match" from "two matches" or "backend down"
// would hand an enumeration signal to an unauthenticated caller. The real
// reason goes to the log.
func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req lookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	adult, err := h.resolver.Resolve(ctx, req.Query)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInputTooShort) {
			shared.WriteError(w, err)
			return
		}
		h.logger.WarnContext(ctx, "portal lookup failed",
			"request_id", middleware.GetRequestID(ctx),
			"code", string(dErrors.CodeOf(err)),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no match, contact the front desk"))
		return
	}

	token, err := h.tokens.Generate(adult.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "portal token generation failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "token generation failed"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, lookupResponse{
		Token:         token,
		ResponsibleID: adult.ID.String(),
		DisplayName:   adult.FullName,
	})
}
