package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kidgate/internal/checkin"
	"kidgate/internal/platform/middleware"
	"kidgate/internal/transport/http/shared"
	"kidgate/pkg/domain"
	dErrors "kidgate/pkg/errors"
)

// Service defines the check-in operations the handler needs.
type Service interface {
	Create(ctx context.Context, childID domain.ChildID, responsibleID domain.AdultID) (checkin.CheckIn, error)
	Transition(ctx context.Context, id domain.CheckInID, action checkin.Action) (checkin.CheckIn, error)
	AppendPhoto(ctx context.Context, id domain.CheckInID, data []byte, contentType string) (checkin.CheckIn, string, error)
	Get(ctx context.Context, id domain.CheckInID) (checkin.CheckIn, error)
	LiveByResponsible(ctx context.Context, responsibleID domain.AdultID) ([]checkin.CheckIn, error)
	Live(ctx context.Context) ([]checkin.CheckIn, error)
	Alerts(ctx context.Context) ([]checkin.CheckIn, error)
}

// Handler is the thin HTTP layer over the check-in service. Leader routes sit
// behind the station proxy's staff authentication; the portal snapshot
// requires a portal token; the alerts snapshot is public and carries security
// codes only.
type Handler struct {
	service Service
	logger  *slog.Logger
	portal  middleware.PortalValidator
}

func New(service Service, logger *slog.Logger, portal middleware.PortalValidator) *Handler {
	return &Handler{service: service, logger: logger, portal: portal}
}

// Register mounts the check-in routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/checkins", h.handleCreate)
	r.Get("/checkins/active", h.handleLive)
	r.Get("/checkins/alerts", h.handleAlerts)
	r.Get("/checkins/{id}", h.handleGet)
	r.Post("/checkins/{id}/alert", h.transition(checkin.ActionRaiseAlert))
	r.Post("/checkins/{id}/resolve", h.transition(checkin.ActionResolveAlert))
	r.Post("/checkins/{id}/checkout", h.transition(checkin.ActionCheckOut))
	r.Post("/checkins/{id}/photos", h.handleAppendPhoto)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePortal(h.portal, h.logger))
		r.Get("/checkins", h.handlePortalSnapshot)
	})
}

type createRequest struct {
	ChildID       string `json:"childId"`
	ResponsibleID string `json:"responsibleId"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	childID, err := domain.ParseChildID(req.ChildID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	responsibleID, err := domain.ParseAdultID(req.ResponsibleID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	record, err := h.service.Create(ctx, childID, responsibleID)
	if err != nil {
		h.logFailure(ctx, "create check-in", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toResponse(record))
}

func (h *Handler) transition(action checkin.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := domain.ParseCheckInID(chi.URLParam(r, "id"))
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		record, err := h.service.Transition(ctx, id, action)
		if err != nil {
			h.logFailure(ctx, "transition "+string(action), err)
			shared.WriteError(w, err)
			return
		}
		shared.WriteJSON(w, http.StatusOK, toResponse(record))
	}
}

type appendPhotoRequest struct {
	// Data is the base64-encoded blob; ContentType is advisory.
	Data        string `json:"data"`
	ContentType string `json:"contentType"`
}

func (h *Handler) handleAppendPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseCheckInID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req appendPhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	blob, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "photo data must be base64"))
		return
	}

	record, ref, err := h.service.AppendPhoto(ctx, id, blob, req.ContentType)
	if err != nil {
		h.logFailure(ctx, "append photo", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"photoRef": ref,
		"checkIn":  toResponse(record),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseCheckInID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	record, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(record))
}

// handlePortalSnapshot serves the family's live sessions, scoped by the
// portal token. The responsibleId query parameter, when present, must agree
// with the token; a mismatch is indistinguishable from an empty family.
func (h *Handler) handlePortalSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	responsibleID := middleware.GetResponsibleID(ctx)
	if responsibleID.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "portal token required"))
		return
	}
	if q := r.URL.Query().Get("responsibleId"); q != "" && q != responsibleID.String() {
		shared.WriteJSON(w, http.StatusOK, []checkInResponse{})
		return
	}

	records, err := h.service.LiveByResponsible(ctx, responsibleID)
	if err != nil {
		h.logFailure(ctx, "portal snapshot", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponses(records))
}

func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.Live(r.Context())
	if err != nil {
		h.logFailure(r.Context(), "live snapshot", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponses(records))
}

// handleAlerts is the unauthenticated panel snapshot: security codes only,
// never names or contact details.
func (h *Handler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.Alerts(r.Context())
	if err != nil {
		h.logFailure(r.Context(), "alerts snapshot", err)
		shared.WriteError(w, err)
		return
	}
	out := make([]map[string]string, 0, len(records))
	for _, record := range records {
		out = append(out, map[string]string{"securityCode": record.SecurityCode})
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) logFailure(ctx context.Context, op string, err error) {
	code := dErrors.CodeOf(err)
	attrs := []any{
		"request_id", middleware.GetRequestID(ctx),
		"code", string(code),
		"error", err.Error(),
	}
	switch code {
	case dErrors.CodeUnavailable, dErrors.CodeSpaceExhausted, dErrors.CodeInternal:
		h.logger.ErrorContext(ctx, op+" failed", attrs...)
	default:
		h.logger.WarnContext(ctx, op+" rejected", attrs...)
	}
}
