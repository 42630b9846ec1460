// Package feeds exposes the three read-model projections (leader console,
// parent portal, public alert panel) as server-sent event streams over one
// canonical broker. Each stream opens with a snapshot, pushes change events,
// and repeats the snapshot on a fixed cadence as the staleness backstop.
package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kidgate/internal/checkin"
	"kidgate/internal/events"
	"kidgate/internal/identity"
	"kidgate/internal/platform/middleware"
	"kidgate/pkg/domain"
)

// Snapshots is the registry read side the projections are built from.
type Snapshots interface {
	Live(ctx context.Context) ([]checkin.CheckIn, error)
	LiveByResponsible(ctx context.Context, responsibleID domain.AdultID) ([]checkin.CheckIn, error)
	Alerts(ctx context.Context) ([]checkin.CheckIn, error)
}

// Handler serves the subscription channel. A subscription lives exactly as
// long as its HTTP request: disconnect cancels the request context, the
// broker slot is released, nothing is replayed.
type Handler struct {
	snapshots    Snapshots
	broker       *events.Broker
	children     identity.ChildDirectory
	portal       middleware.PortalValidator
	logger       *slog.Logger
	syncInterval time.Duration
}

// New builds the feed handler. children may be nil; console entries then carry
// IDs without display names.
func New(snapshots Snapshots, broker *events.Broker, children identity.ChildDirectory,
	portal middleware.PortalValidator, logger *slog.Logger, syncInterval time.Duration) *Handler {
	if syncInterval <= 0 {
		syncInterval = 30 * time.Second
	}
	return &Handler{
		snapshots:    snapshots,
		broker:       broker,
		children:     children,
		portal:       portal,
		logger:       logger,
		syncInterval: syncInterval,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/subscribe", h.handleSubscribe)
}

// handleSubscribe negotiates the subscriber role: a valid portal bearer token
// scopes the stream to that family; otherwise filter=all (leader console) or
// filter=alerts (public panel). The alerts stream carries security codes
// only.
func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.negotiateFilter(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusNotAcceptable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sub := h.broker.Subscribe(filter)
	defer sub.Close()

	ctx := r.Context()
	if err := h.writeSnapshot(ctx, w, filter); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(h.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := writeSSE(w, "change", h.eventPayload(filter, event)); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if err := h.writeSnapshot(ctx, w, filter); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *Handler) negotiateFilter(w http.ResponseWriter, r *http.Request) (events.Filter, bool) {
	if r.Header.Get("Authorization") != "" {
		token := middleware.BearerToken(r)
		if token == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return events.Filter{}, false
		}
		claims, err := h.portal.ValidateToken(token)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return events.Filter{}, false
		}
		return events.Filter{Kind: events.FilterResponsible, ResponsibleID: claims.ResponsibleID}, true
	}

	switch r.URL.Query().Get("filter") {
	case "alerts":
		return events.Filter{Kind: events.FilterAlerts}, true
	case "all", "":
		return events.Filter{Kind: events.FilterAll}, true
	default:
		w.WriteHeader(http.StatusBadRequest)
		return events.Filter{}, false
	}
}

// writeSnapshot emits the role's full current view. Snapshot failures end the
// stream; the client reconnects and re-establishes state from scratch.
func (h *Handler) writeSnapshot(ctx context.Context, w http.ResponseWriter, filter events.Filter) error {
	var (
		payload any
		err     error
	)
	switch filter.Kind {
	case events.FilterAlerts:
		var records []checkin.CheckIn
		records, err = h.snapshots.Alerts(ctx)
		payload = toPanelSnapshot(records)
	case events.FilterResponsible:
		var records []checkin.CheckIn
		records, err = h.snapshots.LiveByResponsible(ctx, filter.ResponsibleID)
		payload = toFamilySnapshot(records)
	default:
		var records []checkin.CheckIn
		records, err = h.snapshots.Live(ctx)
		payload = toConsoleSnapshot(ctx, h.children, records)
	}
	if err != nil {
		h.logger.WarnContext(ctx, "snapshot for feed failed",
			"filter", string(filter.Kind),
			"error", err.Error(),
		)
		return err
	}
	return writeSSE(w, "snapshot", payload)
}

func (h *Handler) eventPayload(filter events.Filter, event events.Event) any {
	if filter.Kind == events.FilterAlerts {
		return panelEvent{
			SecurityCode: event.SecurityCode,
			Status:       event.Status,
			Timestamp:    event.Timestamp,
		}
	}
	return event
}

func writeSSE(w http.ResponseWriter, eventName string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventName, data)
	return err
}
