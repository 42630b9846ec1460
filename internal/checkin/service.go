package checkin

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"kidgate/internal/checkin/metrics"
	"kidgate/internal/events"
	"kidgate/internal/media"
	"kidgate/pkg/domain"
	dErrors "kidgate/pkg/errors"
	"kidgate/pkg/platform/sentinel"
)

// Options tune the service; zero values get defaults.
type Options struct {
	// StoreTimeout bounds each registry operation.
	StoreTimeout time.Duration
	// CodeAttempts bounds security-code regeneration on collision.
	CodeAttempts int
	// PortalPageSize bounds the parent portal snapshot.
	PortalPageSize int
}

func (o Options) withDefaults() Options {
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = 5 * time.Second
	}
	if o.CodeAttempts <= 0 {
		o.CodeAttempts = 5
	}
	if o.PortalPageSize <= 0 {
		o.PortalPageSize = 20
	}
	return o
}

// Service owns the check-in lifecycle: creation with code generation,
// state-machine transitions, photo appends, and role snapshots. Events are
// published only after the store commit succeeds, and publishing can never
// fail or block the mutation.
type Service struct {
	store     Store
	publisher events.Publisher
	media     media.Store
	codes     *CodeGenerator
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	opts      Options

	now func() time.Time
}

func NewService(store Store, publisher events.Publisher, mediaStore media.Store,
	logger *slog.Logger, m *metrics.Metrics, opts Options) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		media:     mediaStore,
		codes:     NewCodeGenerator(),
		logger:    logger,
		metrics:   m,
		tracer:    otel.Tracer("kidgate/checkin"),
		opts:      opts.withDefaults(),
		now:       time.Now,
	}
}

// Create opens a presence session for the child. The security code is
// regenerated on collision with another live record, a bounded number of
// times; exhaustion is an operational alarm, not an expected path.
func (s *Service) Create(ctx context.Context, childID domain.ChildID, responsibleID domain.AdultID) (CheckIn, error) {
	ctx, span := s.tracer.Start(ctx, "checkin.create")
	defer span.End()

	if childID.IsNil() || responsibleID.IsNil() {
		return CheckIn{}, dErrors.New(dErrors.CodeBadRequest, "childId and responsibleId are required")
	}

	for attempt := 0; attempt < s.opts.CodeAttempts; attempt++ {
		record := CheckIn{
			ID:            domain.NewCheckInID(),
			ChildID:       childID,
			ResponsibleID: responsibleID,
			SecurityCode:  s.codes.Generate(),
			Status:        StatusActive,
			CheckinTime:   s.now().UTC(),
		}

		err := s.bounded(ctx, func(ctx context.Context) error {
			return s.store.Create(ctx, record)
		})
		switch {
		case err == nil:
			span.SetAttributes(attribute.String("check_in_id", record.ID.String()))
			s.publish(ctx, record, false)
			return record, nil
		case errors.Is(err, ErrChildActive):
			return CheckIn{}, dErrors.Wrap(dErrors.CodeDuplicateCheckIn,
				"child already has a live check-in", err)
		case errors.Is(err, ErrCodeTaken):
			s.metrics.CodeRetries.Inc()
			continue
		default:
			return CheckIn{}, s.translate(err)
		}
	}

	s.logger.ErrorContext(ctx, "security code space exhausted",
		"attempts", s.opts.CodeAttempts,
	)
	return CheckIn{}, dErrors.New(dErrors.CodeSpaceExhausted, "could not generate a unique security code")
}

// Transition applies a leader action. Idempotent no-ops (duplicate RaiseAlert)
// return the current record without a second side effect; illegal actions
// surface invalid-transition so stale clients force a re-sync.
func (s *Service) Transition(ctx context.Context, id domain.CheckInID, action Action) (CheckIn, error) {
	ctx, span := s.tracer.Start(ctx, "checkin.transition",
		trace.WithAttributes(attribute.String("action", string(action))))
	defer span.End()

	var (
		record  CheckIn
		prev    Status
		changed bool
	)
	err := s.bounded(ctx, func(ctx context.Context) error {
		var err error
		record, prev, changed, err = s.store.Transition(ctx, id, action, s.now())
		return err
	})
	if err != nil {
		switch {
		case dErrors.HasCode(err, dErrors.CodeInvalidTransition):
			s.metrics.Transitions.WithLabelValues(string(action), metrics.OutcomeInvalid).Inc()
			s.logger.WarnContext(ctx, "invalid transition attempted",
				"check_in_id", id.String(),
				"action", string(action),
			)
			return CheckIn{}, err
		default:
			s.metrics.Transitions.WithLabelValues(string(action), metrics.OutcomeError).Inc()
			return CheckIn{}, s.translate(err)
		}
	}

	if !changed {
		s.metrics.Transitions.WithLabelValues(string(action), metrics.OutcomeNoop).Inc()
		return record, nil
	}

	s.metrics.Transitions.WithLabelValues(string(action), metrics.OutcomeApplied).Inc()
	cleared := prev == StatusAlert && record.Status != StatusAlert
	if record.Status == StatusAlert {
		s.metrics.ActiveAlerts.Inc()
	} else if cleared {
		s.metrics.ActiveAlerts.Dec()
	}
	s.publish(ctx, record, cleared)
	return record, nil
}

// AppendPhoto stores the blob with the media backend and appends the
// resulting opaque reference. Completed records reject appends.
func (s *Service) AppendPhoto(ctx context.Context, id domain.CheckInID, data []byte, contentType string) (CheckIn, string, error) {
	ctx, span := s.tracer.Start(ctx, "checkin.append_photo")
	defer span.End()

	if len(data) == 0 {
		return CheckIn{}, "", dErrors.New(dErrors.CodeBadRequest, "photo payload is empty")
	}

	// Verify the record can still take photos before touching the media
	// backend, so a late upload leaves no orphan blob behind. The store
	// re-checks atomically on append.
	current, err := s.Get(ctx, id)
	if err != nil {
		return CheckIn{}, "", err
	}
	if !current.Live() {
		return CheckIn{}, "", dErrors.New(dErrors.CodeInvalidState, "check-in already completed")
	}

	ref, err := s.media.Put(ctx, data, contentType)
	if err != nil {
		return CheckIn{}, "", s.translate(err)
	}

	var record CheckIn
	err = s.bounded(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.store.AppendPhoto(ctx, id, ref)
		return err
	})
	if err != nil {
		return CheckIn{}, "", s.translate(err)
	}
	return record, ref, nil
}

// Get returns one record; operators use it to re-sync a stale view.
func (s *Service) Get(ctx context.Context, id domain.CheckInID) (CheckIn, error) {
	var record CheckIn
	err := s.bounded(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.store.Get(ctx, id)
		return err
	})
	if err != nil {
		return CheckIn{}, s.translate(err)
	}
	return record, nil
}

// LiveByResponsible is the parent portal snapshot: the family's live
// sessions, most recent first, bounded page.
func (s *Service) LiveByResponsible(ctx context.Context, responsibleID domain.AdultID) ([]CheckIn, error) {
	var records []CheckIn
	err := s.bounded(ctx, func(ctx context.Context) error {
		var err error
		records, err = s.store.ListLiveByResponsible(ctx, responsibleID, s.opts.PortalPageSize)
		return err
	})
	if err != nil {
		return nil, s.translate(err)
	}
	return records, nil
}

// Live is the leader console snapshot: every non-completed session.
func (s *Service) Live(ctx context.Context) ([]CheckIn, error) {
	var records []CheckIn
	err := s.bounded(ctx, func(ctx context.Context) error {
		var err error
		records, err = s.store.ListLive(ctx)
		return err
	})
	if err != nil {
		return nil, s.translate(err)
	}
	return records, nil
}

// Alerts is the public panel snapshot source: every alerting session.
func (s *Service) Alerts(ctx context.Context) ([]CheckIn, error) {
	var records []CheckIn
	err := s.bounded(ctx, func(ctx context.Context) error {
		var err error
		records, err = s.store.ListAlerts(ctx)
		return err
	})
	if err != nil {
		return nil, s.translate(err)
	}
	return records, nil
}

// bounded runs a store call under the configured timeout so no registry
// operation can hang a caller.
func (s *Service) bounded(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	return fn(ctx)
}

func (s *Service) publish(ctx context.Context, record CheckIn, alertCleared bool) {
	s.publisher.Publish(ctx, events.Event{
		CheckInID:     record.ID,
		ResponsibleID: record.ResponsibleID,
		SecurityCode:  record.SecurityCode,
		Status:        string(record.Status),
		Timestamp:     s.now().UTC(),
		AlertCleared:  alertCleared,
	})
}

// translate maps infrastructure sentinels onto domain codes. Errors that are
// already coded pass through untouched.
func (s *Service) translate(err error) error {
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(dErrors.CodeNotFound, "check-in not found", err)
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(dErrors.CodeInvalidState, "check-in already completed", err)
	case errors.Is(err, sentinel.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(dErrors.CodeUnavailable, "registry unavailable", err)
	default:
		return dErrors.Wrap(dErrors.CodeInternal, "registry failure", err)
	}
}
