package checkin

import (
	"context"
	"fmt"
	"time"

	"kidgate/pkg/domain"
	"kidgate/pkg/platform/sentinel"
)

// Store-level conflict errors. Both wrap sentinel.ErrConflict; the service
// translates them into distinct domain codes.
var (
	ErrChildActive = fmt.Errorf("child already has a live check-in: %w", sentinel.ErrConflict)
	ErrCodeTaken   = fmt.Errorf("security code already live: %w", sentinel.ErrConflict)
)

// Store is the authoritative check-in registry. Every method is atomic with
// respect to a single record; Transition serializes concurrent writers on the
// same record so that at most one of two racing transitions observes the
// pre-transition state.
type Store interface {
	// Create persists a new active record. Fails with ErrChildActive when
	// the child already has a non-completed record, ErrCodeTaken when the
	// security code collides with another live record.
	Create(ctx context.Context, record CheckIn) error

	Get(ctx context.Context, id domain.CheckInID) (CheckIn, error)

	// Transition atomically applies the state machine to the record and
	// reports the state it transitioned from. changed=false is an
	// idempotent no-op. Illegal actions surface the machine's
	// invalid-transition error against the state the record actually
	// holds, however stale the caller's view was.
	Transition(ctx context.Context, id domain.CheckInID, action Action, now time.Time) (record CheckIn, prev Status, changed bool, err error)

	// AppendPhoto adds a media reference; rejected on completed records
	// with sentinel.ErrInvalidState.
	AppendPhoto(ctx context.Context, id domain.CheckInID, photoRef string) (CheckIn, error)

	// ListLiveByResponsible returns the adult's non-completed records,
	// most recent first, capped at limit.
	ListLiveByResponsible(ctx context.Context, responsibleID domain.AdultID, limit int) ([]CheckIn, error)

	// ListLive returns every non-completed record, most recent first.
	// Feeds the leader console snapshot.
	ListLive(ctx context.Context) ([]CheckIn, error)

	// ListAlerts returns every record currently in alert state.
	ListAlerts(ctx context.Context) ([]CheckIn, error)

	// Health reports backend reachability.
	Health(ctx context.Context) error
}
