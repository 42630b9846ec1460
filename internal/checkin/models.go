package checkin

import (
	"time"

	"kidgate/pkg/domain"
)

// Status is the lifecycle state of a presence session.
type Status string

const (
	// StatusActive: child is on premises, no outstanding summons.
	StatusActive Status = "active"
	// StatusAlert: the responsible adult has been summoned for pickup.
	StatusAlert Status = "alert"
	// StatusCompleted: child was picked up. Terminal.
	StatusCompleted Status = "completed"
)

// Action is a leader-initiated lifecycle transition.
type Action string

const (
	ActionRaiseAlert   Action = "raise_alert"
	ActionResolveAlert Action = "resolve_alert"
	ActionCheckOut     Action = "check_out"
)

// CheckIn is one child's presence session from drop-off to pick-up. Records
// are retained forever as an audit trail; there is no delete path.
type CheckIn struct {
	ID            domain.CheckInID
	ChildID       domain.ChildID
	ResponsibleID domain.AdultID

	// SecurityCode is the pickup verification code shown on the public
	// panel. Unique among non-completed records only; reusable afterwards.
	SecurityCode string

	Status       Status
	CheckinTime  time.Time
	CheckoutTime *time.Time

	// Photos holds opaque media references, append-only until completion.
	Photos []string
}

// Live reports whether the record still occupies the child's single
// concurrent-session slot.
func (c CheckIn) Live() bool {
	return c.Status != StatusCompleted
}
