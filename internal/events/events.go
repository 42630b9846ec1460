// Package events fans state-change notifications out to live subscribers.
// Delivery is at-least-once per subscription and intentionally lossy under
// backpressure: events are hints to re-fetch, and every feed re-snapshots on a
// fixed cadence, so a dropped event costs latency, never correctness.
package events

import (
	"time"

	"kidgate/pkg/domain"
)

// Event is the wire-level state-change notification.
type Event struct {
	CheckInID     domain.CheckInID `json:"checkInId"`
	ResponsibleID domain.AdultID   `json:"responsibleId"`
	SecurityCode  string           `json:"securityCode"`
	Status        string           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`

	// AlertCleared marks transitions that removed a record from the alert
	// panel, so alert-scoped subscribers hear about resolutions and
	// checkouts of alerting children, not just raises.
	AlertCleared bool `json:"alertCleared,omitempty"`
}

// FilterKind selects a subscriber role.
type FilterKind string

const (
	// FilterAll: leader console, every event.
	FilterAll FilterKind = "all"
	// FilterAlerts: public panel, alert raises and clears only.
	FilterAlerts FilterKind = "alerts"
	// FilterResponsible: parent portal, one family's events.
	FilterResponsible FilterKind = "responsible"
)

// Filter scopes a subscription to its role's slice of the stream.
type Filter struct {
	Kind          FilterKind
	ResponsibleID domain.AdultID
}

// Matches reports whether the subscription should see the event.
func (f Filter) Matches(e Event) bool {
	switch f.Kind {
	case FilterAll:
		return true
	case FilterAlerts:
		return e.Status == "alert" || e.AlertCleared
	case FilterResponsible:
		return e.ResponsibleID == f.ResponsibleID
	default:
		return false
	}
}
