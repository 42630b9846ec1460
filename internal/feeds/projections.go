package feeds

import (
	"context"
	"time"

	"kidgate/internal/checkin"
	"kidgate/internal/identity"
)

// Projections per role. The panel view is the only one deliberately lossy:
// security codes stand in for identity on the unattended screen.

type consoleEntry struct {
	ID            string     `json:"id"`
	ChildID       string     `json:"childId"`
	ChildName     string     `json:"childName,omitempty"`
	ResponsibleID string     `json:"responsibleId"`
	SecurityCode  string     `json:"securityCode"`
	Status        string     `json:"status"`
	CheckinTime   time.Time  `json:"checkinTime"`
	CheckoutTime  *time.Time `json:"checkoutTime,omitempty"`
}

type familyEntry struct {
	ID           string    `json:"id"`
	ChildID      string    `json:"childId"`
	SecurityCode string    `json:"securityCode"`
	Status       string    `json:"status"`
	CheckinTime  time.Time `json:"checkinTime"`
	Alerting     bool      `json:"alerting"`
}

type panelEvent struct {
	SecurityCode string    `json:"securityCode"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
}

type panelEntry struct {
	SecurityCode string `json:"securityCode"`
}

// toConsoleSnapshot enriches entries with child display names, best effort: a
// directory miss or outage leaves the name empty rather than failing the feed.
func toConsoleSnapshot(ctx context.Context, children identity.ChildDirectory, records []checkin.CheckIn) []consoleEntry {
	out := make([]consoleEntry, 0, len(records))
	for _, r := range records {
		var name string
		if children != nil {
			name, _ = children.DisplayName(ctx, r.ChildID)
		}
		out = append(out, consoleEntry{
			ID:            r.ID.String(),
			ChildID:       r.ChildID.String(),
			ChildName:     name,
			ResponsibleID: r.ResponsibleID.String(),
			SecurityCode:  r.SecurityCode,
			Status:        string(r.Status),
			CheckinTime:   r.CheckinTime,
			CheckoutTime:  r.CheckoutTime,
		})
	}
	return out
}

func toFamilySnapshot(records []checkin.CheckIn) []familyEntry {
	out := make([]familyEntry, 0, len(records))
	for _, r := range records {
		out = append(out, familyEntry{
			ID:           r.ID.String(),
			ChildID:      r.ChildID.String(),
			SecurityCode: r.SecurityCode,
			Status:       string(r.Status),
			CheckinTime:  r.CheckinTime,
			Alerting:     r.Status == checkin.StatusAlert,
		})
	}
	return out
}

func toPanelSnapshot(records []checkin.CheckIn) []panelEntry {
	out := make([]panelEntry, 0, len(records))
	for _, r := range records {
		out = append(out, panelEntry{SecurityCode: r.SecurityCode})
	}
	return out
}
