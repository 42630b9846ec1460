// Package domain holds typed identifiers shared across slices. Distinct UUID
// wrappers keep a ChildID from ever being passed where an AdultID belongs.
package domain

import (
	"github.com/google/uuid"

	dErrors "kidgate/pkg/errors"
)

// CheckInID identifies one presence session.
type CheckInID uuid.UUID

// ChildID references a child record owned by the external dependent directory.
type ChildID uuid.UUID

// AdultID references a responsible adult owned by the external family directory.
type AdultID uuid.UUID

// NewCheckInID mints a fresh check-in identifier.
func NewCheckInID() CheckInID { return CheckInID(uuid.New()) }

func (id CheckInID) String() string { return uuid.UUID(id).String() }
func (id CheckInID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id ChildID) String() string { return uuid.UUID(id).String() }
func (id ChildID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id AdultID) String() string { return uuid.UUID(id).String() }
func (id AdultID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// ParseCheckInID parses and validates a check-in ID at a trust boundary.
func ParseCheckInID(s string) (CheckInID, error) {
	u, err := parse(s, "check-in id")
	return CheckInID(u), err
}

// ParseChildID parses and validates a child ID at a trust boundary.
func ParseChildID(s string) (ChildID, error) {
	u, err := parse(s, "child id")
	return ChildID(u), err
}

// ParseAdultID parses and validates a responsible-adult ID at a trust boundary.
func ParseAdultID(s string) (AdultID, error) {
	u, err := parse(s, "adult id")
	return AdultID(u), err
}

func parse(s, label string) (uuid.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, label+" must not be nil")
	}
	return u, nil
}
