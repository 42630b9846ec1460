package domain

import "github.com/google/uuid"

// Text marshaling so the typed IDs serialize as canonical UUID strings in
// JSON payloads and map keys.

func (id CheckInID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(id).String()), nil
}

func (id *CheckInID) UnmarshalText(data []byte) error {
	parsed, err := ParseCheckInID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ChildID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(id).String()), nil
}

func (id *ChildID) UnmarshalText(data []byte) error {
	parsed, err := ParseChildID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id AdultID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(id).String()), nil
}

func (id *AdultID) UnmarshalText(data []byte) error {
	parsed, err := ParseAdultID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
