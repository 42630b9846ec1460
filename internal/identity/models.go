package identity

import "kidgate/pkg/domain"

// ResponsibleAdult mirrors the external family directory's record. Consumed
// read-only; this service never mutates directory data.
type ResponsibleAdult struct {
	ID           domain.AdultID
	FullName     string
	PhoneNumbers []string
	NationalID   string
}
