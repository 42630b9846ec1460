package identity

import (
	"context"

	"kidgate/pkg/domain"
)

// Directory is the read-only port onto the external family/person service.
// Candidates may over-return (any record loosely touching the digit fragment);
// the Resolver applies the exact matching policy. Implementations must treat
// the fragment as already digit-normalized.
type Directory interface {
	Candidates(ctx context.Context, digits string) ([]ResponsibleAdult, error)
	FindByID(ctx context.Context, id domain.AdultID) (ResponsibleAdult, error)
}

// ChildDirectory resolves child display names for leader-console payloads.
// Child records are owned externally; only the name crosses the boundary.
type ChildDirectory interface {
	DisplayName(ctx context.Context, id domain.ChildID) (string, error)
}
