package driven

import (
	"context"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
)

// FlowJournal persists settled flow results.
type FlowJournal interface {
	// Record stores a settled flow.
	Record(ctx context.Context, result *domain.FlowResult) error

	// List returns recent flows, most recent first.
	// A limit of zero or less returns all flows.
	List(ctx context.Context, limit int) ([]domain.FlowResult, error)

	// Prune keeps the most recent 'keep' flows and deletes the rest.
	Prune(ctx context.Context, keep int) error
}
