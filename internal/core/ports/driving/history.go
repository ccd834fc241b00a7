package driving

import (
	"context"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
)

// HistoryService reads settled flows.
type HistoryService interface {
	// Recent returns up to limit settled flows, most recent first.
	Recent(ctx context.Context, limit int) ([]domain.FlowResult, error)
}
