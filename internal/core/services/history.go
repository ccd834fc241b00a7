package services

import (
	"context"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
	"github.com/custodia-labs/linkdeck/internal/core/ports/driven"
	"github.com/custodia-labs/linkdeck/internal/core/ports/driving"
)

// Ensure HistoryService implements the interface.
var _ driving.HistoryService = (*HistoryService)(nil)

// DefaultHistoryLimit is used when callers pass a non-positive limit.
const DefaultHistoryLimit = 20

// HistoryService reads settled flows from the journal.
type HistoryService struct {
	journal driven.FlowJournal
}

// NewHistoryService creates a history service.
func NewHistoryService(journal driven.FlowJournal) *HistoryService {
	return &HistoryService{journal: journal}
}

// Recent returns up to limit settled flows, most recent first.
func (s *HistoryService) Recent(ctx context.Context, limit int) ([]domain.FlowResult, error) {
	if s.journal == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.journal.List(ctx, limit)
}
