package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
	"github.com/custodia-labs/linkdeck/internal/core/ports/driven"
)

// Ensure FlowJournal implements the interface.
var _ driven.FlowJournal = (*FlowJournal)(nil)

// FlowJournal is an in-memory implementation of driven.FlowJournal.
type FlowJournal struct {
	mu      sync.RWMutex
	results []domain.FlowResult
}

// NewFlowJournal creates a new in-memory flow journal.
func NewFlowJournal() *FlowJournal {
	return &FlowJournal{}
}

// Record stores a settled flow.
func (j *FlowJournal) Record(_ context.Context, result *domain.FlowResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = append(j.results, *result)
	return nil
}

// List returns recent flows, most recent first.
func (j *FlowJournal) List(_ context.Context, limit int) ([]domain.FlowResult, error) {
	j.mu.RLock()
	out := make([]domain.FlowResult, len(j.results))
	copy(out, j.results)
	j.mu.RUnlock()

	sortRecentFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Prune keeps the most recent 'keep' flows and deletes the rest.
func (j *FlowJournal) Prune(_ context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.results) <= keep {
		return nil
	}
	sortRecentFirst(j.results)
	j.results = append([]domain.FlowResult(nil), j.results[:keep]...)
	return nil
}

// sortRecentFirst orders by finish time, newest first. Ties keep insertion order reversed.
func sortRecentFirst(results []domain.FlowResult) {
	for i, k := 0, len(results)-1; i < k; i, k = i+1, k-1 {
		results[i], results[k] = results[k], results[i]
	}
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].FinishedAt.After(results[b].FinishedAt)
	})
}
