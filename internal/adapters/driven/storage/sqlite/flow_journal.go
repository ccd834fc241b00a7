package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
	"github.com/custodia-labs/linkdeck/internal/core/ports/driven"
)

// flowJournal implements driven.FlowJournal.
type flowJournal struct {
	store *Store
}

var _ driven.FlowJournal = (*flowJournal)(nil)

// Record stores a settled flow.
func (j *flowJournal) Record(ctx context.Context, result *domain.FlowResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}

	_, err := j.store.db.ExecContext(ctx, `
		INSERT INTO flow_journal (flow_id, provider, kind, outcome, ok, detail, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, nullString(result.FlowID), string(result.Provider), string(result.Kind), string(result.Outcome),
		boolToInt(result.OK), nullString(result.Detail),
		unixMillis(result.StartedAt), unixMillis(result.FinishedAt))
	if err != nil {
		return fmt.Errorf("recording flow: %w", err)
	}
	return nil
}

// List returns recent flows, most recent first.
func (j *flowJournal) List(ctx context.Context, limit int) ([]domain.FlowResult, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := j.store.db.QueryContext(ctx, `
		SELECT flow_id, provider, kind, outcome, ok, detail, started_at, finished_at
		FROM flow_journal
		ORDER BY finished_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying flow journal: %w", err)
	}
	defer rows.Close()

	var results []domain.FlowResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		var r domain.FlowResult
		var flowID, detail sql.NullString
		var provider, kind, outcome string
		var ok int
		var started, finished int64

		if err := rows.Scan(&flowID, &provider, &kind, &outcome, &ok, &detail, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning flow: %w", err)
		}
		r.FlowID = flowID.String
		r.Provider = domain.Provider(provider)
		r.Kind = domain.FlowKind(kind)
		r.Outcome = domain.Outcome(outcome)
		r.OK = ok == 1
		r.Detail = detail.String
		r.StartedAt = fromUnixMillis(started)
		r.FinishedAt = fromUnixMillis(finished)
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating flow journal: %w", err)
	}
	return results, nil
}

// Prune keeps the most recent 'keep' flows and deletes the rest.
func (j *flowJournal) Prune(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	_, err := j.store.db.ExecContext(ctx, `
		DELETE FROM flow_journal
		WHERE id NOT IN (
			SELECT id FROM flow_journal
			ORDER BY finished_at DESC, id DESC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning flow journal: %w", err)
	}
	return nil
}

func unixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
