package persist

import (
	"context"
	"fmt"
)

// JournalRepo appends combat log lines to combat_journal. It is an audit
// trail; nothing reads it back.
type JournalRepo struct {
	db        *DB
	sessionID string
}

// NewJournalRepo tags every row with sessionID, one per server run.
func NewJournalRepo(db *DB, sessionID string) *JournalRepo {
	return &JournalRepo{db: db, sessionID: sessionID}
}

// Append writes lines in order in a single transaction.
func (r *JournalRepo) Append(ctx context.Context, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, line := range lines {
		if _, err := tx.Exec(ctx,
			`INSERT INTO combat_journal (session_id, line) VALUES ($1, $2)`,
			r.sessionID, line,
		); err != nil {
			return fmt.Errorf("journal insert: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// Lines returns the journal of the repo's session in insertion order.
func (r *JournalRepo) Lines(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT line FROM combat_journal WHERE session_id = $1 ORDER BY seq`, r.sessionID)
	if err != nil {
		return nil, fmt.Errorf("journal query: %w", err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
