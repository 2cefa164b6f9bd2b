package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/colonyops/evolve/internal/core/evolution"
)

// ErrNotFound is returned when no journal entry matches.
var ErrNotFound = errors.New("journal entry not found")

// Journal implements evolution.Journal on SQLite.
type Journal struct {
	db *DB
}

var _ evolution.Journal = (*Journal)(nil)

func NewJournal(db *DB) *Journal {
	return &Journal{db: db}
}

// Record inserts entry, assigning an ID when it has none.
func (j *Journal) Record(ctx context.Context, entry evolution.JournalEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.StartedAt.IsZero() {
		entry.StartedAt = time.Now()
	}

	_, err := j.db.conn.ExecContext(ctx, `
		INSERT INTO attempts (id, task, title, version, attempt, status, error, script, detail, started_at, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Task, entry.Title, entry.Version, entry.Attempt, string(entry.Status),
		entry.Error, entry.Script, entry.Detail, entry.StartedAt.UnixNano(), int64(entry.Duration),
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Task   int
	Status evolution.EntryStatus
	Limit  int
}

const selectColumns = `SELECT id, task, title, version, attempt, status, error, script, detail, started_at, duration_ns FROM attempts`

// List returns entries newest first.
func (j *Journal) List(ctx context.Context, filter ListFilter) ([]evolution.JournalEntry, error) {
	var (
		where []string
		args  []any
	)
	if filter.Task > 0 {
		where = append(where, "task = ?")
		args = append(args, filter.Task)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := j.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []evolution.JournalEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Get returns the entry with id, or the single entry whose id starts with
// id when it is an unambiguous prefix.
func (j *Journal) Get(ctx context.Context, id string) (evolution.JournalEntry, error) {
	rows, err := j.db.conn.QueryContext(ctx, selectColumns+" WHERE id LIKE ? ESCAPE '\\' LIMIT 2", escapeLike(id)+"%")
	if err != nil {
		return evolution.JournalEntry{}, fmt.Errorf("failed to get attempt: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var found []evolution.JournalEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return evolution.JournalEntry{}, err
		}
		found = append(found, entry)
	}
	if err := rows.Err(); err != nil {
		return evolution.JournalEntry{}, err
	}

	switch len(found) {
	case 0:
		return evolution.JournalEntry{}, ErrNotFound
	case 1:
		return found[0], nil
	default:
		for _, e := range found {
			if e.ID == id {
				return e, nil
			}
		}
		return evolution.JournalEntry{}, fmt.Errorf("id prefix %q is ambiguous", id)
	}
}

// Reset drops every entry by rebuilding the schema and reports how many
// entries were removed.
func (j *Journal) Reset(ctx context.Context) (int, error) {
	var count int
	if err := j.db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM attempts").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	if err := resetSchema(ctx, j.db.conn); err != nil {
		return 0, fmt.Errorf("failed to reset journal: %w", err)
	}
	return count, nil
}

func scanEntry(rows *sql.Rows) (evolution.JournalEntry, error) {
	var (
		entry     evolution.JournalEntry
		status    string
		startedAt int64
		duration  int64
	)

	err := rows.Scan(&entry.ID, &entry.Task, &entry.Title, &entry.Version, &entry.Attempt,
		&status, &entry.Error, &entry.Script, &entry.Detail, &startedAt, &duration)
	if err != nil {
		return evolution.JournalEntry{}, fmt.Errorf("failed to scan attempt: %w", err)
	}

	entry.Status = evolution.EntryStatus(status)
	entry.StartedAt = time.Unix(0, startedAt)
	entry.Duration = time.Duration(duration)

	return entry, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
