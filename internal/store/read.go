package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/macrology/internal/engine"
	"github.com/roach88/macrology/internal/macro"
)

// Run is a journaled run as stored.
type Run struct {
	RunID      string     `json:"run_id"`
	MacroID    string     `json:"macro_id"`
	MacroName  string     `json:"macro_name"`
	Seq        int64      `json:"seq"`
	Lines      int        `json:"lines"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// DispatchRecord is a journaled dispatch with its outcome.
type DispatchRecord struct {
	engine.Dispatch
	Outcome Outcome `json:"outcome"`
}

// LoadTree reads the stored configuration tree.
// An empty store yields an empty tree with default settings.
func (s *Store) LoadTree(ctx context.Context) (*macro.Tree, error) {
	t := macro.NewTree()
	if err := s.readTreeMeta(ctx, t); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_id, kind, name, contents
		FROM nodes
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	folders := make(map[string]*macro.Folder)
	for rows.Next() {
		var (
			id, kindName, name, contents string
			parentID                     sql.NullString
		)
		if err := rows.Scan(&id, &parentID, &kindName, &name, &contents); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}

		kind, err := macro.ParseKind(kindName)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}

		var n macro.Node
		if kind == macro.KindFolder {
			f := &macro.Folder{ID: id, Name: name}
			folders[id] = f
			n = macro.FolderNode(f)
		} else {
			n = macro.MacroNode(&macro.Macro{ID: id, Name: name, Contents: contents})
		}

		if !parentID.Valid {
			t.Nodes = append(t.Nodes, n)
			continue
		}
		parent, ok := folders[parentID.String]
		if !ok {
			return nil, fmt.Errorf("node %s: parent %s not loaded before child", id, parentID.String)
		}
		parent.Children = append(parent.Children, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}

	return t, nil
}

func (s *Store) readTreeMeta(ctx context.Context, t *macro.Tree) error {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM tree_meta`)
	if err != nil {
		return fmt.Errorf("query tree meta: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scan tree meta: %w", err)
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("tree meta %s: %w", key, err)
		}
		switch key {
		case "version":
			t.Version = n
		case "max_length":
			t.MaxLength = n
		}
	}
	return rows.Err()
}

// ListRuns returns the most recent runs, oldest first.
// limit <= 0 returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT run_id, macro_id, macro_name, seq, lines, status, started_at, finished_at
		FROM (
			SELECT * FROM runs ORDER BY seq DESC LIMIT ?
		)
		ORDER BY seq ASC
	`
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, macro_id, macro_name, seq, lines, status, started_at, finished_at
		FROM runs
		WHERE run_id = ?
	`, runID)
	return scanRun(row)
}

// ListDispatches returns journaled dispatches ordered by seq.
// An empty runID returns the dispatches of every run.
func (s *Store) ListDispatches(ctx context.Context, runID string) ([]DispatchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, run_id, macro_id, command, outcome
		FROM dispatches
		WHERE ? = '' OR run_id = ?
		ORDER BY seq ASC
	`, runID, runID)
	if err != nil {
		return nil, fmt.Errorf("query dispatches: %w", err)
	}
	defer rows.Close()

	records := []DispatchRecord{}
	for rows.Next() {
		var (
			rec     DispatchRecord
			outcome string
		)
		if err := rows.Scan(&rec.Seq, &rec.RunID, &rec.MacroID, &rec.Command, &outcome); err != nil {
			return nil, fmt.Errorf("scan dispatch: %w", err)
		}
		rec.Outcome = Outcome(outcome)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatches: %w", err)
	}
	return records, nil
}

// LastSeq returns the highest seq recorded in the journal, or 0 if empty.
// A clock resumed from this value keeps seqs unique across sessions.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM (
			SELECT seq FROM runs
			UNION ALL
			SELECT seq FROM dispatches
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq.Int64, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r          Run
		startedAt  string
		finishedAt sql.NullString
	)
	if err := row.Scan(&r.RunID, &r.MacroID, &r.MacroName, &r.Seq, &r.Lines, &r.Status, &startedAt, &finishedAt); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("run %s: started_at: %w", r.RunID, err)
	}
	r.StartedAt = t

	if finishedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, finishedAt.String)
		if err != nil {
			return Run{}, fmt.Errorf("run %s: finished_at: %w", r.RunID, err)
		}
		r.FinishedAt = &t
	}
	return r, nil
}
