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

// Outcome records what the tick consumer did with a dispatch.
type Outcome string

const (
	// OutcomeDelivered means the command was forwarded to the sink.
	OutcomeDelivered Outcome = "delivered"

	// OutcomeDropped means the command was dequeued while the engine was not ready.
	OutcomeDropped Outcome = "dropped"
)

// SaveTree replaces the stored configuration tree with t.
//
// The tree is validated first; an invalid tree leaves the store untouched.
// Nodes are written in pre-order inside one transaction.
func (s *Store) SaveTree(ctx context.Context, t *macro.Tree) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("save tree: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save tree: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes`); err != nil {
		return fmt.Errorf("save tree: clear nodes: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes (id, parent_id, position, kind, name, contents)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("save tree: prepare: %w", err)
	}
	defer stmt.Close()

	position := 0
	var walkErr error
	t.Walk(func(n macro.Node, parent *macro.Folder) bool {
		var parentID sql.NullString
		if parent != nil {
			parentID = sql.NullString{String: parent.ID, Valid: true}
		}

		contents := ""
		if n.Kind == macro.KindMacro {
			contents = n.Macro.Contents
		}

		if _, err := stmt.ExecContext(ctx, n.ID(), parentID, position, n.Kind.String(), n.Name(), contents); err != nil {
			walkErr = fmt.Errorf("save tree: insert node %s: %w", n.ID(), err)
			return false
		}
		position++
		return true
	})
	if walkErr != nil {
		return walkErr
	}

	meta := map[string]string{
		"version":    strconv.Itoa(t.Version),
		"max_length": strconv.Itoa(t.MaxLength),
	}
	for key, value := range meta {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tree_meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value); err != nil {
			return fmt.Errorf("save tree: write %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save tree: commit: %w", err)
	}
	return nil
}

// WriteRunStarted records a newly spawned run.
// Uses ON CONFLICT(run_id) DO NOTHING, so a repeated notification is ignored.
func (s *Store) WriteRunStarted(ctx context.Context, info engine.RunInfo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, macro_id, macro_name, seq, lines, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`,
		info.RunID,
		info.MacroID,
		info.MacroName,
		info.Seq,
		info.Lines,
		info.Status.String(),
		formatTime(info.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("write run started: %w", err)
	}
	return nil
}

// WriteRunFinished records the terminal status of a run.
// If the start was never recorded, the run row is created from info.
func (s *Store) WriteRunFinished(ctx context.Context, info engine.RunInfo, finishedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, macro_id, macro_name, seq, lines, status, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			status = excluded.status,
			finished_at = excluded.finished_at
	`,
		info.RunID,
		info.MacroID,
		info.MacroName,
		info.Seq,
		info.Lines,
		info.Status.String(),
		formatTime(info.StartedAt),
		formatTime(finishedAt),
	)
	if err != nil {
		return fmt.Errorf("write run finished: %w", err)
	}
	return nil
}

// WriteDispatch records one dispatch and what happened to it.
// Uses ON CONFLICT(seq) DO NOTHING for idempotency.
func (s *Store) WriteDispatch(ctx context.Context, d engine.Dispatch, outcome Outcome) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dispatches (seq, run_id, macro_id, command, outcome)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`,
		d.Seq,
		d.RunID,
		d.MacroID,
		d.Command,
		string(outcome),
	)
	if err != nil {
		return fmt.Errorf("write dispatch: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
