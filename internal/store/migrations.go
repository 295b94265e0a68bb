package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// migration is one schema step. Steps run in order, each in its own
// transaction, and are recorded in the migrations table.
type migration struct {
	version int
	name    string
	stmts   []string
}

// migrations mirror the procedure signature revisions: version 2 adds the
// agent, tool, intent and focus labels.
var migrations = []migration{
	{1, "initial schema", initialSchema},
	{2, "agent labels", []string{
		`ALTER TABLE clientes ADD COLUMN nome_agente TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE conta_tokens ADD COLUMN nome_agente TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE conta_tokens ADD COLUMN nome_tool TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE conta_tokens ADD COLUMN intencao TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE conta_tokens ADD COLUMN foco TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE controle_financ ADD COLUMN nome_agente TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE controle_financ ADD COLUMN nome_tool TEXT NOT NULL DEFAULT ''`,
	}},
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.writer.ExecContext(ctx, schemaMigrations); err != nil {
		return fmt.Errorf("store: create migrations table: %w", err)
	}
	applied, err := s.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("store: read migrations: %w", err)
	}
	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return fmt.Errorf("store: migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

func (s *Store) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := s.writer.QueryContext(ctx, "SELECT version FROM migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (s *Store) apply(ctx context.Context, m migration) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range m.stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if err := record(ctx, tx, m); err != nil {
		return err
	}
	return tx.Commit()
}

func record(ctx context.Context, tx *sql.Tx, m migration) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO migrations (version, name, applied_at) VALUES (?, ?, ?)",
		m.version, m.name, time.Now().UTC().Format(time.RFC3339))
	return err
}

// SchemaVersion returns the newest applied migration, 0 when none ran.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.reader.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("store: schema version: %w", err)
	}
	return v, nil
}
