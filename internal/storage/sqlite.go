package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"pycheck/internal/checker"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS files (
			path TEXT PRIMARY KEY,
			hash TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS diagnostics (
			path TEXT NOT NULL,
			line INTEGER NOT NULL,
			col INTEGER NOT NULL,
			code TEXT NOT NULL,
			severity TEXT NOT NULL,
			message TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_diagnostics_path ON diagnostics(path);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// --- FingerprintStore Implementation ---

func (s *SQLiteStore) SaveFingerprint(ctx context.Context, path string, hash uint64) error {
	// SQLite INTEGER is signed 64-bit; store the hash as hex text to keep the
	// full range without sign games.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (path, hash) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET hash=excluded.hash
	`, path, fmt.Sprintf("%016x", hash))
	return err
}

func (s *SQLiteStore) LoadFingerprints(ctx context.Context) (map[string]uint64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path, hash FROM files")
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	out := make(map[string]uint64)
	for rows.Next() {
		var path, hex string
		if err := rows.Scan(&path, &hex); err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		var hash uint64
		if _, err := fmt.Sscanf(hex, "%x", &hash); err != nil {
			continue
		}
		out[path] = hash
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteFile(ctx context.Context, path string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE path = ?", path); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM diagnostics WHERE path = ?", path); err != nil {
		return err
	}
	return tx.Commit()
}

// --- DiagnosticStore Implementation ---

func (s *SQLiteStore) SaveDiagnostics(ctx context.Context, path string, diags []checker.Diagnostic) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM diagnostics WHERE path = ?", path); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO diagnostics (path, line, col, code, severity, message)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range diags {
		if _, err := stmt.Exec(path, d.Line, d.Col, d.Code, string(d.Severity), d.Message); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadDiagnostics(ctx context.Context, path string) ([]checker.Diagnostic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT line, col, code, severity, message FROM diagnostics
		WHERE path = ? ORDER BY line, col
	`, path)
	if err != nil {
		return nil, fmt.Errorf("failed to query diagnostics: %w", err)
	}
	defer rows.Close()

	var out []checker.Diagnostic
	for rows.Next() {
		d := checker.Diagnostic{File: path}
		var severity string
		if err := rows.Scan(&d.Line, &d.Col, &d.Code, &severity, &d.Message); err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic: %w", err)
		}
		d.Severity = checker.Severity(severity)
		out = append(out, d)
	}
	return out, rows.Err()
}
