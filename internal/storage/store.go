package storage

import (
	"context"

	"pycheck/internal/checker"
)

// Store persists per-file fingerprints and cached diagnostics between runs.
type Store interface {
	FingerprintStore
	DiagnosticStore
	Close() error
}

// FingerprintStore defines operations for tracking file content hashes.
type FingerprintStore interface {
	// SaveFingerprint upserts the content hash recorded for a file.
	SaveFingerprint(ctx context.Context, path string, hash uint64) error

	// LoadFingerprints retrieves every recorded path → hash pair.
	LoadFingerprints(ctx context.Context) (map[string]uint64, error)

	// DeleteFile removes the fingerprint and diagnostics for a file.
	DeleteFile(ctx context.Context, path string) error
}

// DiagnosticStore defines operations for caching check results.
type DiagnosticStore interface {
	// SaveDiagnostics replaces the cached diagnostics for a file.
	SaveDiagnostics(ctx context.Context, path string, diags []checker.Diagnostic) error

	// LoadDiagnostics retrieves the cached diagnostics for a file.
	LoadDiagnostics(ctx context.Context, path string) ([]checker.Diagnostic, error)
}
