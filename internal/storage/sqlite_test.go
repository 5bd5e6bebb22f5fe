package storage

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pycheck/internal/checker"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SaveAndLoadFingerprints(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveFingerprint(ctx, "a.py", 42))
	require.NoError(t, store.SaveFingerprint(ctx, "b.py", math.MaxUint64))

	known, err := store.LoadFingerprints(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"a.py": 42, "b.py": math.MaxUint64}, known)
}

func TestSQLiteStore_SaveFingerprintUpserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveFingerprint(ctx, "a.py", 1))
	require.NoError(t, store.SaveFingerprint(ctx, "a.py", 2))

	known, err := store.LoadFingerprints(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"a.py": 2}, known)
}

func TestSQLiteStore_SaveAndLoadDiagnostics(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	diags := []checker.Diagnostic{
		{File: "a.py", Line: 3, Col: 1, Code: "unresolved-reference", Severity: checker.SeverityError, Message: `name "x" is not defined`},
		{File: "a.py", Line: 1, Col: 5, Code: "possibly-unresolved-reference", Severity: checker.SeverityWarning, Message: `name "y" may be undefined`},
	}
	require.NoError(t, store.SaveDiagnostics(ctx, "a.py", diags))

	loaded, err := store.LoadDiagnostics(ctx, "a.py")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	// Diagnostics come back in position order regardless of insert order.
	assert.Equal(t, diags[1], loaded[0])
	assert.Equal(t, diags[0], loaded[1])
}

func TestSQLiteStore_SaveDiagnosticsReplacesPrevious(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := []checker.Diagnostic{
		{File: "a.py", Line: 1, Col: 1, Code: "invalid-base", Severity: checker.SeverityError, Message: "old"},
	}
	require.NoError(t, store.SaveDiagnostics(ctx, "a.py", old))
	require.NoError(t, store.SaveDiagnostics(ctx, "a.py", nil))

	loaded, err := store.LoadDiagnostics(ctx, "a.py")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSQLiteStore_DeleteFile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveFingerprint(ctx, "a.py", 1))
	require.NoError(t, store.SaveFingerprint(ctx, "b.py", 2))
	require.NoError(t, store.SaveDiagnostics(ctx, "a.py", []checker.Diagnostic{
		{File: "a.py", Line: 1, Col: 1, Code: "invalid-base", Severity: checker.SeverityError, Message: "m"},
	}))

	require.NoError(t, store.DeleteFile(ctx, "a.py"))

	known, err := store.LoadFingerprints(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"b.py": 2}, known)

	loaded, err := store.LoadDiagnostics(ctx, "a.py")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveFingerprint(ctx, "a.py", 7))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	known, err := reopened.LoadFingerprints(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"a.py": 7}, known)
}
