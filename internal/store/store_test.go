package store

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// Verify file was created
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	var count int
	err = s2.db.QueryRow("SELECT COUNT(*) FROM tested").Scan(&count)
	if err != nil {
		t.Errorf("query failed: %v", err)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	tables := []string{"tested", "stats"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	path := "/nonexistent/dir/test.db"

	_, err := Open(path)
	require.Error(t, err)
	assert.True(t, IsOpenError(err), "expected STORE_OPEN, got %v", err)
	assert.False(t, IsCorrupt(err))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "test.db"), WithDriver("postgres"))
	require.Error(t, err)
	assert.True(t, IsOpenError(err))
}

func TestOpen_NotADatabase(t *testing.T) {
	for _, driver := range []string{DriverCGO, DriverPure} {
		t.Run(driver, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "garbage.db")
			require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("not a sqlite file! "), 512), 0644))

			_, err := Open(path, WithDriver(driver))
			require.Error(t, err)
			assert.True(t, IsCorrupt(err), "expected CORRUPT_STORE, got %v", err)
		})
	}
}

func TestOpen_UndecodableStatsRowIsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec(`INSERT INTO stats (key, value) VALUES ('all_time_stats', '{not json')`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.True(t, IsCorrupt(err))
}

func TestOpen_NewerSchemaRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestOpen_LegacyVersionZeroStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 0")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_BothDriversShareFormat(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")

	s1, err := Open(path, WithDriver(DriverCGO))
	require.NoError(t, err)
	_, err = s1.InsertBatch(ctx, ints(11, 12, 13))
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path, WithDriver(DriverPure))
	require.NoError(t, err)
	defer s2.Close()

	count, err := s2.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, DriverPure, s2.Driver())
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	err := s.Close()
	if err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestClose_MultipleCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("first Close() failed: %v", err)
	}

	// Second close should not panic (though may error)
	_ = s.Close()
}

func TestCheck_HealthyStore(t *testing.T) {
	s := createTestStore(t)
	assert.NoError(t, s.Check(context.Background()))
}

// Pragma tests

func TestPragma_JournalMode(t *testing.T) {
	s := createTestStore(t)

	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
}

func TestPragma_Synchronous(t *testing.T) {
	s := createTestStore(t)

	// NORMAL = 1
	if err := s.verifyPragma("synchronous", "1"); err != nil {
		t.Error(err)
	}
}

func TestPragma_BusyTimeout(t *testing.T) {
	s := createTestStore(t)

	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
}

func TestPragma_UserVersion(t *testing.T) {
	s := createTestStore(t)

	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
}

func TestErrorFormatting(t *testing.T) {
	err := NewCorruptError("/tmp/x.db", os.ErrInvalid)
	assert.Contains(t, err.Error(), "CORRUPT_STORE")
	assert.Contains(t, err.Error(), "/tmp/x.db")
	assert.ErrorIs(t, err, os.ErrInvalid)

	txErr := NewTransactionError("checkpoint", os.ErrClosed)
	assert.Equal(t, "TRANSACTION_FAILURE: checkpoint: file already closed", txErr.Error())
	assert.True(t, IsTransactionFailure(txErr))
	assert.False(t, IsTransactionFailure(os.ErrClosed))
}
