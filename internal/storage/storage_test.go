package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/cortexmind/cortexd/internal/cerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	return Config{
		Driver:         DriverModernC,
		DataDir:        t.TempDir(),
		Namespace:      "ws-test",
		MinConnections: 1,
		MaxConnections: 4,
	}
}

func TestOpen_CreatesSchema(t *testing.T) {
	cfg := testConfig(t)

	s, err := Open(cfg)
	require.NoError(t, err)
	defer s.Close()

	var count int
	require.NoError(t, s.DB().QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='vnode'`,
	).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestOpen_SecondProcessCannotAcquireSameNamespace(t *testing.T) {
	cfg := testConfig(t)

	s1, err := Open(cfg)
	require.NoError(t, err)
	defer s1.Close()

	_, err = Open(cfg)
	require.Error(t, err)
	assert.True(t, cerrors.IsKind(err, cerrors.KindConflict))
}

func TestClose_ReleasesLockForReopen(t *testing.T) {
	cfg := testConfig(t)

	s1, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(cfg)
	require.NoError(t, err)
	defer s2.Close()
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	cfg := testConfig(t)
	s, err := Open(cfg)
	require.NoError(t, err)
	defer s.Close()

	boom := errors.New("boom")
	err = s.WithTx(context.Background(), func(tx *sql.Tx) error {
		_, execErr := tx.Exec(`INSERT INTO workspace(id, name, kind, source, namespace, created_at, updated_at)
			VALUES ('w1','w','CODE','LOCAL','ns1','now','now')`)
		require.NoError(t, execErr)
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM workspace`).Scan(&count))
	assert.Equal(t, 0, count, "rollback must undo the insert")
}
