package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureParentDir_CreatesNestedDirectory(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "state", "client", "eventdesk.db")

	got, err := EnsureParentDir(path)
	require.NoError(t, err)

	want := filepath.Join(tmp, "state", "client")
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		perm := fi.Mode().Perm()
		require.Equal(t, os.FileMode(0o700), perm&0o700)
	}
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err), "the file itself is left alone")
}

func TestEnsureParentDir_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "eventdesk.db")

	first, err := EnsureParentDir(path)
	require.NoError(t, err)

	second, err := EnsureParentDir(path)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestEnsureParentDir_NothingToCreate(t *testing.T) {
	for _, path := range []string{"", ":memory:", "eventdesk.db"} {
		_, err := EnsureParentDir(path)
		require.NoError(t, err, path)
	}
}

func TestEnsureParentDir_FailsIfFileBlocksPath(t *testing.T) {
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "data")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o660))

	_, err := EnsureParentDir(filepath.Join(blocker, "eventdesk.db"))
	require.Error(t, err)
}
