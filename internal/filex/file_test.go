package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(old) }
}

func TestEnsureSubDir_CreatesDirectoryInCWD(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	got, err := EnsureSubDir("public/temp")
	require.NoError(t, err)

	want := filepath.Join(tmp, "public/temp")
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		perm := fi.Mode().Perm()
		require.Equal(t, os.FileMode(0o700), perm&0o700)
	}
}

func TestEnsureSubDir_Idempotent(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	first, err := EnsureSubDir("temp")
	require.NoError(t, err)

	second, err := EnsureSubDir("temp")
	require.NoError(t, err)

	require.Equal(t, first, second)
	fi, err := os.Stat(second)
	require.NoError(t, err)
	require.True(t, fi.IsDir())
}

func TestEnsureSubDir_AbsolutePathUsedAsIs(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "uploads")

	got, err := EnsureSubDir(target)
	require.NoError(t, err)
	require.Equal(t, target, got)

	fi, err := os.Stat(target)
	require.NoError(t, err)
	require.True(t, fi.IsDir())
}

func TestEnsureSubDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	require.NoError(t, os.WriteFile("temp", []byte("x"), 0o660))

	_, err := EnsureSubDir("temp")
	require.Error(t, err, "should fail when a file exists with the same name")
}

func TestRemoveIfExists(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "staged.png")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o660))

	require.NoError(t, RemoveIfExists(path))
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	// second call is a no-op
	require.NoError(t, RemoveIfExists(path))
}
