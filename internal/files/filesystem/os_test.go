package filesystem

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOSFileSystem_Open(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(p, []byte("id\n1\n"), 0644))

	fsys := NewOSFileSystem()
	rc, err := fsys.Open(p)
	require.NoError(t, err)
	defer rc.Close()

	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "id\n1\n", string(content))

	info, err := fsys.Stat(p)
	require.NoError(t, err)
	require.Equal(t, int64(5), info.Size())
}

func TestOSFileSystem_OpenMissing(t *testing.T) {
	_, err := NewOSFileSystem().Open(filepath.Join(t.TempDir(), "nope.csv"))
	require.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestOSFileSystem_OpenDirectory(t *testing.T) {
	_, err := NewOSFileSystem().Open(t.TempDir())
	require.Error(t, err)
	require.Contains(t, err.Error(), "directory")
}
