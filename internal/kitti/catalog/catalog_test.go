package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/kittiscan/internal/fsutil"
	"github.com/banshee-data/kittiscan/internal/monitoring"
)

func muteLogs(t *testing.T) {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })
}

func seqFS(t *testing.T, names ...string) *fsutil.MemoryFileSystem {
	t.Helper()
	mfs := fsutil.NewMemoryFileSystem()
	for _, n := range names {
		require.NoError(t, mfs.WriteFile(filepath.Join("/seq", n), make([]byte, 20), 0644))
	}
	return mfs
}

func TestBuild_FiltersAndSorts(t *testing.T) {
	muteLogs(t)
	mfs := seqFS(t, "000010.bin", "000002.bin", "calib.txt", "000001.bin", "000003.label")
	require.NoError(t, mfs.MkdirAll("/seq/extra.bin", 0755))

	c := Build(mfs, "/seq", ".bin")

	assert.Equal(t, 3, c.Count())
	assert.Equal(t, []string{"000001.bin", "000002.bin", "000010.bin"}, c.Names())
	assert.Equal(t, "000002.bin", c.Name(1))
	assert.Equal(t, filepath.Join("/seq", "000010.bin"), c.Path(2))
	assert.Equal(t, "/seq", c.Dir())
}

func TestBuild_EmptyDirectory(t *testing.T) {
	muteLogs(t)
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.MkdirAll("/empty", 0755))

	c := Build(mfs, "/empty", ".bin")

	assert.Equal(t, 0, c.Count())
	assert.Empty(t, c.Names())
}

func TestBuild_MissingDirectoryIsEmpty(t *testing.T) {
	var warned bool
	original := monitoring.Logf
	monitoring.SetLogger(func(format string, v ...interface{}) {
		if len(format) >= 4 && format[:4] == "WARN" {
			warned = true
		}
	})
	t.Cleanup(func() { monitoring.Logf = original })

	c := Build(fsutil.NewMemoryFileSystem(), "/missing", ".bin")

	assert.Equal(t, 0, c.Count())
	assert.True(t, warned, "expected a warning for an unreadable directory")
}

func TestBuild_LexicographicNotNumeric(t *testing.T) {
	muteLogs(t)
	mfs := seqFS(t, "10.bin", "9.bin", "100.bin")

	c := Build(mfs, "/seq", ".bin")

	assert.Equal(t, []string{"10.bin", "100.bin", "9.bin"}, c.Names())
}

func TestNames_NoAliasing(t *testing.T) {
	muteLogs(t)
	mfs := seqFS(t, "a.bin", "b.bin")

	c := Build(mfs, "/seq", ".bin")
	names := c.Names()
	names[0] = "mutated.bin"

	assert.Equal(t, "a.bin", c.Name(0))
}

func TestBuild_RebuildDoesNotAffectExisting(t *testing.T) {
	muteLogs(t)
	mfs := seqFS(t, "a.bin", "b.bin")

	first := Build(mfs, "/seq", ".bin")
	require.NoError(t, mfs.WriteFile("/seq/c.bin", make([]byte, 20), 0644))
	second := Build(mfs, "/seq", ".bin")

	assert.Equal(t, 2, first.Count())
	assert.Equal(t, 3, second.Count())
}

func TestFromPath(t *testing.T) {
	muteLogs(t)
	mfs := seqFS(t, "000000.bin", "000001.bin")

	fromFile := FromPath(mfs, "/seq/000001.bin", ".bin")
	fromDir := FromPath(mfs, "/seq", ".bin")

	assert.Equal(t, "/seq", fromFile.Dir())
	assert.Equal(t, fromDir.Names(), fromFile.Names())
	assert.Equal(t, 2, fromFile.Count())
}

func TestBuild_OSFileSystem(t *testing.T) {
	muteLogs(t)
	tmpDir := t.TempDir()
	for _, n := range []string{"000001.bin", "000000.bin", "notes.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, n), []byte{0}, 0644))
	}

	c := Build(fsutil.OSFileSystem{}, tmpDir, ".bin")

	assert.Equal(t, []string{"000000.bin", "000001.bin"}, c.Names())
}
