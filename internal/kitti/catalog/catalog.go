// Package catalog enumerates the frame files of a scan sequence.
//
// A Catalog is built once and never re-scans its directory; catalog indices
// are the stable frame identities used by the decoder and the frame cache.
package catalog

import (
	"path/filepath"
	"sort"

	"github.com/banshee-data/kittiscan/internal/fsutil"
	"github.com/banshee-data/kittiscan/internal/monitoring"
)

// Catalog is an ordered, immutable list of frame files.
type Catalog struct {
	dir   string
	names []string
}

// Build lists dir and keeps regular files whose extension equals ext, sorted
// lexicographically. An unreadable or missing directory yields an empty
// catalog and a warning rather than an error.
func Build(fsys fsutil.FileSystem, dir, ext string) *Catalog {
	c := &Catalog{dir: filepath.Clean(dir)}

	entries, err := fsys.ReadDir(c.dir)
	if err != nil {
		monitoring.Warnf("[catalog] cannot list %s: %v", c.dir, err)
		return c
	}

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		c.names = append(c.names, e.Name())
	}
	sort.Strings(c.names)

	monitoring.Logf("[catalog] %s: %d %s frames", c.dir, len(c.names), ext)
	return c
}

// FromPath catalogs the sequence that path belongs to. path may be the
// sequence directory itself or any file inside it.
func FromPath(fsys fsutil.FileSystem, path, ext string) *Catalog {
	if info, err := fsys.Stat(path); err == nil && !info.IsDir() {
		path = filepath.Dir(path)
	}
	return Build(fsys, path, ext)
}

// Dir returns the catalogued directory.
func (c *Catalog) Dir() string { return c.dir }

// Count returns the number of frames.
func (c *Catalog) Count() int { return len(c.names) }

// Name returns the file name of frame i. It panics if i is out of range.
func (c *Catalog) Name(i int) string { return c.names[i] }

// Path returns the full path of frame i. It panics if i is out of range.
func (c *Catalog) Path(i int) string { return filepath.Join(c.dir, c.names[i]) }

// Names returns a copy of the ordered file names.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}
