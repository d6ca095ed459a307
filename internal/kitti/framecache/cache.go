// Package framecache provides streaming and random access over a frame
// catalog while keeping a bounded, contiguous window of decoded frames.
//
// The window always holds catalog indices [first, first+len) with
// len <= capacity. Eviction is positional, not LRU: appending past capacity
// drops the lowest index and prepending drops the highest. Seeks close to the
// window are bridged by decoding the gap one frame at a time; seeks further
// away than the capacity clear the window and decode lazily on the next Read.
//
// A Cache is not safe for concurrent use.
package framecache

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/banshee-data/kittiscan/internal/kitti/decode"
	"github.com/banshee-data/kittiscan/internal/monitoring"
)

// ErrOutOfRange is returned by Seek for an index outside the catalog.
var ErrOutOfRange = errors.New("frame index out of range")

// Loader decodes frames by catalog index.
type Loader interface {
	Count() int
	Load(index int) (decode.Frame, error)
}

// Cache is a windowed, seekable frame reader.
type Cache struct {
	loader  Loader
	win     *Ring[decode.Frame]
	first   int // catalog index of win.At(0)
	cursor  int // index the next Read returns
	metrics *monitoring.CacheMetrics
}

// New returns a Cache holding at most capacity decoded frames. A capacity of
// zero is legal: nothing is retained and every access decodes. metrics may be nil.
func New(loader Loader, capacity int, metrics *monitoring.CacheMetrics) *Cache {
	return &Cache{
		loader:  loader,
		win:     NewRing[decode.Frame](capacity),
		metrics: metrics,
	}
}

// Read returns the frame at the cursor and advances the cursor. It returns
// io.EOF once the cursor is past the last frame.
//
// If the frame cannot be decoded the error is returned and the cursor still
// advances, so a stream skips unreadable frames instead of stalling on them.
// The returned frame is a copy the caller may modify.
func (c *Cache) Read() (decode.Frame, error) {
	if c.cursor >= c.loader.Count() {
		return decode.Frame{}, io.EOF
	}

	idx := c.cursor
	if c.contains(idx) {
		c.cursor++
		c.metrics.ObserveHit()
		return c.win.At(idx - c.first).Clone(), nil
	}
	c.metrics.ObserveMiss()

	if c.win.Len() > 0 && idx != c.first+c.win.Len() {
		c.clearAt(idx)
	}
	c.cursor = idx + 1

	f, err := c.load(idx)
	if err != nil {
		if c.win.Len() == 0 {
			c.first = c.cursor
		}
		return decode.Frame{}, fmt.Errorf("frame %d: %w", idx, err)
	}
	c.pushBack(idx, f)
	return f.Clone(), nil
}

// Seek moves the cursor to target so the next Read returns it.
//
// Targets inside the window only move the cursor. Targets within capacity
// of the window are bridged: each missing frame between the window and the
// target, target included, is decoded and pushed on the near end, evicting
// from the far end. Anything further clears the window. If a bridging decode
// fails the window is cleared at target and the error returned; the next
// Read retries target.
func (c *Cache) Seek(target int) error {
	if target < 0 || target >= c.loader.Count() {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, target, c.loader.Count())
	}

	if c.contains(target) {
		c.metrics.ObserveHit()
		c.cursor = target
		return nil
	}
	if target == c.cursor {
		return nil
	}
	c.metrics.ObserveMiss()

	capacity := c.win.Cap()
	switch {
	case target > c.cursor:
		edge := c.first + c.win.Len()
		if gap := target - edge; gap >= 0 && gap < capacity {
			return c.bridgeForward(edge, target)
		}
	case target < c.first && c.cursor-target < capacity:
		return c.bridgeBackward(target)
	}

	c.clearAt(target)
	c.metrics.ObserveReset()
	monitoring.Logf("[framecache] seek %d outside bridgeable range, window reset", target)
	return nil
}

// Reset rewinds to the first frame and drops the window.
func (c *Cache) Reset() {
	c.clearAt(0)
}

// Count returns the number of frames in the catalog.
func (c *Cache) Count() int { return c.loader.Count() }

// IsSeekable reports whether Seek is supported. It always is.
func (c *Cache) IsSeekable() bool { return true }

// Cursor returns the index the next Read will return.
func (c *Cache) Cursor() int { return c.cursor }

// Capacity returns the maximum number of buffered frames.
func (c *Cache) Capacity() int { return c.win.Cap() }

// Window returns the first buffered index and the number of buffered frames.
func (c *Cache) Window() (first, length int) { return c.first, c.win.Len() }

func (c *Cache) contains(idx int) bool {
	return idx >= c.first && idx < c.first+c.win.Len()
}

func (c *Cache) bridgeForward(edge, target int) error {
	for i := edge; i <= target; i++ {
		f, err := c.load(i)
		if err != nil {
			c.clearAt(target)
			return fmt.Errorf("seek %d: frame %d: %w", target, i, err)
		}
		c.pushBack(i, f)
	}
	c.cursor = target
	return nil
}

func (c *Cache) bridgeBackward(target int) error {
	for i := c.first - 1; i >= target; i-- {
		f, err := c.load(i)
		if err != nil {
			c.clearAt(target)
			return fmt.Errorf("seek %d: frame %d: %w", target, i, err)
		}
		c.pushFront(i, f)
	}
	c.cursor = target
	return nil
}

func (c *Cache) load(idx int) (decode.Frame, error) {
	start := time.Now()
	f, err := c.loader.Load(idx)
	c.metrics.ObserveDecode(time.Since(start), err)
	return f, err
}

// pushBack appends frame idx, which must be first+Len() when the window is
// not empty.
func (c *Cache) pushBack(idx int, f decode.Frame) {
	if c.win.Cap() == 0 {
		return
	}
	if c.win.Len() == 0 {
		c.first = idx
	}
	if _, evicted := c.win.PushBack(f); evicted {
		c.first++
		c.metrics.ObserveEviction()
	}
	c.metrics.SetWindow(c.win.Len())
}

// pushFront prepends frame idx, which must be first-1.
func (c *Cache) pushFront(idx int, f decode.Frame) {
	if c.win.Cap() == 0 {
		return
	}
	if _, evicted := c.win.PushFront(f); evicted {
		c.metrics.ObserveEviction()
	}
	c.first = idx
	c.metrics.SetWindow(c.win.Len())
}

func (c *Cache) clearAt(idx int) {
	c.win.Clear()
	c.first = idx
	c.cursor = idx
	c.metrics.SetWindow(0)
}
