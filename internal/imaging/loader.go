package imaging

import (
	"fmt"
	"image"
	"os"
	"sync"
	"time"
)

// DefaultFrameCacheSize is the number of frames a FrameCache keeps when
// created with a non-positive capacity.
const DefaultFrameCacheSize = 32

// FrameCache holds decoded, validated frames keyed by file path.
//
// Every entry remembers the size and modification time of its file; a Load
// after the file changed on disk decodes it again. When the cache is full the
// least recently used entry is dropped. Cached frames are shared between
// callers and must be treated as read-only, which the pipeline guarantees.
type FrameCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*cacheEntry
	tick     uint64
	hits     int
	misses   int
}

type cacheEntry struct {
	frame    *image.NRGBA
	size     int64
	modTime  time.Time
	lastUsed uint64
}

// CacheStats reports FrameCache usage.
type CacheStats struct {
	Entries int `json:"entries"`
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
}

// NewFrameCache creates an empty cache holding at most capacity frames.
func NewFrameCache(capacity int) *FrameCache {
	if capacity <= 0 {
		capacity = DefaultFrameCacheSize
	}
	return &FrameCache{
		capacity: capacity,
		entries:  make(map[string]*cacheEntry),
	}
}

// Load returns the frame stored at path, decoding it on a miss.
//
// Supported formats are PNG, JPEG and GIF (first frame). JPEG orientation
// tags are applied. A file that decodes to an empty image is rejected with
// ErrMalformedFrame. Different spellings of the same path are separate
// entries.
func (c *FrameCache) Load(path string) (*image.NRGBA, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}

	c.mu.Lock()
	if e, ok := c.entries[path]; ok && e.size == stat.Size() && e.modTime.Equal(stat.ModTime()) {
		c.tick++
		e.lastUsed = c.tick
		c.hits++
		c.mu.Unlock()
		return e.frame, nil
	}
	c.misses++
	c.mu.Unlock()

	frame, err := readFrame(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[path]; !ok && len(c.entries) >= c.capacity {
		c.evictOldest()
	}
	c.tick++
	c.entries[path] = &cacheEntry{
		frame:    frame,
		size:     stat.Size(),
		modTime:  stat.ModTime(),
		lastUsed: c.tick,
	}
	return frame, nil
}

func readFrame(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		return nil, err
	}
	frame, err := ToNRGBA(img)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return frame, nil
}

// evictOldest drops the least recently used entry. c.mu must be held.
func (c *FrameCache) evictOldest() {
	var oldest string
	var oldestTick uint64
	for path, e := range c.entries {
		if oldest == "" || e.lastUsed < oldestTick {
			oldest, oldestTick = path, e.lastUsed
		}
	}
	delete(c.entries, oldest)
}

// Evict removes path from the cache. Unknown paths are ignored.
func (c *FrameCache) Evict(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// Clear removes every entry and resets the counters.
func (c *FrameCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.hits, c.misses = 0, 0
	c.mu.Unlock()
}

// Stats returns the current entry count and hit/miss counters.
func (c *FrameCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}

// FrameInfo describes a frame file as the pipeline sees it.
type FrameInfo struct {
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"`
	FileSizeBytes int64  `json:"file_size_bytes"`

	// RegionBounds is the bounding box of the default region of interest
	// for this frame size.
	RegionBounds image.Rectangle `json:"region_bounds"`
}

// LoadFrameInfo loads path through cache and describes it. Format is "png",
// "jpeg", "gif" or "unknown", taken from the file extension.
func LoadFrameInfo(cache *FrameCache, path string) (*FrameInfo, error) {
	frame, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	if f, err := FormatFromFilename(path); err == nil {
		format = string(f)
	}

	w, h := frame.Bounds().Dx(), frame.Bounds().Dy()
	return &FrameInfo{
		Width:         w,
		Height:        h,
		Format:        format,
		FileSizeBytes: stat.Size(),
		RegionBounds:  RegionBounds(w, h, DefaultRegionOfInterest()),
	}, nil
}

// Dimensions is the size of a frame in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FrameDimensions returns the size of the frame at path.
func FrameDimensions(cache *FrameCache, path string) (*Dimensions, error) {
	frame, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	return &Dimensions{Width: frame.Bounds().Dx(), Height: frame.Bounds().Dy()}, nil
}
