package templates

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/png"
	"os"
	"sync"
)

// Entry is a named template image on disk
type Entry struct {
	ID   string // Stable lookup key, the file name
	Name string // Display name used in logs
	Path string
}

// cachedTemplate holds the decoded base image of one entry
type cachedTemplate struct {
	Entry
	image *image.RGBA
	mu    sync.Mutex
}

// ImageCache decodes template images lazily, at most once per id, and
// keeps them for the process lifetime.
type ImageCache struct {
	templates map[string]*cachedTemplate
	mu        sync.RWMutex
	stats     CacheStats
}

// CacheStats tracks cache performance
type CacheStats struct {
	Hits       int64 // Served from memory
	Loads      int64 // Successful decodes
	LoadErrors int64 // Failed read or decode attempts
}

// NewImageCache creates an image cache for the given entries
func NewImageCache(entries ...Entry) *ImageCache {
	ic := &ImageCache{
		templates: make(map[string]*cachedTemplate),
	}
	for _, e := range entries {
		ic.Register(e)
	}
	return ic
}

// Register adds an entry. Registering an existing id replaces it only
// if it was never loaded.
func (ic *ImageCache) Register(entry Entry) {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	if existing, ok := ic.templates[entry.ID]; ok && existing.loaded() {
		return
	}
	ic.templates[entry.ID] = &cachedTemplate{Entry: entry}
}

// Image returns the decoded base image for id, loading it on first use.
// Failed loads are retried on the next call.
func (ic *ImageCache) Image(id string) (*image.RGBA, error) {
	ic.mu.RLock()
	cached, ok := ic.templates[id]
	ic.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("template '%s' not registered", id)
	}

	img, loaded, err := cached.getOrLoad()

	ic.mu.Lock()
	switch {
	case err != nil:
		ic.stats.LoadErrors++
	case loaded:
		ic.stats.Loads++
	default:
		ic.stats.Hits++
	}
	ic.mu.Unlock()

	return img, err
}

// Stats returns cache statistics
func (ic *ImageCache) Stats() CacheStats {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	return ic.stats
}

func (ct *cachedTemplate) loaded() bool {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return ct.image != nil
}

// getOrLoad returns the cached image, reporting whether this call decoded it
func (ct *cachedTemplate) getOrLoad() (*image.RGBA, bool, error) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	if ct.image != nil {
		return ct.image, false, nil
	}

	img, err := decodeFile(ct.Path)
	if err != nil {
		return nil, false, err
	}
	ct.image = img
	return img, true, nil
}

// decodeFile reads an image file into an RGBA raster anchored at (0,0)
func decodeFile(path string) (*image.RGBA, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode template %s: %w", path, err)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("template %s is empty", path)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba, nil
}
