package source

import (
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache decodes each (path, page, dpi) once. Workers rendering different
// segments ask for the same assets at the same time; singleflight makes
// them share one decode.
type Cache struct {
	root  string
	dpi   int
	group singleflight.Group

	mu     sync.RWMutex
	images map[string]image.Image
}

// NewCache resolves relative asset paths against root.
func NewCache(root string, dpi int) *Cache {
	if dpi <= 0 {
		dpi = 150
	}
	return &Cache{root: root, dpi: dpi, images: make(map[string]image.Image)}
}

func (c *Cache) resolve(path string) string {
	if filepath.IsAbs(path) || c.root == "" {
		return path
	}
	return filepath.Join(c.root, path)
}

// Page returns the decoded page of the asset at path.
func (c *Cache) Page(path string, page int) (image.Image, error) {
	key := fmt.Sprintf("%s#%d@%d", path, page, c.dpi)

	c.mu.RLock()
	img, ok := c.images[key]
	c.mu.RUnlock()
	if ok {
		return img, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		c.mu.RLock()
		img, ok := c.images[key]
		c.mu.RUnlock()
		if ok {
			return img, nil
		}

		src, err := Open(c.resolve(path))
		if err != nil {
			return nil, err
		}
		defer src.Close()
		img, err = src.RenderPage(page, c.dpi)
		if err != nil {
			return nil, fmt.Errorf("%s page %d: %w", path, page, err)
		}
		c.mu.Lock()
		c.images[key] = img
		c.mu.Unlock()
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(image.Image), nil
}

// Len is the number of decoded pages held.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}
