// Package marker stamps icon images onto the scene.
package marker

import (
	"context"
	"errors"
	"image"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/tarkov-debrief/debrief/internal/asset"
	"github.com/tarkov-debrief/debrief/internal/engine"
)

// Loader fetches and decodes an image by URL.
type Loader interface {
	Load(ctx context.Context, url string) (image.Image, error)
}

// Template is a decoded marker image. Placed markers are clones of its prototype.
type Template struct {
	URL   string
	Image image.Image

	proto *engine.SceneObject
}

func newTemplate(url string, img image.Image) *Template {
	return &Template{URL: url, Image: img, proto: engine.NewImage(url, img)}
}

// Instantiate returns a new image object sharing the template pixels.
func (t *Template) Instantiate() *engine.SceneObject {
	return t.proto.Clone()
}

// Cache maps marker URLs to decoded templates. Entries are never evicted and
// failed loads are not stored.
type Cache struct {
	mu        sync.RWMutex
	templates map[string]*Template
	group     singleflight.Group
	loader    Loader
}

// NewCache creates an empty cache backed by loader.
func NewCache(loader Loader) *Cache {
	return &Cache{
		templates: make(map[string]*Template),
		loader:    loader,
	}
}

// Get returns the template for url, loading it on first use. Concurrent
// callers for the same url share one load, which runs with the first
// caller's context.
func (c *Cache) Get(ctx context.Context, url string) (*Template, error) {
	if t, ok := c.lookup(url); ok {
		return t, nil
	}

	v, err, _ := c.group.Do(url, func() (interface{}, error) {
		if t, ok := c.lookup(url); ok {
			return t, nil
		}
		img, err := c.loader.Load(ctx, url)
		if err != nil {
			if !errors.Is(err, asset.ErrAssetLoad) {
				err = &asset.LoadError{URL: url, Err: err}
			}
			return nil, err
		}
		t := newTemplate(url, img)
		c.mu.Lock()
		c.templates[url] = t
		c.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Template), nil
}

// Len returns the number of cached templates.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.templates)
}

func (c *Cache) lookup(url string) (*Template, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.templates[url]
	return t, ok
}
