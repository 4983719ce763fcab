package view

import (
	"net/url"
	"sync"

	"github.com/playperu/scoreboard/internal/assets"
	"github.com/playperu/scoreboard/internal/scoreboard"
)

// Catalog resolves asset ids to blob URLs of the form base/{id}/blob,
// following the asset collection through a live query.
type Catalog struct {
	svc  *assets.Service
	base string

	mu   sync.RWMutex
	urls map[string]string
}

func NewCatalog(svc *assets.Service, base string) *Catalog {
	return &Catalog{svc: svc, base: base, urls: map[string]string{}}
}

// ImageURL returns "" for unknown ids. The URL carries the asset's
// updatedAt so replaced images are not served from cache.
func (c *Catalog) ImageURL(assetID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.urls[assetID]
}

// Watch loads the asset list and keeps it current, calling onChange after
// each update. release stops watching and drops the cached URLs.
func (c *Catalog) Watch(onChange func()) (release func()) {
	cancel := c.svc.Observe(assets.Filter{}, func(list []scoreboard.Asset, err error) {
		if err != nil {
			return
		}
		urls := make(map[string]string, len(list))
		for _, a := range list {
			urls[a.ID] = c.base + "/" + url.PathEscape(a.ID) + "/blob?v=" + url.QueryEscape(a.UpdatedAt)
		}
		c.mu.Lock()
		c.urls = urls
		c.mu.Unlock()
		if onChange != nil {
			onChange()
		}
	})
	return func() {
		cancel()
		c.mu.Lock()
		c.urls = map[string]string{}
		c.mu.Unlock()
	}
}
