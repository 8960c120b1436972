package grimoire

import (
	"sync"

	"github.com/Kenkkila/grimoire-site/internal/model"

	"golang.org/x/sync/singleflight"
)

// timelineCache holds the timeline result for the life of the process. Concurrent first
// loads share one store query; failed loads are not cached.
type timelineCache struct {
	mu        sync.RWMutex
	populated bool
	value     model.ResultSet
	group     singleflight.Group
}

func (c *timelineCache) get() (model.ResultSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value, c.populated
}

// getOrLoad returns the cached timeline, loading it on first use. hit is false only for
// the caller whose call ran load; callers that waited on that load count as hits.
func (c *timelineCache) getOrLoad(load func() (model.ResultSet, error)) (model.ResultSet, bool, error) {
	if rs, ok := c.get(); ok {
		return rs, true, nil
	}

	loaded := false
	v, err, _ := c.group.Do("timeline", func() (any, error) {
		if rs, ok := c.get(); ok {
			return rs, nil
		}
		loaded = true
		rs, err := load()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.value = rs
		c.populated = true
		c.mu.Unlock()
		return rs, nil
	})
	if err != nil {
		return model.ResultSet{}, false, err
	}
	return v.(model.ResultSet), !loaded, nil
}
