package save

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sv4u/saveimages/save/sink"
)

// defaultExistenceCacheSize applies when the configured size is not positive.
const defaultExistenceCacheSize = 4096

// existenceCache remembers which output paths exist in a sink. Entries are
// refreshed on every write made through the cache.
type existenceCache struct {
	sink  sink.Sink
	cache *lru.Cache[string, bool]
}

func newExistenceCache(s sink.Sink, size int) (*existenceCache, error) {
	if size <= 0 {
		size = defaultExistenceCacheSize
	}
	c, err := lru.New[string, bool](size)
	if err != nil {
		return nil, err
	}
	return &existenceCache{sink: s, cache: c}, nil
}

func (c *existenceCache) exists(ctx context.Context, path string) (bool, error) {
	if v, ok := c.cache.Get(path); ok {
		return v, nil
	}
	exists, err := c.sink.Exists(ctx, path)
	if err != nil {
		return false, err
	}
	c.cache.Add(path, exists)
	return exists, nil
}

func (c *existenceCache) write(ctx context.Context, path, contentType string, data []byte) error {
	c.cache.Remove(path)
	if err := c.sink.Write(ctx, path, contentType, data); err != nil {
		return err
	}
	c.cache.Add(path, true)
	return nil
}

// CacheStats describes the existence cache.
type CacheStats struct {
	Size int `json:"size"`
}

func (c *existenceCache) stats() CacheStats {
	return CacheStats{Size: c.cache.Len()}
}
