package assetcache

import (
	"encoding/json"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// docCache keeps recently served JSON documents in memory, keyed by CacheKey,
// so fresh hits skip the disk read. A zero size disables it and records no
// lookups.
type docCache struct {
	docs    *lru.Cache[string, json.RawMessage]
	lookups *prometheus.CounterVec
}

func newDocCache(size int, lookups *prometheus.CounterVec) (*docCache, error) {
	if size <= 0 {
		return &docCache{lookups: lookups}, nil
	}

	docs, err := lru.New[string, json.RawMessage](size)
	if err != nil {
		return nil, err
	}

	return &docCache{docs: docs, lookups: lookups}, nil
}

func (c *docCache) get(key string) (json.RawMessage, bool) {
	if c.docs == nil {
		return nil, false
	}

	doc, ok := c.docs.Get(key)
	if ok {
		c.lookups.WithLabelValues("hit").Inc()
	} else {
		c.lookups.WithLabelValues("miss").Inc()
	}
	return doc, ok
}

func (c *docCache) add(key string, doc json.RawMessage) {
	if c.docs != nil {
		c.docs.Add(key, doc)
	}
}

// removePrefix drops every document whose key starts with prefix.
func (c *docCache) removePrefix(prefix string) {
	if c.docs == nil {
		return
	}
	for _, key := range c.docs.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.docs.Remove(key)
		}
	}
}

func (c *docCache) purge() {
	if c.docs != nil {
		c.docs.Purge()
	}
}
