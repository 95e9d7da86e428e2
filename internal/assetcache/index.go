package assetcache

import "sync"

// imageIndex is the in-memory URL -> local path map for cached images.
// It is never persisted.
type imageIndex struct {
	mu    sync.RWMutex
	paths map[string]string
}

func newImageIndex() *imageIndex {
	return &imageIndex{paths: make(map[string]string)}
}

func (i *imageIndex) get(url string) (string, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	p, ok := i.paths[url]
	return p, ok
}

func (i *imageIndex) set(url, path string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.paths[url] = path
	return len(i.paths)
}

func (i *imageIndex) replace(paths map[string]string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.paths = paths
}

// removeWhere drops entries matching fn and returns the remaining size.
func (i *imageIndex) removeWhere(fn func(url, path string) bool) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	for url, path := range i.paths {
		if fn(url, path) {
			delete(i.paths, url)
		}
	}
	return len(i.paths)
}

func (i *imageIndex) len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.paths)
}
