package container

import (
	"container/list"
	"os"
	"sync"
)

// handleCache keeps up to limit open *os.File handles, evicting the least
// recently used one once full — the "one file-handle per blk file, cached
// up to the system limit" policy in §5 of spec.md.
type handleCache struct {
	mu    sync.Mutex
	limit int
	lru   *list.List // front = most recently used
	index map[string]*list.Element
}

type cacheEntry struct {
	path string
	file *os.File
}

func newHandleCache(limit int) *handleCache {
	if limit <= 0 {
		limit = 512
	}
	return &handleCache{
		limit: limit,
		lru:   list.New(),
		index: make(map[string]*list.Element),
	}
}

func (c *handleCache) open(path string) (*os.File, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[path]; ok {
		c.lru.MoveToFront(el)
		return el.Value.(*cacheEntry).file, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	el := c.lru.PushFront(&cacheEntry{path: path, file: f})
	c.index[path] = el

	if c.lru.Len() > c.limit {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		entry := oldest.Value.(*cacheEntry)
		delete(c.index, entry.path)
		entry.file.Close()
	}
	return f, nil
}

func (c *handleCache) closeAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for el := c.lru.Front(); el != nil; el = el.Next() {
		if err := el.Value.(*cacheEntry).file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.lru.Init()
	c.index = make(map[string]*list.Element)
	return firstErr
}
