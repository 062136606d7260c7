package cache

import (
	"container/list"
	"sync"
)

// Memo is a size-bounded LRU map for within-run memoization, so one product
// seen under many queries costs one oracle lookup. It carries no TTL; a memo
// lives for one run.
type Memo struct {
	maxSize int
	items   map[string]*list.Element
	lru     *list.List
	mu      sync.Mutex

	hits   int64
	misses int64
}

type memoItem struct {
	key   string
	value interface{}
}

func NewMemo(maxSize int) *Memo {
	if maxSize <= 0 {
		maxSize = 256
	}
	return &Memo{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

func (m *Memo) Get(key string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	element, ok := m.items[key]
	if !ok {
		m.misses++
		return nil, false
	}
	m.lru.MoveToFront(element)
	m.hits++
	return element.Value.(*memoItem).value, true
}

func (m *Memo) Set(key string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if element, ok := m.items[key]; ok {
		element.Value.(*memoItem).value = value
		m.lru.MoveToFront(element)
		return
	}

	m.items[key] = m.lru.PushFront(&memoItem{key: key, value: value})
	for len(m.items) > m.maxSize {
		oldest := m.lru.Back()
		if oldest == nil {
			break
		}
		m.lru.Remove(oldest)
		delete(m.items, oldest.Value.(*memoItem).key)
	}
}

// Stats reports lookup hits and misses since creation.
func (m *Memo) Stats() (hits, misses int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses
}

func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
