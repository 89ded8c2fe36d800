// Package cache keeps decoded rasters in memory so repeated renders skip
// expensive work.
//
// The interactive shell re-composes the ticket after every pause in typing.
// Decoding a print-size background and resampling a large QR code dominate
// that cost, and both only depend on inputs that rarely change between
// edits. Callers derive keys with [Key] from everything the value depends on
// (path, modification time, payload, size) so a stale entry is never hit.
//
// Cached images are shared. Callers must treat them as read-only.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	"sync"
)

// Cache stores images by key.
type Cache interface {
	Get(key string) (*image.NRGBA, bool)
	Set(key string, img *image.NRGBA)
}

// Key hashes parts into a cache key of the form prefix:sha256.
func Key(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// =============================================================================
// Memory
// =============================================================================

// Memory is a least-recently-used cache holding at most a fixed number of
// images. It is safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front is most recent
	items    map[string]*list.Element
}

type entry struct {
	key string
	img *image.NRGBA
}

// NewMemory creates a cache holding up to capacity images. A capacity below
// one is treated as one.
func NewMemory(capacity int) *Memory {
	if capacity < 1 {
		capacity = 1
	}
	return &Memory{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get returns the image stored under key and marks it recently used.
func (m *Memory) Get(key string) (*image.NRGBA, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.items[key]
	if !ok {
		return nil, false
	}
	m.order.MoveToFront(el)
	return el.Value.(*entry).img, true
}

// Set stores img under key, evicting the least recently used entry when full.
func (m *Memory) Set(key string, img *image.NRGBA) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.items[key]; ok {
		el.Value.(*entry).img = img
		m.order.MoveToFront(el)
		return
	}
	m.items[key] = m.order.PushFront(&entry{key: key, img: img})
	for m.order.Len() > m.capacity {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.items, oldest.Value.(*entry).key)
	}
}

// Len reports the number of cached images.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// =============================================================================
// Null
// =============================================================================

// Null never stores anything. Batch commands that render once use it.
type Null struct{}

func (Null) Get(string) (*image.NRGBA, bool) { return nil, false }
func (Null) Set(string, *image.NRGBA)        {}
