package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryTier is the process-local tier. It is only a read accelerator:
// anything missing here is looked up on disk.
type MemoryTier struct {
	entries *lru.Cache[string, Entry]
}

func NewMemoryTier(size int) (*MemoryTier, error) {
	if size <= 0 {
		size = 1
	}
	c, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, fmt.Errorf("create memory tier: %w", err)
	}
	return &MemoryTier{entries: c}, nil
}

func memoryKey(class Class, key string) string {
	return string(class) + "/" + key
}

func (m *MemoryTier) Get(class Class, key string) (Entry, bool) {
	return m.entries.Get(memoryKey(class, key))
}

func (m *MemoryTier) Put(class Class, key string, e Entry) {
	m.entries.Add(memoryKey(class, key), e)
}

func (m *MemoryTier) Remove(class Class, key string) {
	m.entries.Remove(memoryKey(class, key))
}

func (m *MemoryTier) Len() int { return m.entries.Len() }

func (m *MemoryTier) Purge() { m.entries.Purge() }

// PurgeExpired drops every entry no longer valid at now and returns how many.
func (m *MemoryTier) PurgeExpired(isValid func(Entry) bool) int {
	removed := 0
	for _, k := range m.entries.Keys() {
		e, ok := m.entries.Peek(k)
		if ok && !isValid(e) {
			m.entries.Remove(k)
			removed++
		}
	}
	return removed
}
