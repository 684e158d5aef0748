package layout

// memo holds finished layouts by type key. Failures are never stored.
type memo struct {
	done map[string]TypeLayout
	hits int
}

func newCache() *memo {
	return &memo{done: make(map[string]TypeLayout, 256)}
}

func (m *memo) get(key string) (TypeLayout, bool) {
	l, ok := m.done[key]
	if ok {
		m.hits++
	}
	return l, ok
}

func (m *memo) put(key string, l TypeLayout) { m.done[key] = l }

// CacheStats reports how many layouts are memoized and how many lookups
// were answered from the memo.
func (e *LayoutEngine) CacheStats() (entries, hits int) {
	if e.cache == nil {
		return 0, 0
	}
	return len(e.cache.done), e.cache.hits
}
