package state

import (
	"strings"
	"sync"
)

const maxRecentSearches = 10

// SearchHistory keeps the most recent distinct catalog queries, newest first.
type SearchHistory struct {
	mu      sync.Mutex
	queries []string
}

// NewSearchHistory returns an empty history.
func NewSearchHistory() *SearchHistory {
	return &SearchHistory{}
}

// Record moves q to the front. Blank queries are ignored and comparison is
// case-insensitive.
func (h *SearchHistory) Record(q string) {
	q = strings.TrimSpace(q)
	if q == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	next := make([]string, 0, maxRecentSearches)
	next = append(next, q)
	for _, existing := range h.queries {
		if strings.EqualFold(existing, q) {
			continue
		}
		if len(next) == maxRecentSearches {
			break
		}
		next = append(next, existing)
	}
	h.queries = next
}

// Recent returns a copy of the history.
func (h *SearchHistory) Recent() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string{}, h.queries...)
}

// Clear empties the history.
func (h *SearchHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queries = nil
}
