package state

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// TableQuery is the paging and sorting state of a data table.
type TableQuery struct {
	Page  int
	Limit int
	Sort  string
	Desc  bool
}

// ParseTableQuery reads page, limit and sort ("-field" for descending) from q,
// clamping out-of-range values.
func ParseTableQuery(q url.Values) TableQuery {
	t := TableQuery{Page: 1, Limit: defaultPageSize}
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		t.Page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 {
		t.Limit = min(l, maxPageSize)
	}
	if s := strings.TrimSpace(q.Get("sort")); s != "" {
		t.Desc = strings.HasPrefix(s, "-")
		t.Sort = strings.TrimPrefix(s, "-")
	}
	return t
}

// Values encodes t for the backend API.
func (t TableQuery) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(t.Page))
	v.Set("limit", strconv.Itoa(t.Limit))
	if t.Sort != "" {
		s := t.Sort
		if t.Desc {
			s = "-" + s
		}
		v.Set("sort", s)
	}
	return v
}

// TotalPages returns the page count for total rows.
func (t TableQuery) TotalPages(total int64) int {
	if total <= 0 || t.Limit <= 0 {
		return 0
	}
	return int((total + int64(t.Limit) - 1) / int64(t.Limit))
}

// Selections tracks the selected row IDs of each table in a session.
type Selections struct {
	mu     sync.Mutex
	tables map[string]map[string]struct{}
}

// NewSelections returns an empty set of selections.
func NewSelections() *Selections {
	return &Selections{tables: make(map[string]map[string]struct{})}
}

// Toggle flips id in table and reports whether it is now selected.
func (s *Selections) Toggle(table, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.tables[table]
	if set == nil {
		set = make(map[string]struct{})
		s.tables[table] = set
	}
	if _, ok := set[id]; ok {
		delete(set, id)
		return false
	}
	set[id] = struct{}{}
	return true
}

// Replace selects exactly ids in table.
func (s *Selections) Replace(table string, ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	s.tables[table] = set
}

// Selected returns the sorted selected IDs of table.
func (s *Selections) Selected(table string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.tables[table]))
	for id := range s.tables[table] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ClearTable drops the selection of table.
func (s *Selections) ClearTable(table string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, table)
}

// Clear drops every selection.
func (s *Selections) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = make(map[string]map[string]struct{})
}
