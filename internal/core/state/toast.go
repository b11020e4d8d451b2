package state

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const maxToasts = 50

// ToastLevel selects the visual style of a toast.
type ToastLevel string

const (
	ToastInfo    ToastLevel = "info"
	ToastSuccess ToastLevel = "success"
	ToastWarning ToastLevel = "warning"
	ToastError   ToastLevel = "error"
)

// Toast is a transient message shown to the user. Title and Body are
// HTML-safe: producers escape or sanitize any text taken from events.
type Toast struct {
	ID        string     `json:"id"`
	Level     ToastLevel `json:"level"`
	Title     string     `json:"title"`
	Body      string     `json:"body,omitempty"`
	Link      string     `json:"link,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ToastStore queues toasts until the page drains them. When full, the oldest
// toast is dropped.
type ToastStore struct {
	mu     sync.Mutex
	toasts []Toast
}

// NewToastStore returns an empty queue.
func NewToastStore() *ToastStore {
	return &ToastStore{}
}

// Push appends t, assigning an ID and timestamp when missing.
func (s *ToastStore) Push(t Toast) Toast {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Level == "" {
		t.Level = ToastInfo
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.toasts = append(s.toasts, t)
	if over := len(s.toasts) - maxToasts; over > 0 {
		s.toasts = append([]Toast(nil), s.toasts[over:]...)
	}
	return t
}

// Drain returns all queued toasts oldest first and empties the queue.
func (s *ToastStore) Drain() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.toasts
	s.toasts = nil
	if out == nil {
		return []Toast{}
	}
	return out
}

// Len returns the number of queued toasts.
func (s *ToastStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.toasts)
}

// Clear drops all queued toasts.
func (s *ToastStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toasts = nil
}
