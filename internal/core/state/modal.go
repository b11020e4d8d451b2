package state

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marketlink/marketplace-web/internal/core/domain"
)

// Decision is the terminal answer to a confirmation request.
type Decision string

const (
	DecisionConfirm Decision = "confirm"
	DecisionCancel  Decision = "cancel"
)

// Valid reports whether d is confirm or cancel.
func (d Decision) Valid() bool {
	return d == DecisionConfirm || d == DecisionCancel
}

// ConfirmRequest is a question put to the user. Title and Message are
// HTML-safe.
type ConfirmRequest struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	ConfirmLabel string    `json:"confirm_label,omitempty"`
	CancelLabel  string    `json:"cancel_label,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Confirmation is a pending request. It resolves exactly once.
type Confirmation struct {
	Request  ConfirmRequest
	once     sync.Once
	decision Decision
	done     chan struct{}
}

// Wait blocks until the request is resolved or ctx ends.
func (c *Confirmation) Wait(ctx context.Context) (Decision, error) {
	select {
	case <-c.done:
		return c.decision, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Confirmation) resolve(d Decision) bool {
	resolved := false
	c.once.Do(func() {
		c.decision = d
		close(c.done)
		resolved = true
	})
	return resolved
}

// ModalStore tracks confirmation requests awaiting a user decision.
type ModalStore struct {
	mu      sync.Mutex
	pending map[string]*Confirmation
}

// NewModalStore returns an empty store.
func NewModalStore() *ModalStore {
	return &ModalStore{pending: make(map[string]*Confirmation)}
}

// Open registers req and returns its handle without waiting.
func (m *ModalStore) Open(req ConfirmRequest) *Confirmation {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	c := &Confirmation{Request: req, done: make(chan struct{})}

	m.mu.Lock()
	m.pending[req.ID] = c
	m.mu.Unlock()
	return c
}

// Confirm opens req and suspends the caller until the user decides. A
// cancelled ctx withdraws the request.
func (m *ModalStore) Confirm(ctx context.Context, req ConfirmRequest) (Decision, error) {
	c := m.Open(req)
	d, err := c.Wait(ctx)
	if err != nil {
		m.withdraw(c.Request.ID)
		return "", err
	}
	return d, nil
}

// Resolve delivers the user's decision for id.
func (m *ModalStore) Resolve(id string, d Decision) error {
	m.mu.Lock()
	c, ok := m.pending[id]
	delete(m.pending, id)
	m.mu.Unlock()

	if !ok {
		return domain.ErrModalNotFound
	}
	if !c.resolve(d) {
		return domain.ErrModalResolved
	}
	return nil
}

// Pending lists unresolved requests oldest first.
func (m *ModalStore) Pending() []ConfirmRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ConfirmRequest, 0, len(m.pending))
	for _, c := range m.pending {
		out = append(out, c.Request)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// CancelAll resolves every pending request with DecisionCancel.
func (m *ModalStore) CancelAll() {
	m.mu.Lock()
	pending := m.pending
	m.pending = make(map[string]*Confirmation)
	m.mu.Unlock()

	for _, c := range pending {
		c.resolve(DecisionCancel)
	}
}

func (m *ModalStore) withdraw(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, id)
}
