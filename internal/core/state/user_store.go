package state

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/ports"
)

// UserStore holds the account of one session. It loads lazily, memoizes the
// result per token and collapses concurrent loads into one backend call.
type UserStore struct {
	loader ports.UserLoader
	group  singleflight.Group

	mu    sync.RWMutex
	user  *domain.User
	token string
	// epoch advances on Set and Invalidate; a load started in an older epoch
	// is returned to its callers but never memoized.
	epoch uint64
}

// NewUserStore returns an empty store backed by loader.
func NewUserStore(loader ports.UserLoader) *UserStore {
	return &UserStore{loader: loader}
}

// Initialized reports whether a user is loaded.
func (u *UserStore) Initialized() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.user != nil
}

// Current returns the loaded user or nil.
func (u *UserStore) Current() *domain.User {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.user
}

// Load returns the user bound to token, fetching it on first use. still is
// consulted after the fetch; when it reports false the session changed while
// the request was in flight and the result is discarded.
func (u *UserStore) Load(ctx context.Context, token string, still func() bool) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrNotAuthenticated
	}

	u.mu.RLock()
	if u.user != nil && u.token == token {
		user := u.user
		u.mu.RUnlock()
		return user, nil
	}
	epoch := u.epoch
	u.mu.RUnlock()

	// Loads are shared per epoch so a caller arriving after Invalidate never
	// joins a fetch that started before it. The shared fetch outlives the
	// request that started it.
	key := strconv.FormatUint(epoch, 10) + ":" + token
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := u.group.Do(key, func() (any, error) {
		return u.loader.LoadUser(loadCtx, token)
	})
	if err != nil {
		return nil, err
	}
	if still != nil && !still() {
		return nil, domain.ErrScopeClosed
	}

	user := v.(*domain.User)
	u.mu.Lock()
	if u.epoch == epoch {
		u.user, u.token = user, token
	}
	u.mu.Unlock()
	return user, nil
}

// Set stores user for token without a backend round trip, e.g. after login.
func (u *UserStore) Set(token string, user *domain.User) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.epoch++
	u.user, u.token = user, token
}

// Invalidate forgets the loaded user so the next Load fetches it again.
func (u *UserStore) Invalidate(ctx context.Context) error {
	u.mu.Lock()
	token := u.token
	u.epoch++
	u.user, u.token = nil, ""
	u.mu.Unlock()

	if token == "" {
		return nil
	}
	return u.loader.ForgetUser(ctx, token)
}
