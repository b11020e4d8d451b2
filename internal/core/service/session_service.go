package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/state"
)

// Binding ties one HTTP exchange to its browser session: the scope, the
// credentials presented in cookies and the response those cookies are
// written to.
type Binding struct {
	Scope *state.Scope

	jar *CookieJar
	w   http.ResponseWriter
	r   *http.Request

	mu      sync.Mutex
	session domain.Session
	cleared bool
}

// Session returns the credentials currently in effect for the request.
func (b *Binding) Session() domain.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

// Token returns the access token, or "" when unauthenticated.
func (b *Binding) Token() string {
	return b.Session().AccessToken
}

// Authenticated reports whether the request carries a usable access token.
// It turns false for the rest of the request once the session is cleared.
func (b *Binding) Authenticated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.cleared && !b.session.IsZero()
}

// Store writes s to the response and binds the scope to its token.
func (b *Binding) Store(ctx context.Context, s domain.Session) {
	b.mu.Lock()
	b.session = s
	b.cleared = false
	b.mu.Unlock()

	b.jar.Write(b.w, b.r, s)
	b.Scope.BindToken(ctx, s.AccessToken)
}

// Clear drops the credentials, expires their cookies and resets the scope.
func (b *Binding) Clear(ctx context.Context) {
	b.mu.Lock()
	already := b.cleared
	b.session = domain.Session{}
	b.cleared = true
	b.mu.Unlock()

	if already {
		return
	}
	b.jar.Clear(b.w, b.r)
	b.Scope.Reset(ctx)
}

type bindingKey struct{}

// ContextWithBinding returns a copy of ctx carrying b and its scope.
func ContextWithBinding(ctx context.Context, b *Binding) context.Context {
	ctx = state.ContextWithScope(ctx, b.Scope)
	return context.WithValue(ctx, bindingKey{}, b)
}

// BindingFromContext returns the binding stored by ContextWithBinding.
func BindingFromContext(ctx context.Context) (*Binding, bool) {
	b, ok := ctx.Value(bindingKey{}).(*Binding)
	return b, ok && b != nil
}

// SessionService resolves the browser session of each request and owns the
// login, refresh and logout transitions.
type SessionService struct {
	jar      *CookieJar
	registry *state.Registry
	auth     *AuthService
	log      zerolog.Logger
	now      func() time.Time
}

func NewSessionService(jar *CookieJar, registry *state.Registry, auth *AuthService, log zerolog.Logger) *SessionService {
	return &SessionService{
		jar:      jar,
		registry: registry,
		auth:     auth,
		log:      log.With().Str("component", "session_service").Logger(),
		now:      time.Now,
	}
}

// Begin resolves the session of r. An expired access token is refreshed when a
// refresh token is available. The returned context carries the binding.
func (s *SessionService) Begin(w http.ResponseWriter, r *http.Request) (context.Context, *Binding, error) {
	id, err := s.jar.SessionID(w, r)
	if err != nil {
		return nil, nil, err
	}
	scope, err := s.registry.Open(id)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	scope.Touch(now)

	presented := s.jar.Read(r)
	b := &Binding{Scope: scope, jar: s.jar, w: w, r: r}
	ctx := ContextWithBinding(r.Context(), b)

	switch {
	case !presented.IsZero() && !presented.Expired(now):
		b.session = presented
		scope.BindToken(ctx, presented.AccessToken)
	case presented.RefreshToken != "":
		s.refresh(ctx, b, presented)
	default:
		if !presented.IsZero() {
			b.Clear(ctx)
		} else if scope.Token() != "" {
			scope.Reset(ctx)
		}
	}
	return ctx, b, nil
}

// refresh renews an expired or missing access token. An AUTH_ERROR has
// already cleared the binding through the unauthorized hook; other failures
// leave the cookies in place so a later request can retry.
func (s *SessionService) refresh(ctx context.Context, b *Binding, presented domain.Session) {
	renewed, err := s.auth.Refresh(ctx, presented.RefreshToken)
	if err != nil {
		if domain.IsAuthError(err) {
			b.Clear(ctx)
		} else {
			s.log.Warn().Err(err).Msg("token refresh failed")
			if b.Scope.Token() != "" {
				b.Scope.Reset(ctx)
			}
		}
		return
	}
	b.Store(ctx, renewed)
}

// Login authenticates and starts the session on b.
func (s *SessionService) Login(ctx context.Context, b *Binding, email, password string) (*domain.User, error) {
	session, user, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	b.Store(ctx, session)
	if user != nil {
		b.Scope.Users.Set(session.AccessToken, user)
	}
	return b.Scope.User(ctx)
}

// Refresh renews the session on explicit request. The new token replaces the
// real-time connection.
func (s *SessionService) Refresh(ctx context.Context, b *Binding) error {
	presented := s.jar.Read(b.r)
	refreshToken := b.Session().RefreshToken
	if refreshToken == "" {
		refreshToken = presented.RefreshToken
	}
	renewed, err := s.auth.Refresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	b.Store(ctx, renewed)
	return nil
}

// Logout revokes the session and returns the scope to unauthenticated.
func (s *SessionService) Logout(ctx context.Context, b *Binding) {
	s.auth.Logout(ctx, b.Session())
	b.Clear(ctx)
}

// HandleUnauthorized is the API client's 401 hook. Within a request it clears
// the cookies; in background work it resets the scope.
func (s *SessionService) HandleUnauthorized(ctx context.Context) {
	if b, ok := BindingFromContext(ctx); ok {
		b.Clear(ctx)
		s.log.Info().Str("scope_id", b.Scope.ID()).Msg("session cleared after 401")
		return
	}
	if scope, ok := state.ScopeFromContext(ctx); ok {
		scope.Reset(ctx)
		s.log.Info().Str("scope_id", scope.ID()).Msg("scope reset after 401")
	}
}
