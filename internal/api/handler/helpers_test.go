package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/marketlink/marketplace-web/internal/api/middleware"
	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/guard"
	"github.com/marketlink/marketplace-web/internal/core/ports"
	"github.com/marketlink/marketplace-web/internal/core/service"
	"github.com/marketlink/marketplace-web/internal/core/state"
)

const testSessionID = "abcdefghijklmnopqrstuvwxyzABCDEF"

type route func(req ports.APIRequest) (any, error)

// stubAPI answers routes keyed by "METHOD /path", /me with user, and runs
// the unauthorized hook like the real client.
type stubAPI struct {
	mu             sync.Mutex
	user           *domain.User
	routes         map[string]route
	calls          []ports.APIRequest
	onUnauthorized func(ctx context.Context)
}

func (a *stubAPI) Do(ctx context.Context, req ports.APIRequest, out any) error {
	a.mu.Lock()
	a.calls = append(a.calls, req)
	user := a.user
	fn := a.routes[req.Method+" "+req.Path]
	a.mu.Unlock()

	var resp any
	var err error
	switch {
	case fn != nil:
		resp, err = fn(req)
	case req.Path == "/me":
		if user == nil {
			err = unauthorized()
		} else {
			resp = user
		}
	}
	if err != nil {
		if domain.IsAuthError(err) && a.onUnauthorized != nil {
			a.onUnauthorized(ctx)
		}
		return err
	}
	if resp == nil || out == nil {
		return nil
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (a *stubAPI) on(method, path string, fn route) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.routes == nil {
		a.routes = make(map[string]route)
	}
	a.routes[method+" "+path] = fn
}

func (a *stubAPI) lastCall(path string) (ports.APIRequest, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.calls) - 1; i >= 0; i-- {
		if a.calls[i].Path == path {
			return a.calls[i], true
		}
	}
	return ports.APIRequest{}, false
}

func unauthorized() error {
	return &domain.APIError{Kind: domain.KindAuth, Status: http.StatusUnauthorized, Message: "unauthorized"}
}

// memDrafts is an in-memory DraftRepository.
type memDrafts struct {
	mu     sync.Mutex
	drafts map[string]ports.RegistrationDraft
}

func (m *memDrafts) Save(_ context.Context, d ports.RegistrationDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.drafts == nil {
		m.drafts = make(map[string]ports.RegistrationDraft)
	}
	m.drafts[d.UserID+"/"+string(d.Step)] = d
	return nil
}

func (m *memDrafts) Find(_ context.Context, userID string, step domain.RegistrationStep) (*ports.RegistrationDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[userID+"/"+string(step)]
	if !ok {
		return nil, domain.ErrDraftNotFound
	}
	return &d, nil
}

func (m *memDrafts) DeleteAll(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, d := range m.drafts {
		if d.UserID == userID {
			delete(m.drafts, k)
		}
	}
	return nil
}

type testEnv struct {
	api      *stubAPI
	drafts   *memDrafts
	jar      *service.CookieJar
	registry *state.Registry
	sessions *service.SessionService
	guard    *guard.Guard
	locales  *state.Locales
	e        *echo.Echo
}

func newEnv(t *testing.T, user *domain.User) *testEnv {
	t.Helper()
	api := &stubAPI{user: user}
	jar := service.NewCookieJar("", false)
	registry := state.NewRegistry(service.NewScopeFactory(service.ScopeDeps{
		Loader: service.NewUserGateway(api, nil, zerolog.Nop()),
		API:    api,
		Log:    zerolog.Nop(),
	}), zerolog.Nop())
	sessions := service.NewSessionService(jar, registry, service.NewAuthService(api, jar, zerolog.Nop()), zerolog.Nop())
	api.onUnauthorized = sessions.HandleUnauthorized
	t.Cleanup(func() { registry.CloseAll(context.Background()) })

	e := echo.New()
	e.Validator = NewValidator()
	renderer, err := NewTemplateRenderer()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	e.Renderer = renderer

	return &testEnv{
		api:      api,
		drafts:   &memDrafts{},
		jar:      jar,
		registry: registry,
		sessions: sessions,
		guard:    guard.New(guard.DefaultConfig("/dashboard")),
		locales:  state.NewLocales([]string{"en", "es", "pt"}, "en"),
		e:        e,
	}
}

func accessToken(t *testing.T) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

// newRequest builds a JSON request on the shared test session. authenticated
// adds a valid access token cookie.
func newRequest(t *testing.T, method, target, body string, authenticated bool) *http.Request {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.AddCookie(&http.Cookie{Name: service.SessionIDCookie, Value: testSessionID})
	if authenticated {
		req.AddCookie(&http.Cookie{Name: service.AccessTokenCookie, Value: accessToken(t)})
	}
	return req
}

// serve runs h behind the session and locale middleware, plus RequireSession
// when protected is set. Path parameters are given as name/value pairs.
func (env *testEnv) serve(req *http.Request, h echo.HandlerFunc, protected bool, params ...string) (*httptest.ResponseRecorder, error) {
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	if len(params) > 0 {
		var names, values []string
		for i := 0; i+1 < len(params); i += 2 {
			names = append(names, params[i])
			values = append(values, params[i+1])
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}

	if protected {
		h = middleware.RequireSession()(h)
	}
	h = middleware.Locale(env.locales, env.jar)(h)
	h = middleware.Session(env.sessions)(h)
	return rec, h(c)
}

func (env *testEnv) scope(t *testing.T) *state.Scope {
	t.Helper()
	s, ok := env.registry.Get(testSessionID)
	if !ok {
		t.Fatalf("scope %s not open", testSessionID)
	}
	return s
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func completeUser(role domain.Role) *domain.User {
	return &domain.User{ID: "u-1", Email: "ana@example.com", Role: role, RegistrationComplete: true}
}
