package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/ports"
	"github.com/marketlink/marketplace-web/internal/core/service"
	"github.com/marketlink/marketplace-web/internal/core/state"
)

// stubAPI answers /me with user (or a 401 when user is nil) and runs the
// unauthorized hook like the real client.
type stubAPI struct {
	user           *domain.User
	onUnauthorized func(ctx context.Context)
}

func (a *stubAPI) Do(ctx context.Context, req ports.APIRequest, out any) error {
	if req.Path != "/me" {
		return nil
	}
	if a.user == nil {
		if a.onUnauthorized != nil {
			a.onUnauthorized(ctx)
		}
		return &domain.APIError{Kind: domain.KindAuth, Status: http.StatusUnauthorized, Message: "unauthorized"}
	}
	raw, _ := json.Marshal(a.user)
	return json.Unmarshal(raw, out)
}

func newSessions(t *testing.T, api *stubAPI) *service.SessionService {
	t.Helper()
	jar := service.NewCookieJar("", false)
	registry := state.NewRegistry(service.NewScopeFactory(service.ScopeDeps{
		Loader: service.NewUserGateway(api, nil, zerolog.Nop()),
		API:    api,
		Log:    zerolog.Nop(),
	}), zerolog.Nop())
	sessions := service.NewSessionService(jar, registry, service.NewAuthService(api, jar, zerolog.Nop()), zerolog.Nop())
	api.onUnauthorized = sessions.HandleUnauthorized
	t.Cleanup(func() { registry.CloseAll(context.Background()) })
	return sessions
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

func newRequest(t *testing.T, target string, authenticated bool) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if authenticated {
		req.AddCookie(&http.Cookie{Name: service.AccessTokenCookie, Value: accessToken(t)})
	}
	return req
}

// run pushes req through mws into a handler answering 200.
func run(t *testing.T, req *http.Request, mws ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, echo.Context, bool) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	h := func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	}
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, c, called
}
