// Package guard decides, for every page navigation, whether the visitor may
// proceed, must be redirected or is forbidden. It is a pure function of the
// requested URL and the session's account; loading that account is left to
// the caller.
package guard

import (
	"net/url"
	"strings"

	"github.com/marketlink/marketplace-web/internal/core/domain"
)

// State is the navigation state derived from the session.
type State int

const (
	Unauthenticated State = iota
	AuthenticatedIncomplete
	AuthenticatedComplete
)

func (s State) String() string {
	switch s {
	case AuthenticatedIncomplete:
		return "authenticated_incomplete"
	case AuthenticatedComplete:
		return "authenticated_complete"
	default:
		return "unauthenticated"
	}
}

// StateOf classifies user; nil means no account.
func StateOf(user *domain.User) State {
	switch {
	case user == nil:
		return Unauthenticated
	case user.Progress().Complete():
		return AuthenticatedComplete
	default:
		return AuthenticatedIncomplete
	}
}

// Action is what the caller must do with the request.
type Action int

const (
	Allow Action = iota
	Redirect
	Forbid
)

// Decision reasons, also used as metric labels.
const (
	ReasonAllow            = "allow"
	ReasonLoginRequired    = "login_required"
	ReasonRegistrationDone = "registration_done"
	ReasonRegistrationStep = "registration_step"
	ReasonRoleMismatch     = "role_mismatch"
	ReasonForbidden        = "forbidden"
)

// Decision is the outcome of Evaluate.
type Decision struct {
	Action   Action
	Location string
	Reason   string
	State    State
}

// RoleArea restricts a path prefix to a set of roles.
type RoleArea struct {
	Prefix string
	Roles  []domain.Role
}

// Config describes the site's navigation rules.
type Config struct {
	LoginPath     string
	DashboardPath string
	// PublicPaths are reachable without a session (exact match).
	PublicPaths []string
	// PublicOnly are the public pages an authenticated, fully registered
	// account is sent away from.
	PublicOnly []string
	// Unguarded prefixes bypass every rule.
	Unguarded []string
	RoleAreas []RoleArea
}

// DefaultConfig returns the marketplace rules with the given dashboard path.
func DefaultConfig(dashboard string) Config {
	return Config{
		LoginPath:     "/login",
		DashboardPath: dashboard,
		PublicPaths:   []string{"/", "/login", domain.RegistrationRoot, "/forgot-password", "/reset-password"},
		PublicOnly:    []string{"/login", domain.RegistrationRoot},
		Unguarded:     []string{"/static/", "/healthz", "/readyz", "/metrics", "/swagger/", "/favicon.ico"},
		RoleAreas: []RoleArea{
			{Prefix: "/admin", Roles: []domain.Role{domain.RoleAdmin}},
			{Prefix: "/buyer", Roles: []domain.Role{domain.RoleBuyer}},
			{Prefix: "/supplier", Roles: []domain.Role{domain.RoleSupplier}},
			{Prefix: "/service-provider", Roles: []domain.Role{domain.RoleServiceProvider}},
		},
	}
}

// Guard evaluates navigations against a Config.
type Guard struct {
	cfg Config
}

func New(cfg Config) *Guard {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.DashboardPath == "" {
		cfg.DashboardPath = "/dashboard"
	}
	return &Guard{cfg: cfg}
}

// Config returns the rules in effect.
func (g *Guard) Config() Config { return g.cfg }

// Exempt reports whether path bypasses the guard, so the caller can skip
// loading the account.
func (g *Guard) Exempt(path string) bool {
	if domain.IsConfirmationPath(path) {
		return true
	}
	for _, p := range g.cfg.Unguarded {
		if strings.HasPrefix(path, p) || path == strings.TrimSuffix(p, "/") {
			return true
		}
	}
	return false
}

// Evaluate applies the rules in order to a navigation to requestURI (path and
// query) by user. A nil user is unauthenticated.
func (g *Guard) Evaluate(requestURI string, user *domain.User) Decision {
	path := requestURI
	if u, err := url.ParseRequestURI(requestURI); err == nil {
		path = u.Path
	}
	if path == "" {
		path = "/"
	}
	state := StateOf(user)
	allow := Decision{Action: Allow, Reason: ReasonAllow, State: state}

	if g.Exempt(path) {
		return allow
	}

	if state == Unauthenticated {
		if contains(g.cfg.PublicPaths, path) {
			return allow
		}
		return Decision{
			Action:   Redirect,
			Location: g.cfg.LoginPath + "?next=" + url.QueryEscape(requestURI),
			Reason:   ReasonLoginRequired,
			State:    state,
		}
	}

	if state == AuthenticatedComplete && contains(g.cfg.PublicOnly, path) {
		return Decision{Action: Redirect, Location: g.cfg.DashboardPath, Reason: ReasonRegistrationDone, State: state}
	}

	if state == AuthenticatedIncomplete && domain.IsRegistrationSubPath(path) {
		if step, ok := user.Progress().Current(); ok && path != step.Path() {
			return Decision{Action: Redirect, Location: step.Path(), Reason: ReasonRegistrationStep, State: state}
		}
	}

	if area, ok := g.area(path); ok && !user.HasRole(area.Roles...) {
		// Every role lands on the shared dashboard.
		target := g.cfg.DashboardPath
		if target == path {
			return Decision{Action: Forbid, Reason: ReasonForbidden, State: state}
		}
		return Decision{Action: Redirect, Location: target, Reason: ReasonRoleMismatch, State: state}
	}

	return allow
}

func (g *Guard) area(path string) (RoleArea, bool) {
	for _, a := range g.cfg.RoleAreas {
		if path == a.Prefix || strings.HasPrefix(path, a.Prefix+"/") {
			return a, true
		}
	}
	return RoleArea{}, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
