package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/eventbus"
	"github.com/marketlink/marketplace-web/internal/core/state"
)

// SystemNotifications shows platform announcements and refreshes the account
// after verification or a role change, so the next navigation is guarded with
// fresh data.
type SystemNotifications struct {
	subscription
	scope  *state.Scope
	strict *bluemonday.Policy
	rich   *bluemonday.Policy
	log    zerolog.Logger
}

func NewSystemNotifications(bus *eventbus.Bus, scope *state.Scope, log zerolog.Logger) *SystemNotifications {
	s := &SystemNotifications{
		scope:  scope,
		strict: bluemonday.StrictPolicy(),
		rich:   bluemonday.UGCPolicy(),
		log:    log.With().Str("component", "system_notifications").Logger(),
	}
	s.subscription = subscription{
		bus:     bus,
		kinds:   []domain.EventKind{domain.KindSystemAnnouncement, domain.KindAccountVerified, domain.KindRoleChanged},
		handler: s,
	}
	return s
}

func (s *SystemNotifications) HandleEvent(ctx context.Context, ev domain.NotificationEvent) error {
	switch p := ev.Payload.(type) {
	case domain.AnnouncementPayload:
		s.announce(p)
		return nil
	case domain.AccountPayload:
		return s.accountChanged(ctx, ev.Kind, p)
	default:
		return unexpectedPayload(ev)
	}
}

func (s *SystemNotifications) announce(p domain.AnnouncementPayload) {
	level := state.ToastLevel(p.Level)
	if level == "" {
		level = state.ToastInfo
	}
	s.scope.Toasts.Push(state.Toast{
		Level: level,
		Title: s.strict.Sanitize(p.Title),
		Body:  s.rich.Sanitize(p.Body),
		Link:  safeLink(p.LinkURL),
	})
}

func (s *SystemNotifications) accountChanged(ctx context.Context, kind domain.EventKind, p domain.AccountPayload) error {
	if current := s.scope.Users.Current(); current != nil && current.ID != p.UserID {
		s.log.Debug().Str("user_id", p.UserID).Msg("account event for another user ignored")
		return nil
	}
	if err := s.scope.Users.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("failed to forget cached user")
	}

	switch kind {
	case domain.KindAccountVerified:
		s.scope.Toasts.Push(state.Toast{
			Level: state.ToastSuccess,
			Title: "Account verified",
			Body:  "Your company account has been verified.",
		})
	case domain.KindRoleChanged:
		body := "Your account role has changed."
		if p.NewRole.Valid() {
			body = fmt.Sprintf("Your account role is now %s.", p.NewRole)
		}
		s.scope.Toasts.Push(state.Toast{Level: state.ToastInfo, Title: "Role updated", Body: body, Link: "/"})
	}
	return nil
}

// safeLink keeps site-relative paths and absolute http(s) URLs only.
func safeLink(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return u.String()
}
