package domain

import "time"

// Session holds the credentials issued by the backend at login or refresh.
// A zero Session means the visitor is not authenticated.
type Session struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// IsZero reports whether no access token is present.
func (s Session) IsZero() bool {
	return s.AccessToken == ""
}

// Expired reports whether the access token expiry has passed at now.
// A session without a known expiry never expires on its own.
func (s Session) Expired(now time.Time) bool {
	return !s.Expiry.IsZero() && !now.Before(s.Expiry)
}
