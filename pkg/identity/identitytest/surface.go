// Package identitytest provides scripted authorization surfaces for tests
// of code built on package identity.
package identitytest

import (
	"context"
	"net/url"
	"sync"

	"github.com/aussiebroadwan/webauth/pkg/identity"
)

// Script produces the events a surface replays for one Open call.
type Script func(authURL string, visible bool) []identity.NavigationEvent

// Surface replays Script on every Open. After the script the surface stays
// open until closed, like a page waiting for user input.
type Surface struct {
	Script Script

	mu    sync.Mutex
	opens []string
}

func NewSurface(script Script) *Surface {
	return &Surface{Script: script}
}

func (s *Surface) Open(_ context.Context, authURL string, visible bool) (identity.SurfaceHandle, error) {
	s.mu.Lock()
	s.opens = append(s.opens, authURL)
	s.mu.Unlock()

	var events []identity.NavigationEvent
	if s.Script != nil {
		events = s.Script(authURL, visible)
	}
	ch := make(chan identity.NavigationEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	return &handle{events: ch}, nil
}

// Opens returns the authorization URLs opened so far.
func (s *Surface) Opens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.opens...)
}

type handle struct {
	events chan identity.NavigationEvent
}

func (h *handle) Events() <-chan identity.NavigationEvent { return h.events }
func (h *handle) Close() error { return nil }

// StateOf returns the state parameter of an authorization URL.
func StateOf(authURL string) string {
	u, err := url.Parse(authURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("state")
}

// RedirectParam returns the redirect_uri parameter of an authorization URL.
func RedirectParam(authURL string) string {
	u, err := url.Parse(authURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("redirect_uri")
}

// ImplicitGrant answers every flow with access token for the state the
// flow issued.
func ImplicitGrant(accessToken string) Script {
	return func(authURL string, _ bool) []identity.NavigationEvent {
		redirect := RedirectParam(authURL) + "#access_token=" + url.QueryEscape(accessToken) +
			"&token_type=Bearer&state=" + StateOf(authURL)
		return []identity.NavigationEvent{
			{Kind: identity.EventNavigate, URL: authURL},
			{Kind: identity.EventNavigate, URL: redirect},
		}
	}
}

// Redirect answers every flow with the redirect built from the issued state.
func Redirect(build func(state string) string) Script {
	return func(authURL string, _ bool) []identity.NavigationEvent {
		return []identity.NavigationEvent{{Kind: identity.EventNavigate, URL: build(StateOf(authURL))}}
	}
}

// Closed simulates the user dismissing the surface.
func Closed() Script {
	return func(string, bool) []identity.NavigationEvent {
		return []identity.NavigationEvent{{Kind: identity.EventClosed}}
	}
}
