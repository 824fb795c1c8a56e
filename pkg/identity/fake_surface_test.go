package identity_test

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/webauth/pkg/identity"
)

// fakeSurface plays back scripted navigation events. script receives the
// authorization URL so it can echo the state back in the redirect.
type fakeSurface struct {
	script  func(authURL string) []identity.NavigationEvent
	hold    bool // keep the event channel open after the script
	openErr error

	opened chan struct{}

	mu      sync.Mutex
	calls   []openCall
	handles []*fakeHandle
}

type openCall struct {
	url     string
	visible bool
}

func newFakeSurface(script func(authURL string) []identity.NavigationEvent) *fakeSurface {
	return &fakeSurface{script: script, opened: make(chan struct{}, 16)}
}

func (s *fakeSurface) Open(_ context.Context, authURL string, visible bool) (identity.SurfaceHandle, error) {
	s.mu.Lock()
	s.calls = append(s.calls, openCall{url: authURL, visible: visible})
	s.mu.Unlock()

	if s.openErr != nil {
		return nil, s.openErr
	}

	var events []identity.NavigationEvent
	if s.script != nil {
		events = s.script(authURL)
	}

	h := &fakeHandle{events: make(chan identity.NavigationEvent, len(events)+1)}
	for _, ev := range events {
		h.events <- ev
	}
	if !s.hold {
		close(h.events)
	}

	s.mu.Lock()
	s.handles = append(s.handles, h)
	s.mu.Unlock()

	s.opened <- struct{}{}
	return h, nil
}

func (s *fakeSurface) Calls() []openCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]openCall(nil), s.calls...)
}

func (s *fakeSurface) Handles() []*fakeHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeHandle(nil), s.handles...)
}

type fakeHandle struct {
	events chan identity.NavigationEvent
	closes atomic.Int32
}

func (h *fakeHandle) Events() <-chan identity.NavigationEvent { return h.events }

func (h *fakeHandle) Close() error {
	h.closes.Add(1)
	return nil
}

// stateOf returns the state parameter of an authorization URL.
func stateOf(authURL string) string {
	u, err := url.Parse(authURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("state")
}

// redirectTo scripts a single navigation to redirect, built from the
// authorization URL by build.
func redirectTo(build func(state string) string) func(string) []identity.NavigationEvent {
	return func(authURL string) []identity.NavigationEvent {
		return []identity.NavigationEvent{
			{Kind: identity.EventNavigate, URL: authURL},
			{Kind: identity.EventResponse, URL: authURL, StatusCode: 200},
			{Kind: identity.EventNavigate, URL: build(stateOf(authURL))},
		}
	}
}

// countingObserver records observer callbacks.
type countingObserver struct {
	mu     sync.Mutex
	hits   int
	misses int
	flows  []string
}

func (o *countingObserver) CacheLookup(hit bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}

func (o *countingObserver) FlowCompleted(_ identity.ResponseType, errCode string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.flows = append(o.flows, errCode)
}
