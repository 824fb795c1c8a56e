// Package headless implements a hidden authorization surface. It walks the
// authorization redirect chain with an HTTP client and a private cookie jar,
// which is enough for silent (prompt=none) renewals against providers that
// remember the user through cookies.
package headless

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"github.com/aussiebroadwan/webauth/internal/surface"
	"github.com/aussiebroadwan/webauth/pkg/identity"
)

// DefaultMaxHops bounds the redirect chain of one surface.
const DefaultMaxHops = 10

// maxPageSize caps how much of a terminal page is drained.
const maxPageSize = 64 << 10

var errTooManyHops = errors.New("headless: too many redirects")

// Surface opens hidden surfaces. The zero value is usable.
type Surface struct {
	// Transport is used for every hop. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
	// Jar carries cookies across flows. When nil each surface gets a fresh jar.
	Jar     http.CookieJar
	MaxHops int
	Logger  *slog.Logger
}

// Open starts loading target in the background. Only hidden surfaces are
// supported.
func (s *Surface) Open(ctx context.Context, target string, visible bool) (identity.SurfaceHandle, error) {
	if visible {
		return nil, fmt.Errorf("headless: %w", surface.ErrModeUnsupported)
	}

	jar := s.Jar
	if jar == nil {
		var err error
		if jar, err = cookiejar.New(nil); err != nil {
			return nil, fmt.Errorf("headless: cookie jar: %w", err)
		}
	}
	maxHops := s.MaxHops
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &handle{
		events: make(chan identity.NavigationEvent),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	client := &http.Client{
		Transport: s.Transport,
		Jar:       jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxHops {
				return errTooManyHops
			}
			if !h.emit(ctx, identity.NavigationEvent{Kind: identity.EventNavigate, URL: req.URL.String()}) {
				return ctx.Err()
			}
			return nil
		},
	}

	go h.load(ctx, client, target, logger)
	return h, nil
}

type handle struct {
	events chan identity.NavigationEvent
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (h *handle) Events() <-chan identity.NavigationEvent { return h.events }

// Close aborts any in-flight hop and waits for the loader to exit.
func (h *handle) Close() error {
	h.once.Do(func() {
		h.cancel()
		<-h.done
	})
	return nil
}

func (h *handle) emit(ctx context.Context, ev identity.NavigationEvent) bool {
	select {
	case h.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// load follows the chain starting at target, then idles on the final page
// until the surface is closed.
func (h *handle) load(ctx context.Context, client *http.Client, target string, logger *slog.Logger) {
	defer close(h.done)
	defer close(h.events)

	if !h.emit(ctx, identity.NavigationEvent{Kind: identity.EventNavigate, URL: target}) {
		return
	}

	ev := h.fetch(ctx, client, target)
	if ctx.Err() != nil {
		return
	}
	logger.Debug("headless surface loaded", "kind", ev.Kind, "status", ev.StatusCode)
	if !h.emit(ctx, ev) {
		return
	}
	<-ctx.Done()
}

func (h *handle) fetch(ctx context.Context, client *http.Client, target string) identity.NavigationEvent {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return identity.NavigationEvent{Kind: identity.EventLoadFailed, URL: target, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		failed := target
		var uerr *url.Error
		if errors.As(err, &uerr) {
			failed = uerr.URL
		}
		return identity.NavigationEvent{Kind: identity.EventLoadFailed, URL: failed, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPageSize))

	return identity.NavigationEvent{
		Kind:       identity.EventResponse,
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
	}
}
