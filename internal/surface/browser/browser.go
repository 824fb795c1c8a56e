// Package browser implements the interactive surface for terminal hosts:
// the authorization page opens in the system browser and the user pastes
// back the URL the provider redirected to.
package browser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	webbrowser "github.com/pkg/browser"

	"github.com/aussiebroadwan/webauth/internal/surface"
	"github.com/aussiebroadwan/webauth/pkg/identity"
)

// Surface opens the system browser. Each non-blank line read from Input is
// reported as a navigation; a blank line or end of input closes the surface.
// A Surface must not be copied after first use.
type Surface struct {
	Input  io.Reader
	Prompt io.Writer
	Logger *slog.Logger

	// OpenURL launches the browser. Defaults to github.com/pkg/browser.
	OpenURL func(url string) error

	// Input is read by a single goroutine for the life of the Surface.
	// Lines wait on the channel until an open handle takes them.
	scanOnce sync.Once
	lines    chan string
}

func (s *Surface) Open(ctx context.Context, target string, visible bool) (identity.SurfaceHandle, error) {
	if !visible {
		return nil, fmt.Errorf("browser: %w", surface.ErrModeUnsupported)
	}
	if s.Input == nil {
		return nil, fmt.Errorf("browser: no input to read the redirect from")
	}

	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	openURL := s.OpenURL
	if openURL == nil {
		openURL = webbrowser.OpenURL
	}
	prompt := s.Prompt
	if prompt == nil {
		prompt = io.Discard
	}

	if err := openURL(target); err != nil {
		logger.Warn("could not launch browser", "error", err)
		fmt.Fprintf(prompt, "Open this URL in your browser:\n\n  %s\n\n", target)
	}
	fmt.Fprintln(prompt, "After signing in, paste the URL you were redirected to (empty line to cancel):")

	s.scanOnce.Do(func() {
		s.lines = make(chan string)
		go scan(s.Input, s.lines)
	})

	h := &handle{
		events: make(chan identity.NavigationEvent),
		lines:  s.lines,
		stop:   make(chan struct{}),
	}
	go h.forward(ctx)
	return h, nil
}

// scan feeds pasted lines to whichever handle is open. It closes lines at
// end of input.
func scan(r io.Reader, lines chan<- string) {
	defer close(lines)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines <- strings.TrimSpace(sc.Text())
	}
}

type handle struct {
	events chan identity.NavigationEvent
	lines  <-chan string
	stop   chan struct{}
	once   sync.Once
}

func (h *handle) Events() <-chan identity.NavigationEvent { return h.events }

func (h *handle) Close() error {
	h.once.Do(func() { close(h.stop) })
	return nil
}

func (h *handle) forward(ctx context.Context) {
	defer close(h.events)

	for {
		var ev identity.NavigationEvent
		select {
		case line, ok := <-h.lines:
			if !ok || line == "" {
				ev = identity.NavigationEvent{Kind: identity.EventClosed}
			} else {
				ev = identity.NavigationEvent{Kind: identity.EventNavigate, URL: line}
			}
		case <-h.stop:
			return
		case <-ctx.Done():
			return
		}

		select {
		case h.events <- ev:
		case <-h.stop:
			return
		case <-ctx.Done():
			return
		}
		if ev.Kind == identity.EventClosed {
			<-h.stop
			return
		}
	}
}
