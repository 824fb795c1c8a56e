package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultNonInteractiveTimeout bounds how long a hidden flow may sit on a
// loaded page that is not the redirect.
const DefaultNonInteractiveTimeout = time.Second

// EventKind classifies a NavigationEvent.
type EventKind string

const (
	// EventNavigate fires before the surface starts loading URL.
	EventNavigate EventKind = "navigate"
	// EventResponse fires when URL finished loading with StatusCode.
	EventResponse EventKind = "response"
	// EventLoadFailed fires when URL could not be loaded at all.
	EventLoadFailed EventKind = "load_failed"
	// EventClosed fires when the user or host closed the surface.
	EventClosed EventKind = "closed"
)

// NavigationEvent is reported by a SurfaceHandle as the surface moves
// through the authorization pages.
type NavigationEvent struct {
	Kind       EventKind
	URL        string
	StatusCode int
	Err        error
}

// Surface opens host-controlled browsing surfaces. visible=false asks for a
// hidden surface that never shows UI.
type Surface interface {
	Open(ctx context.Context, url string, visible bool) (SurfaceHandle, error)
}

// SurfaceHandle is one open surface. Events is closed by the implementation
// once the surface is gone. Close may be called more than once.
type SurfaceHandle interface {
	Events() <-chan NavigationEvent
	Close() error
}

// surfaceController drives a single flow on a surface until the redirect URI
// is observed or the flow fails.
type surfaceController struct {
	surface     Surface
	redirectURI string
	timeout     time.Duration
	logger      *slog.Logger
}

// run opens the surface on authURL and blocks until it resolves. It returns
// the full redirect URL on success.
func (c *surfaceController) run(ctx context.Context, authURL string, interactive bool) (string, error) {
	handle, err := c.surface.Open(ctx, authURL, interactive)
	if err != nil {
		return "", newError(ErrAuth, "could not open authorization surface", err)
	}

	var once sync.Once
	teardown := func() {
		once.Do(func() {
			if err := handle.Close(); err != nil {
				c.logger.Debug("surface close failed", "error", err)
			}
		})
	}
	defer teardown()

	var (
		timer   *time.Timer
		expired <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	events := handle.Events()
	for {
		select {
		case <-ctx.Done():
			return "", newError(ErrUserInterrupted, "", ctx.Err())

		case <-expired:
			return "", newError(ErrAuth,
				fmt.Sprintf("no redirect within %s of the last page load", c.timeout), nil)

		case ev, ok := <-events:
			if !ok || ev.Kind == EventClosed {
				return "", newError(ErrUserInterrupted, "", nil)
			}

			if strings.HasPrefix(ev.URL, c.redirectURI) {
				teardown()
				return ev.URL, nil
			}

			switch ev.Kind {
			case EventLoadFailed:
				return "", newError(ErrAuth, "failed to load "+stripQuery(ev.URL), ev.Err)

			case EventResponse:
				if ev.StatusCode >= 400 {
					return "", &Error{
						Code:       ErrorCodeURL,
						Message:    fmt.Sprintf("%s returned status %d", stripQuery(ev.URL), ev.StatusCode),
						StatusCode: ev.StatusCode,
					}
				}
				if !interactive {
					if timer == nil {
						timer = time.NewTimer(c.timeout)
						expired = timer.C
					} else {
						timer.Reset(c.timeout)
					}
				}
			}
		}
	}
}

// stripQuery drops the query and fragment so parameters never reach logs or
// error messages.
func stripQuery(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		return raw[:i]
	}
	return raw
}
