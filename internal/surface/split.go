// Package surface provides the authorization surfaces the bridge can drive
// and routes between them by visibility.
package surface

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/webauth/pkg/identity"
)

// ErrModeUnsupported is returned by a surface asked to open in a visibility
// mode it cannot provide.
var ErrModeUnsupported = errors.New("surface: visibility mode not supported")

// Split routes visible requests to Visible and hidden requests to Hidden.
// A nil side answers ErrModeUnsupported.
type Split struct {
	Visible identity.Surface
	Hidden  identity.Surface
}

func (s Split) Open(ctx context.Context, url string, visible bool) (identity.SurfaceHandle, error) {
	target := s.Hidden
	if visible {
		target = s.Visible
	}
	if target == nil {
		return nil, ErrModeUnsupported
	}
	return target.Open(ctx, url, visible)
}
