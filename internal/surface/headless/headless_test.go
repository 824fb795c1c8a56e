package headless

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/webauth/internal/surface"
	"github.com/aussiebroadwan/webauth/pkg/identity"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, h identity.SurfaceHandle, n int) []identity.NavigationEvent {
	t.Helper()

	var events []identity.NavigationEvent
	timeout := time.After(5 * time.Second)
	for len(events) < n {
		select {
		case ev, ok := <-h.Events():
			require.True(t, ok, "events closed early after %v", events)
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out after %v", events)
		}
	}
	return events
}

func TestOpen_FollowsRedirectChain(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/authorize", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "1", Path: "/"})
		http.Redirect(w, r, "/login", http.StatusFound)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("sid"); err != nil {
			http.Error(w, "no session", http.StatusUnauthorized)
			return
		}
		http.Redirect(w, r, "/landing", http.StatusFound)
	})
	mux.HandleFunc("/landing", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>sign in</html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h, err := (&Surface{}).Open(context.Background(), srv.URL+"/authorize", false)
	require.NoError(t, err)
	defer h.Close()

	events := collect(t, h, 4)
	require.Equal(t, identity.NavigationEvent{Kind: identity.EventNavigate, URL: srv.URL + "/authorize"}, events[0])
	require.Equal(t, identity.NavigationEvent{Kind: identity.EventNavigate, URL: srv.URL + "/login"}, events[1])
	require.Equal(t, identity.NavigationEvent{Kind: identity.EventNavigate, URL: srv.URL + "/landing"}, events[2])
	require.Equal(t, identity.NavigationEvent{Kind: identity.EventResponse, URL: srv.URL + "/landing", StatusCode: http.StatusOK}, events[3])
}

func TestOpen_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad client", http.StatusBadRequest)
	}))
	defer srv.Close()

	h, err := (&Surface{}).Open(context.Background(), srv.URL, false)
	require.NoError(t, err)
	defer h.Close()

	events := collect(t, h, 2)
	require.Equal(t, identity.EventResponse, events[1].Kind)
	require.Equal(t, http.StatusBadRequest, events[1].StatusCode)
}

func TestOpen_LoadFailed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL + "/authorize"
	srv.Close()

	h, err := (&Surface{}).Open(context.Background(), target, false)
	require.NoError(t, err)
	defer h.Close()

	events := collect(t, h, 2)
	require.Equal(t, identity.EventLoadFailed, events[1].Kind)
	require.Equal(t, target, events[1].URL)
	require.Error(t, events[1].Err)
}

func TestOpen_TooManyHops(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	defer srv.Close()

	h, err := (&Surface{MaxHops: 2}).Open(context.Background(), srv.URL, false)
	require.NoError(t, err)
	defer h.Close()

	events := collect(t, h, 3)
	require.Equal(t, identity.EventNavigate, events[1].Kind)
	require.Equal(t, identity.EventLoadFailed, events[2].Kind)
	require.ErrorIs(t, events[2].Err, errTooManyHops)
}

func TestOpen_RefusesVisible(t *testing.T) {
	t.Parallel()

	_, err := (&Surface{}).Open(context.Background(), "https://auth.example.com", true)
	require.ErrorIs(t, err, surface.ErrModeUnsupported)
}

func TestClose_ClosesEvents(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	h, err := (&Surface{}).Open(context.Background(), srv.URL, false)
	require.NoError(t, err)

	collect(t, h, 2)
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	_, ok := <-h.Events()
	require.False(t, ok)
}

// The hidden surface drives a full code flow: the provider silently
// redirects back with a code, which is then exchanged.
func TestProvider_SilentCodeFlow(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/authorize", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("prompt") != "none" {
			http.Error(w, "expected prompt=none", http.StatusBadRequest)
			return
		}
		http.Redirect(w, r, q.Get("redirect_uri")+"?code=C0DE&state="+q.Get("state"), http.StatusFound)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("code") != "C0DE" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"silent","token_type":"Bearer","expires_in":60}`))
	})
	mux.HandleFunc("/cb", func(w http.ResponseWriter, r *http.Request) {})

	cfg := identity.OAuthConfig{
		ClientID:              "client",
		ClientSecret:          "secret",
		AuthorizationEndpoint: srv.URL + "/authorize",
		TokenEndpoint:         srv.URL + "/token",
		RedirectURI:           srv.URL + "/cb",
		ResponseType:          identity.ResponseTypeCode,
	}
	p := identity.NewProvider(cfg, identity.NewMemoryTokenStore(), &Surface{})

	token, err := p.GetAuthToken(context.Background(), identity.AuthRequestOptions{})
	require.NoError(t, err)
	require.NotNil(t, token)
	require.Equal(t, "silent", token.AccessToken)
}
