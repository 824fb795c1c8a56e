package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/webauth/internal/bridge"
	"github.com/aussiebroadwan/webauth/pkg/bridgesdk"
	"github.com/aussiebroadwan/webauth/pkg/httpx"
)

// LivezHandler always answers 200 while the process is serving.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, bridgesdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler answers 503 while the token store is unreachable.
func ReadyzHandler(startTime time.Time, version string, st Pinger, b *bridge.Bridge) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &bridgesdk.HealthChecks{
			Store:     "ok",
			Providers: b.Registry.Len(),
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if st != nil {
			if err := st.Ping(r.Context()); err != nil {
				checks.Store = "error: " + err.Error()
				overallStatus = "degraded"
				statusCode = http.StatusServiceUnavailable
			}
		}

		httpx.WriteJSON(w, statusCode, bridgesdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
