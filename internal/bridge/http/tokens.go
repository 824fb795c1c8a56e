package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/webauth/internal/bridge"
	"github.com/aussiebroadwan/webauth/pkg/httpx"
	"github.com/aussiebroadwan/webauth/pkg/identity"
	"github.com/aussiebroadwan/webauth/pkg/slogx"
)

const maxRequestBody = 64 << 10

// TokenHandler serves the host bridge operations.
type TokenHandler struct {
	Bridge *bridge.Bridge
}

// HandleGetToken serves POST /v1/token. A request that produced no token
// answers 204.
func (h *TokenHandler) HandleGetToken(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.Bridge.GetToken)
}

// HandleLaunchWebFlow serves POST /v1/flow.
func (h *TokenHandler) HandleLaunchWebFlow(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.Bridge.LaunchWebFlow)
}

func (h *TokenHandler) serve(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, bridge.Request) (*identity.TokenInfo, error),
) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		httpx.WriteError(w, http.StatusUnsupportedMediaType, identity.ErrorCodeInvalidRequest, "content type must be application/json")
		return
	}

	var req bridge.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, identity.ErrorCodeInvalidRequest, "malformed request body")
		return
	}

	token, err := op(r.Context(), req)
	if err != nil {
		writeIdentityError(w, r, err)
		return
	}
	if token == nil {
		httpx.NoCache(w)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, token)
}

// writeIdentityError maps flow failures onto HTTP statuses. Caller mistakes
// are 400, outcomes the user caused are 409, everything the provider or
// the surface reported is 502.
func writeIdentityError(w http.ResponseWriter, r *http.Request, err error) {
	var authErr *identity.Error
	if !errors.As(err, &authErr) {
		slogx.FromContext(r.Context()).Error("bridge operation failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, identity.ErrorCodeServerError, "internal error")
		return
	}

	status := http.StatusBadGateway
	switch authErr.Code {
	case identity.ErrorCodeConfiguration, identity.ErrorCodeInvalidState, identity.ErrorCodeResponseParse:
		status = http.StatusBadRequest
	case identity.ErrorCodeUserInterrupted, identity.ErrorCodeFlowInProgress:
		status = http.StatusConflict
	}

	httpx.WriteError(w, status, authErr.Code, authErr.Message)
}
