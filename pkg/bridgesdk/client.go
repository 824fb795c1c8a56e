package bridgesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/webauth/pkg/identity"
)

// SDKClient is a client for the webauth host bridge.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// Token is the shared bridge token sent as a bearer token. Empty when
	// the bridge runs without one.
	Token string
}

// NewSDKClient creates a client for the bridge at baseURL. Flows wait on the
// user, so the HTTP client has no overall timeout; bound calls with ctx.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{},
	}
}

// GetToken calls get-token. It returns nil, nil when a non-interactive
// request produced no token.
func (c *SDKClient) GetToken(ctx context.Context, cfg identity.OAuthConfig, opts identity.AuthRequestOptions) (*identity.TokenInfo, error) {
	return c.tokenCall(ctx, "/v1/token", TokenRequest{Config: cfg, Options: opts})
}

// LaunchWebFlow calls launch-web-flow, which always shows the
// authorization surface.
func (c *SDKClient) LaunchWebFlow(ctx context.Context, cfg identity.OAuthConfig, opts identity.AuthRequestOptions) (*identity.TokenInfo, error) {
	return c.tokenCall(ctx, "/v1/flow", TokenRequest{Config: cfg, Options: opts})
}

// GetLiveness checks if the bridge is alive.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// GetReadiness checks if the bridge and its token store are ready.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *SDKClient) tokenCall(ctx context.Context, path string, body TokenRequest) (*identity.TokenInfo, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, path, bytes.NewReader(payload), map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNoContent {
		_ = resp.Body.Close()
		return nil, nil
	}

	var token identity.TokenInfo
	if err := decodeJSON(resp, &token, http.StatusOK); err != nil {
		return nil, err
	}
	return &token, nil
}

func (c *SDKClient) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

// doRequest performs an HTTP request, attaching the bridge token when set.
func (c *SDKClient) doRequest(
	ctx context.Context,
	method, path string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// decodeJSON decodes a JSON response into target. Any status other than
// expectedStatus is returned as an *identity.Error.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp.StatusCode, bodyBytes)
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseErrorResponse turns an error body into an *identity.Error. Bodies
// that are not bridge errors (proxies, crashes) become server_error.
func parseErrorResponse(status int, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Code != "" {
		return &identity.Error{
			Code:       errResp.Code,
			Message:    errResp.Message,
			StatusCode: status,
		}
	}

	return &identity.Error{
		Code:       identity.ErrorCodeServerError,
		Message:    fmt.Sprintf("unexpected bridge response (status %d)", status),
		StatusCode: status,
	}
}
