package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// maxTokenResponseSize caps how much of a token endpoint body is read.
const maxTokenResponseSize = 1 << 20

// exchangeCode redeems an authorization code at the token endpoint.
func (p *Provider) exchangeCode(ctx context.Context, flow *pendingExchange, code string) (*TokenInfo, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", p.config.ClientID)
	if p.config.RedirectURI != "" {
		form.Set("redirect_uri", p.config.RedirectURI)
	}
	form.Set("code", code)
	form.Set("client_secret", p.config.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, newError(ErrInvalidURI, "invalid token endpoint", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, newError(ErrServerError, "token request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, statusError(ErrInvalidURI, resp.StatusCode)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, statusError(ErrServerError, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		if params, err := readTokenResponse(resp); err == nil && params.Get("error") != "" {
			return nil, errorFromParams(params, resp.StatusCode)
		}
		return nil, statusError(ErrMethodNotSupported, resp.StatusCode)
	}

	params, err := readTokenResponse(resp)
	if err != nil {
		return nil, newError(ErrResponseParse, "", err)
	}
	if params.Get("error") != "" {
		return nil, errorFromParams(params, resp.StatusCode)
	}
	if params.Get("access_token") == "" {
		return nil, newError(ErrResponseParse, "token response has no access_token", nil)
	}

	return p.finalize(ctx, flow, params), nil
}

func statusError(kind *Error, status int) *Error {
	return &Error{
		Code:       kind.Code,
		Message:    fmt.Sprintf("%s (status %d)", kind.Message, status),
		StatusCode: status,
	}
}

// readTokenResponse decodes the body by content type: JSON objects when the
// media type mentions json, form encoding otherwise.
func readTokenResponse(resp *http.Response) (url.Values, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if strings.Contains(mediaType, "json") {
		return decodeJSONParams(body)
	}

	values, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("decode form body: %w", err)
	}
	return values, nil
}

// decodeJSONParams flattens a JSON object into wire-name parameters. Numbers
// keep their literal text; nested values are kept as compact JSON.
func decodeJSONParams(body []byte) (url.Values, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode json body: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("decode json body: not an object")
	}

	values := make(url.Values, len(obj))
	for key, raw := range obj {
		switch v := raw.(type) {
		case nil:
			continue
		case string:
			values.Set(key, v)
		case json.Number:
			values.Set(key, v.String())
		case bool:
			values.Set(key, strconv.FormatBool(v))
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", key, err)
			}
			values.Set(key, string(b))
		}
	}
	return values, nil
}
