// Package providers holds one adapter per connected OAuth service. Each
// adapter knows its token endpoint, its authentication style (form body vs.
// HTTP Basic), and how to map the raw token reply into the canonical
// domain.RawTokenResponse. Data-endpoint clients for the same services live
// alongside the adapters.
package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/monthwrap/integrations/domain"
	ierrors "github.com/monthwrap/integrations/errors"
)

// DefaultTimeout bounds every provider call so a wedged upstream fails with a
// NetworkError instead of hanging the request.
const DefaultTimeout = 20 * time.Second

// Credentials holds the server-side OAuth client configuration for one
// provider. RedirectURI is optional; some providers reject the grant when it
// does not match the one used during authorization.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

func (c Credentials) complete() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Adapter performs the provider-specific token exchange and refresh calls.
type Adapter interface {
	Name() domain.Provider

	// ExchangeCode trades an authorization code for a token set. When
	// redirectURI is empty the configured one is used.
	ExchangeCode(ctx context.Context, code, redirectURI string) (*domain.RawTokenResponse, error)

	// Refresh trades a refresh token for a new token set. Providers may omit
	// refresh_token in the reply; the caller is responsible for carrying the
	// old one forward.
	Refresh(ctx context.Context, refreshToken string) (*domain.RawTokenResponse, error)
}

// NewHTTPClient builds the HTTP client shared by the adapters. A
// non-positive timeout falls back to DefaultTimeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// postTokenForm posts a form-encoded grant to a token endpoint and normalizes
// the reply. Non-200 replies surface as UpstreamAuth errors with the raw body
// attached; transport failures surface as Network errors.
func postTokenForm(
	ctx context.Context,
	client *http.Client,
	provider domain.Provider,
	stage, tokenURL string,
	form url.Values,
	header http.Header,
) (*domain.RawTokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, ierrors.NewNetwork(provider.String(), stage, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Set(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, ierrors.NewNetwork(provider.String(), stage, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ierrors.NewNetwork(provider.String(), stage, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, ierrors.NewUpstreamAuth(provider.String(), stage, resp.StatusCode, string(body))
	}
	return decodeTokenResponse(provider, stage, body)
}

func decodeTokenResponse(provider domain.Provider, stage string, body []byte) (*domain.RawTokenResponse, error) {
	raw := map[string]any{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, ierrors.NewUpstreamAuth(provider.String(), stage, http.StatusOK, "malformed token response body")
	}
	return &domain.RawTokenResponse{
		AccessToken:  stringField(raw, "access_token"),
		RefreshToken: stringField(raw, "refresh_token"),
		TokenType:    stringField(raw, "token_type"),
		Scope:        stringField(raw, "scope"),
		ExpiresIn:    intField(raw, "expires_in"),
		ExpiresAt:    intField(raw, "expires_at"),
		Extra:        raw,
	}, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// getJSON performs a bearer-authenticated GET against a provider data endpoint
// and decodes the JSON reply into out, with the same error taxonomy as the
// token calls.
func getJSON(
	ctx context.Context,
	client *http.Client,
	provider domain.Provider,
	stage, rawURL string,
	params url.Values,
	accessToken string,
	out any,
) error {
	u := rawURL
	if len(params) > 0 {
		u = rawURL + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return ierrors.NewNetwork(provider.String(), stage, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return ierrors.NewNetwork(provider.String(), stage, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ierrors.NewNetwork(provider.String(), stage, err)
	}
	if resp.StatusCode != http.StatusOK {
		return ierrors.NewUpstreamAuth(provider.String(), stage, resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return ierrors.NewUpstreamAuth(provider.String(), stage, http.StatusOK, "malformed response body")
	}
	return nil
}
