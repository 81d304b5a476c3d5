// Package bol implements a client for the bol.com Retailer API v10:
// OAuth2 client-credentials authentication, paginated order retrieval,
// and the shipping label capability endpoints.
package bol

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/ybbus/httpretry"

	"github.com/Juan7731/bol.com/config"
	"github.com/Juan7731/bol.com/internal/cache"
)

const (
	defaultTokenURL   = "https://login.bol.com/token"
	defaultAPIBase    = "https://api.bol.com/retailer"
	defaultSharedBase = "https://api.bol.com/shared"

	// The demo environment accepts the same credentials but serves
	// synthetic orders and rejects binary label downloads.
	demoAPIBase    = "https://api.bol.com/retailer-demo"
	demoSharedBase = "https://api.bol.com/shared-demo"

	acceptJSON = "application/vnd.retailer.v10+json"

	// tokenExpiryBuffer forces a refresh slightly before the token
	// actually expires.
	tokenExpiryBuffer = 5 * time.Minute
)

// APIError is an explicit error payload returned by the remote API.
type APIError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bol api error (status %d): %s %s", e.Status, e.Title, e.Detail)
}

// token is the cached OAuth access token.
type token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (t *token) valid() bool {
	return t.AccessToken != "" && time.Now().Before(t.ExpiresAt.Add(-tokenExpiryBuffer))
}

// Client talks to the bol.com Retailer API for one account.
type Client struct {
	clientID     string
	clientSecret string

	tokenURL   string
	apiBase    string
	sharedBase string

	// httpClient retries idempotent requests; postClient performs
	// mutations exactly once.
	httpClient *http.Client
	postClient *http.Client

	cache *cache.RedisCache

	mu  sync.Mutex
	tok token
}

// NewClient creates an API client for the given account. The cache is
// optional and shares access tokens across processes.
func NewClient(account config.AccountConfig, tokenCache *cache.RedisCache) *Client {
	apiBase, sharedBase := defaultAPIBase, defaultSharedBase
	if account.TestMode {
		apiBase, sharedBase = demoAPIBase, demoSharedBase
	}
	return &Client{
		clientID:     account.ClientID,
		clientSecret: account.ClientSecret,
		tokenURL:     defaultTokenURL,
		apiBase:      apiBase,
		sharedBase:   sharedBase,
		httpClient:   httpretry.NewDefaultClient(),
		postClient:   &http.Client{Timeout: 30 * time.Second},
		cache:        tokenCache,
	}
}

// accessToken returns a valid access token, fetching a new one when the
// cached token is missing or about to expire.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tok.valid() {
		return c.tok.AccessToken, nil
	}

	if c.cache != nil {
		var cached token
		if err := c.cache.Get(ctx, cache.TokenCacheKey(c.clientID), &cached); err == nil && cached.valid() {
			c.tok = cached
			return c.tok.AccessToken, nil
		}
	}

	log.Info().Msg("Requesting new access token")

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "failed to build token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.postClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to request access token")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", errors.Errorf("authentication failed: status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", errors.Wrap(err, "failed to decode token response")
	}
	if payload.ExpiresIn == 0 {
		payload.ExpiresIn = 3600
	}

	c.tok = token{
		AccessToken: payload.AccessToken,
		TokenType:   payload.TokenType,
		ExpiresAt:   time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second),
	}

	if c.cache != nil {
		ttl := time.Until(c.tok.ExpiresAt) - tokenExpiryBuffer
		if ttl > 0 {
			if err := c.cache.Set(ctx, cache.TokenCacheKey(c.clientID), &c.tok, ttl); err != nil {
				log.Warn().Err(err).Msg("Failed to cache access token")
			}
		}
	}

	log.Info().Int("expires_in", payload.ExpiresIn).Msg("Obtained access token")
	return c.tok.AccessToken, nil
}

// invalidateToken drops the in-memory token so the next request fetches
// a fresh one.
func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.tok = token{}
	c.mu.Unlock()
}

// doJSON performs a request with auth headers, decoding the JSON
// response into out. A 401 triggers a single token refresh and retry.
func (c *Client) doJSON(ctx context.Context, method, rawURL string, body []byte, accept string, out interface{}) error {
	data, status, err := c.do(ctx, method, rawURL, body, accept)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		log.Info().Msg("Received 401, refreshing token and retrying")
		c.invalidateToken()
		data, status, err = c.do(ctx, method, rawURL, body, accept)
		if err != nil {
			return err
		}
	}
	if status < 200 || status >= 300 {
		return parseAPIError(status, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "failed to decode response from %s", rawURL)
	}
	return nil
}

// doRaw performs a request and returns the raw body, for label downloads.
func (c *Client) doRaw(ctx context.Context, method, rawURL, accept string) ([]byte, int, error) {
	data, status, err := c.do(ctx, method, rawURL, nil, accept)
	if err != nil {
		return nil, 0, err
	}
	if status == http.StatusUnauthorized {
		c.invalidateToken()
		data, status, err = c.do(ctx, method, rawURL, nil, accept)
		if err != nil {
			return nil, 0, err
		}
	}
	return data, status, nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, body []byte, accept string) ([]byte, int, error) {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return nil, 0, err
	}

	var reader io.Reader
	if body != nil {
		reader = strings.NewReader(string(body))
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", acceptJSON)
	}

	client := c.httpClient
	if method != http.MethodGet && method != http.MethodHead {
		// Mutations must not be replayed by the retrying client.
		client = c.postClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "request failed: %s %s", method, rawURL)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to read response body")
	}
	return data, resp.StatusCode, nil
}

func parseAPIError(status int, data []byte) error {
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Title == "" {
		apiErr.Detail = strings.TrimSpace(string(data))
	}
	apiErr.Status = status
	return apiErr
}
