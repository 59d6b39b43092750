package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 5 * time.Second

var (
	// ErrProviderDenied is an exported constant or variable used by the authentication engine.
	ErrProviderDenied = errors.New("provider rejected the authorization code")
	// ErrProviderUnavailable is an exported constant or variable used by the authentication engine.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// Config defines a public type used by greenauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthorizeURL string
	TokenURL     string
	ProfileURL   string
	Timeout      time.Duration
}

// Profile defines a public type used by greenauth APIs.
//
// Profile instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Profile struct {
	ProviderUserID string
	Name           string
	AvatarURL      string
}

// Client defines a public type used by greenauth APIs.
//
// Client instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Client struct {
	config Config
	http   *http.Client
}

// NewClient describes the newclient operation and its observable behavior.
//
// NewClient may return an error when input validation, dependency calls, or security checks fail.
// NewClient does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("client id and secret are required")
	}
	if cfg.AuthorizeURL == "" || cfg.TokenURL == "" || cfg.ProfileURL == "" {
		return nil, errors.New("authorize, token, and profile URLs are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// AuthorizeURL describes the authorizeurl operation and its observable behavior.
//
// AuthorizeURL does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) AuthorizeURL(state, redirectURI string) string {
	q := url.Values{}
	q.Set("client_id", c.config.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("state", state)

	sep := "?"
	if strings.Contains(c.config.AuthorizeURL, "?") {
		sep = "&"
	}
	return c.config.AuthorizeURL + sep + q.Encode()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// Exchange describes the exchange operation and its observable behavior.
//
// Exchange may return an error when input validation, dependency calls, or security checks fail.
// Exchange does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Exchange(ctx context.Context, code, redirectURI string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.config.ClientID)
	form.Set("client_secret", c.config.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("%w: token endpoint returned %d", ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: token endpoint returned %d", ErrProviderDenied, resp.StatusCode)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decoding token response: %v", ErrProviderUnavailable, err)
	}
	if body.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrProviderDenied, body.Error)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrProviderUnavailable)
	}
	return body.AccessToken, nil
}

type profileResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// FetchProfile describes the fetchprofile operation and its observable behavior.
//
// FetchProfile may return an error when input validation, dependency calls, or security checks fail.
// FetchProfile does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.ProfileURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: profile endpoint returned %d", ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: profile endpoint returned %d", ErrProviderDenied, resp.StatusCode)
	}

	var body profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding profile response: %v", ErrProviderUnavailable, err)
	}
	if body.ID == "" {
		return nil, fmt.Errorf("%w: profile response missing id", ErrProviderUnavailable)
	}

	return &Profile{
		ProviderUserID: body.ID,
		Name:           body.Name,
		AvatarURL:      body.AvatarURL,
	}, nil
}
