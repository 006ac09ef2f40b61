package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultAPIBaseURL = "https://discord.com/api"
	defaultCDNBaseURL = "https://cdn.discordapp.com"

	// DefaultAvatarURL is served for accounts without a custom avatar hash.
	DefaultAvatarURL = "https://discord.com/assets/1f0bfc0865d324c2587920a7d80c609b.png"

	oauthScope = "identify"
)

var (
	ErrMissingClientID     = errors.New("discord: client id required")
	ErrMissingClientSecret = errors.New("discord: client secret required")
	ErrMissingRedirectURI  = errors.New("discord: redirect uri required")
	ErrMissingCode         = errors.New("discord: authorization code required")
	ErrMissingAccessToken  = errors.New("discord: access token required")
)

// UpstreamError reports a non-2xx response from the Discord API. The status
// and body are retained so callers can pass rate limits through verbatim.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("discord: upstream status %d: %s", e.Status, e.Body)
}

// User is the profile shape returned by /users/@me.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
}

// DisplayName prefers the global display name over the username.
func (u User) DisplayName() string {
	if strings.TrimSpace(u.GlobalName) != "" {
		return u.GlobalName
	}
	return u.Username
}

// ClientConfig bundles configuration for the OAuth client.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	APIBaseURL   string
	CDNBaseURL   string
	HTTPClient   *http.Client
}

// Client performs the OAuth2 code exchange and profile fetch against Discord.
type Client struct {
	clientID     string
	clientSecret string
	redirectURI  string
	apiBaseURL   string
	cdnBaseURL   string
	httpClient   *http.Client
}

// NewClient constructs a Client with validated configuration.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, ErrMissingClientID
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, ErrMissingClientSecret
	}
	if strings.TrimSpace(cfg.RedirectURI) == "" {
		return nil, ErrMissingRedirectURI
	}

	apiBaseURL := strings.TrimRight(cfg.APIBaseURL, "/")
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}
	cdnBaseURL := strings.TrimRight(cfg.CDNBaseURL, "/")
	if cdnBaseURL == "" {
		cdnBaseURL = defaultCDNBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		apiBaseURL:   apiBaseURL,
		cdnBaseURL:   cdnBaseURL,
		httpClient:   httpClient,
	}, nil
}

// AuthorizeURL builds the provider authorize redirect target for a login.
func (c *Client) AuthorizeURL() string {
	query := url.Values{}
	query.Set("client_id", c.clientID)
	query.Set("redirect_uri", c.redirectURI)
	query.Set("response_type", "code")
	query.Set("scope", oauthScope)
	return c.apiBaseURL + "/oauth2/authorize?" + query.Encode()
}

// ExchangeCode swaps an authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", ErrMissingCode
	}

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.redirectURI)
	form.Set("scope", oauthScope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBaseURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return "", readUpstreamError(response)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("discord: decoding token response: %w", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return "", ErrMissingAccessToken
	}
	return payload.AccessToken, nil
}

// FetchUser retrieves the authenticated user's profile.
func (c *Client) FetchUser(ctx context.Context, accessToken string) (User, error) {
	if strings.TrimSpace(accessToken) == "" {
		return User{}, ErrMissingAccessToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+"/users/@me", nil)
	if err != nil {
		return User{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	response, err := c.httpClient.Do(req)
	if err != nil {
		return User{}, err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return User{}, readUpstreamError(response)
	}

	var user User
	if err := json.NewDecoder(response.Body).Decode(&user); err != nil {
		return User{}, fmt.Errorf("discord: decoding user response: %w", err)
	}
	if strings.TrimSpace(user.ID) == "" {
		return User{}, fmt.Errorf("discord: user response missing id")
	}
	return user, nil
}

// AvatarURL resolves the CDN URL for a user's avatar. Animated avatars carry an
// "a_" hash prefix and serve a gif; accounts without a hash get the default asset.
func (c *Client) AvatarURL(user User) string {
	if user.Avatar == "" {
		return DefaultAvatarURL
	}
	ext := "png"
	if strings.HasPrefix(user.Avatar, "a_") {
		ext = "gif"
	}
	return fmt.Sprintf("%s/avatars/%s/%s.%s", c.cdnBaseURL, user.ID, user.Avatar, ext)
}

// StoredAvatarURL normalizes an avatar value cached in the roster. Current
// logins store the full CDN URL, but rows written by earlier builds may still
// hold a bare hash.
func (c *Client) StoredAvatarURL(discordID, stored string) string {
	if strings.TrimSpace(stored) == "" {
		return DefaultAvatarURL
	}
	if strings.HasPrefix(stored, "http") {
		return stored
	}
	return fmt.Sprintf("%s/avatars/%s/%s.png", c.cdnBaseURL, discordID, stored)
}

func readUpstreamError(response *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(response.Body, 4096))
	if err != nil {
		body = nil
	}
	return &UpstreamError{Status: response.StatusCode, Body: strings.TrimSpace(string(body))}
}
