package discord

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

const (
	testClientID     = "client-id"
	testClientSecret = "client-secret"
	testRedirectURI  = "http://localhost:3000/auth/callback"
)

func newTestClient(t *testing.T, apiBaseURL string) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		RedirectURI:  testRedirectURI,
		APIBaseURL:   apiBaseURL,
	})
	if err != nil {
		t.Fatalf("failed to construct client: %v", err)
	}
	return client
}

func TestAuthorizeURL(t *testing.T) {
	client := newTestClient(t, "https://discord.example/api")

	authorizeURL, err := url.Parse(client.AuthorizeURL())
	if err != nil {
		t.Fatalf("authorize url did not parse: %v", err)
	}
	if authorizeURL.Path != "/api/oauth2/authorize" {
		t.Fatalf("unexpected authorize path: %s", authorizeURL.Path)
	}
	query := authorizeURL.Query()
	if query.Get("client_id") != testClientID {
		t.Fatalf("unexpected client_id: %s", query.Get("client_id"))
	}
	if query.Get("redirect_uri") != testRedirectURI {
		t.Fatalf("unexpected redirect_uri: %s", query.Get("redirect_uri"))
	}
	if query.Get("response_type") != "code" {
		t.Fatalf("unexpected response_type: %s", query.Get("response_type"))
	}
	if query.Get("scope") != "identify" {
		t.Fatalf("unexpected scope: %s", query.Get("scope"))
	}
}

func TestExchangeCodeSendsForm(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/token" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "authorization_code" {
			t.Fatalf("unexpected grant_type: %s", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("code") != "the-code" {
			t.Fatalf("unexpected code: %s", r.PostForm.Get("code"))
		}
		if r.PostForm.Get("client_secret") != testClientSecret {
			t.Fatalf("unexpected client_secret: %s", r.PostForm.Get("client_secret"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"granted-token","token_type":"Bearer"}`))
	}))
	defer upstream.Close()

	client := newTestClient(t, upstream.URL)
	token, err := client.ExchangeCode(context.Background(), "the-code")
	if err != nil {
		t.Fatalf("unexpected exchange failure: %v", err)
	}
	if token != "granted-token" {
		t.Fatalf("unexpected access token: %s", token)
	}
}

func TestExchangeCodeUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer upstream.Close()

	client := newTestClient(t, upstream.URL)
	_, err := client.ExchangeCode(context.Background(), "stale-code")
	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstreamErr.Status != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", upstreamErr.Status)
	}
	if !strings.Contains(upstreamErr.Body, "invalid_grant") {
		t.Fatalf("expected body to carry upstream detail, got %q", upstreamErr.Body)
	}
}

func TestExchangeCodeRejectsEmptyCode(t *testing.T) {
	client := newTestClient(t, "https://discord.example/api")
	if _, err := client.ExchangeCode(context.Background(), " "); !errors.Is(err, ErrMissingCode) {
		t.Fatalf("expected missing code error, got %v", err)
	}
}

func TestFetchUser(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/@me" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer granted-token" {
			t.Fatalf("unexpected authorization header: %s", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"42","username":"steve","global_name":"Steve","avatar":"abc123"}`))
	}))
	defer upstream.Close()

	client := newTestClient(t, upstream.URL)
	user, err := client.FetchUser(context.Background(), "granted-token")
	if err != nil {
		t.Fatalf("unexpected fetch failure: %v", err)
	}
	if user.ID != "42" {
		t.Fatalf("unexpected user id: %s", user.ID)
	}
	if user.DisplayName() != "Steve" {
		t.Fatalf("unexpected display name: %s", user.DisplayName())
	}
}

func TestFetchUserUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer upstream.Close()

	client := newTestClient(t, upstream.URL)
	_, err := client.FetchUser(context.Background(), "revoked-token")
	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstreamErr.Status != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", upstreamErr.Status)
	}
}

func TestDisplayNameFallsBackToUsername(t *testing.T) {
	user := User{Username: "steve"}
	if user.DisplayName() != "steve" {
		t.Fatalf("unexpected display name: %s", user.DisplayName())
	}
}

func TestAvatarURL(t *testing.T) {
	client := newTestClient(t, "https://discord.example/api")

	testCases := []struct {
		name string
		user User
		want string
	}{
		{
			name: "static avatar",
			user: User{ID: "42", Avatar: "abc123"},
			want: "https://cdn.discordapp.com/avatars/42/abc123.png",
		},
		{
			name: "animated avatar",
			user: User{ID: "42", Avatar: "a_def456"},
			want: "https://cdn.discordapp.com/avatars/42/a_def456.gif",
		},
		{
			name: "no avatar hash",
			user: User{ID: "42"},
			want: DefaultAvatarURL,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := client.AvatarURL(testCase.user); got != testCase.want {
				t.Fatalf("unexpected avatar url: got %s, want %s", got, testCase.want)
			}
		})
	}
}
