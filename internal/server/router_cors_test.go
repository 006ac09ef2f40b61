package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORSAllowsConfiguredFrontend(t *testing.T) {
	fixture := newRouterFixture(t, stubIdentityProvider{})

	request := httptest.NewRequest(http.MethodOptions, "/auth/check-online", http.NoBody)
	request.Header.Set("Origin", testBaseURL)
	request.Header.Set("Access-Control-Request-Method", http.MethodPost)

	recorder := httptest.NewRecorder()
	fixture.handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, recorder.Code)
	}
	if origin := recorder.Header().Get("Access-Control-Allow-Origin"); origin != testBaseURL {
		t.Fatalf("expected allow origin %q, got %q", testBaseURL, origin)
	}
	if recorder.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("expected credentials to be enabled")
	}
}

func TestCORSRejectsForeignOrigin(t *testing.T) {
	fixture := newRouterFixture(t, stubIdentityProvider{})

	request := httptest.NewRequest(http.MethodOptions, "/auth/check-online", http.NoBody)
	request.Header.Set("Origin", "https://evil.example.com")
	request.Header.Set("Access-Control-Request-Method", http.MethodPost)

	recorder := httptest.NewRecorder()
	fixture.handler.ServeHTTP(recorder, request)

	if origin := recorder.Header().Get("Access-Control-Allow-Origin"); origin != "" {
		t.Fatalf("expected no allow origin header for foreign origin, got %q", origin)
	}
}
