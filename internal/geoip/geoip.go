package geoip

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://ipapi.co"

	// UnknownCity is returned for any lookup that cannot be resolved.
	UnknownCity = "Unknown"
)

// ResolverConfig bundles configuration for the city resolver.
type ResolverConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Resolver performs best-effort reverse geolocation of client addresses. It is
// used only to enrich login audit events, so it never surfaces an error.
type Resolver struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewResolver constructs a Resolver with sane defaults.
func NewResolver(cfg ResolverConfig) *Resolver {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{baseURL: baseURL, httpClient: httpClient, logger: logger}
}

// City returns the city for the given address, or UnknownCity when the address
// is empty, the lookup fails, or the upstream reports an error in the body.
func (r *Resolver) City(ctx context.Context, address string) string {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return UnknownCity
	}

	lookupURL := r.baseURL + "/" + url.PathEscape(trimmed) + "/city/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return UnknownCity
	}

	response, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Debug("geoip lookup failed", zap.String("address", trimmed), zap.Error(err))
		return UnknownCity
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return UnknownCity
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, 256))
	if err != nil {
		return UnknownCity
	}
	city := strings.TrimSpace(string(body))
	if city == "" || strings.Contains(city, "Error") {
		return UnknownCity
	}
	return city
}
