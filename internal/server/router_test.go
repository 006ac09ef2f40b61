package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/toptier-net/staff-verify/internal/auth"
	"github.com/toptier-net/staff-verify/internal/discord"
	"github.com/toptier-net/staff-verify/internal/roster"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testSigningSecret = "router-test-secret"
	testBaseURL       = "http://localhost:3000"
	testDiscordID     = "123456789012345678"
	testPlayerName    = "Steve"
)

var testClockNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stubIdentityProvider struct {
	authorizeURL string
	accessToken  string
	exchangeErr  error
	user         discord.User
	fetchErr     error
}

func (s stubIdentityProvider) AuthorizeURL() string {
	return s.authorizeURL
}

func (s stubIdentityProvider) ExchangeCode(_ context.Context, code string) (string, error) {
	if s.exchangeErr != nil {
		return "", s.exchangeErr
	}
	return s.accessToken, nil
}

func (s stubIdentityProvider) FetchUser(_ context.Context, accessToken string) (discord.User, error) {
	if s.fetchErr != nil {
		return discord.User{}, s.fetchErr
	}
	return s.user, nil
}

func (s stubIdentityProvider) AvatarURL(user discord.User) string {
	if user.Avatar == "" {
		return discord.DefaultAvatarURL
	}
	return "https://cdn.example/avatars/" + user.ID + "/" + user.Avatar + ".png"
}

func (s stubIdentityProvider) StoredAvatarURL(discordID, stored string) string {
	if stored == "" {
		return discord.DefaultAvatarURL
	}
	return stored
}

type stubNotifier struct {
	loginEvents []discord.LoginEvent
	announceErr error
	announced   int
}

func (s *stubNotifier) LoginEvent(_ context.Context, event discord.LoginEvent) {
	s.loginEvents = append(s.loginEvents, event)
}

func (s *stubNotifier) Announce(_ context.Context, message, senderName, senderAvatar string, embeds []discord.Embed) error {
	if s.announceErr != nil {
		return s.announceErr
	}
	s.announced++
	return nil
}

type stubGeoResolver struct {
	city string
}

func (s stubGeoResolver) City(_ context.Context, address string) string {
	if s.city == "" {
		return "Unknown"
	}
	return s.city
}

type routerFixture struct {
	handler  http.Handler
	roster   *roster.Service
	sessions *auth.Issuer
	notifier *stubNotifier
	db       *gorm.DB
}

func newRouterFixture(t *testing.T, identity IdentityProvider) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	databasePath := filepath.Join(t.TempDir(), "router.db")
	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&roster.StaffMember{}); err != nil {
		t.Fatalf("failed to migrate roster schema: %v", err)
	}

	rosterService, err := roster.NewService(roster.ServiceConfig{
		Database: db,
		Clock: func() time.Time {
			return testClockNow
		},
	})
	if err != nil {
		t.Fatalf("failed to create roster service: %v", err)
	}

	sessionIssuer, err := auth.NewIssuer(auth.IssuerConfig{
		SigningSecret: []byte(testSigningSecret),
		Clock: func() time.Time {
			return testClockNow
		},
	})
	if err != nil {
		t.Fatalf("failed to create session issuer: %v", err)
	}

	notifier := &stubNotifier{}
	handler, err := NewHTTPHandler(Dependencies{
		Identity: identity,
		Sessions: sessionIssuer,
		Roster:   rosterService,
		Notifier: notifier,
		GeoIP:    stubGeoResolver{city: "Bangkok"},
		BaseURL:  testBaseURL,
		Logger:   zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}

	return &routerFixture{
		handler:  handler,
		roster:   rosterService,
		sessions: sessionIssuer,
		notifier: notifier,
		db:       db,
	}
}

func (f *routerFixture) seedMember(t *testing.T, member roster.StaffMember) {
	t.Helper()
	if err := f.db.Create(&member).Error; err != nil {
		t.Fatalf("failed to seed member: %v", err)
	}
}

func (f *routerFixture) sessionCookie(t *testing.T) *http.Cookie {
	t.Helper()
	token, err := f.sessions.Issue(testDiscordID, testPlayerName)
	if err != nil {
		t.Fatalf("failed to issue session token: %v", err)
	}
	return &http.Cookie{Name: auth.SessionCookieName, Value: token}
}

func TestNewHTTPHandlerValidatesDependencies(t *testing.T) {
	gin.SetMode(gin.TestMode)

	if _, err := NewHTTPHandler(Dependencies{}); err == nil {
		t.Fatalf("expected dependency validation error")
	}
}

func TestHealthEndpoint(t *testing.T) {
	fixture := newRouterFixture(t, stubIdentityProvider{})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	fixture.handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", recorder.Code)
	}
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	fixture := newRouterFixture(t, stubIdentityProvider{})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	fixture.handler.ServeHTTP(recorder, request)

	if recorder.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header to be assigned")
	}
}
