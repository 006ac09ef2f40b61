package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/toptier-net/staff-verify/internal/auth"
	"github.com/toptier-net/staff-verify/internal/discord"
	"github.com/toptier-net/staff-verify/internal/roster"
	"go.uber.org/zap"
)

const sessionContextKey = "staffverify_session"

var (
	errMissingIdentityProvider = errors.New("identity provider dependency required")
	errMissingSessionIssuer    = errors.New("session issuer dependency required")
	errMissingRosterService    = errors.New("roster service dependency required")
	errMissingNotifier         = errors.New("notifier dependency required")
	errMissingGeoResolver      = errors.New("geo resolver dependency required")
	errMissingBaseURL          = errors.New("base url required")
)

// IdentityProvider resolves an OAuth authorization code into a verified profile.
type IdentityProvider interface {
	AuthorizeURL() string
	ExchangeCode(ctx context.Context, code string) (string, error)
	FetchUser(ctx context.Context, accessToken string) (discord.User, error)
	AvatarURL(user discord.User) string
	StoredAvatarURL(discordID, stored string) string
}

// Notifier pushes webhook messages for logins and dashboard announcements.
type Notifier interface {
	LoginEvent(ctx context.Context, event discord.LoginEvent)
	Announce(ctx context.Context, message, senderName, senderAvatar string, embeds []discord.Embed) error
}

// GeoResolver maps a client address to a city for audit events.
type GeoResolver interface {
	City(ctx context.Context, address string) string
}

// Dependencies bundles everything the HTTP layer needs.
type Dependencies struct {
	Identity   IdentityProvider
	Sessions   *auth.Issuer
	Roster     *roster.Service
	Notifier   Notifier
	GeoIP      GeoResolver
	BaseURL    string
	Production bool
	Logger     *zap.Logger
}

// NewHTTPHandler assembles the gin router with all verification endpoints.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Identity == nil {
		return nil, errMissingIdentityProvider
	}
	if deps.Sessions == nil {
		return nil, errMissingSessionIssuer
	}
	if deps.Roster == nil {
		return nil, errMissingRosterService
	}
	if deps.Notifier == nil {
		return nil, errMissingNotifier
	}
	if deps.GeoIP == nil {
		return nil, errMissingGeoResolver
	}
	if deps.BaseURL == "" {
		return nil, errMissingBaseURL
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{deps.BaseURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handler := &httpHandler{
		identity:   deps.Identity,
		sessions:   deps.Sessions,
		roster:     deps.Roster,
		notifier:   deps.Notifier,
		geoip:      deps.GeoIP,
		baseURL:    deps.BaseURL,
		production: deps.Production,
		logger:     logger,
	}

	router.GET("/healthz", handler.handleHealth)

	authRoutes := router.Group("/auth")
	authRoutes.GET("/login", handler.handleLogin)
	authRoutes.GET("/callback", handler.handleCallback)
	authRoutes.POST("/check-online", handler.handleCheckOnline)
	authRoutes.POST("/user-info", handler.handleUserInfo)
	authRoutes.POST("/logout", handler.handleLogout)
	authRoutes.GET("/me", handler.requireSession, handler.handleMe)
	authRoutes.GET("/player-data", handler.requireSession, handler.handlePlayerData)

	dashboard := router.Group("/dashboard")
	dashboard.Use(handler.requireSession)
	dashboard.POST("/force-logout", handler.handleForceLogout)
	dashboard.POST("/send-discord-message", handler.handleSendDiscordMessage)
	dashboard.GET("/team-members", handler.handleTeamMembers)

	router.POST("/prejoin", handler.handlePreJoin)

	return router, nil
}

type httpHandler struct {
	identity   IdentityProvider
	sessions   *auth.Issuer
	roster     *roster.Service
	notifier   Notifier
	geoip      GeoResolver
	baseURL    string
	production bool
	logger     *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func sessionFromContext(c *gin.Context) (auth.SessionClaims, bool) {
	value, exists := c.Get(sessionContextKey)
	if !exists {
		return auth.SessionClaims{}, false
	}
	claims, ok := value.(auth.SessionClaims)
	return claims, ok
}
