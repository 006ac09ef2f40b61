package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/toptier-net/staff-verify/internal/auth"
	"github.com/toptier-net/staff-verify/internal/discord"
	"github.com/toptier-net/staff-verify/internal/roster"
	"go.uber.org/zap"
)

const (
	playerNotFoundMessage   = "Player not found in database"
	playerUnnamedMessage    = "Player name is null in database"
	internalServerMessage   = "Internal Server Error"
	unknownValuePlaceholder = "Unknown"
)

// clientAddress extracts the caller's address from proxy headers. The value is
// audit metadata only, never an authorization input.
func clientAddress(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		if first, _, found := strings.Cut(forwarded, ","); found {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(forwarded)
	}
	if realIP := c.GetHeader("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	return unknownValuePlaceholder
}

func (h *httpHandler) errorRedirect(c *gin.Context, message string) {
	c.Redirect(http.StatusFound, h.baseURL+"/error?message="+url.QueryEscape(message))
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	c.Redirect(http.StatusFound, h.identity.AuthorizeURL())
}

func (h *httpHandler) handleCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.String(http.StatusBadRequest, "Missing code")
		return
	}

	ctx := c.Request.Context()
	ip := clientAddress(c)
	userAgent := c.GetHeader("User-Agent")
	if userAgent == "" {
		userAgent = unknownValuePlaceholder
	}
	city := h.geoip.City(ctx, ip)

	accessToken, err := h.identity.ExchangeCode(ctx, code)
	if err != nil {
		h.logger.Error("oauth code exchange failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "Failed to get token")
		return
	}

	user, err := h.identity.FetchUser(ctx, accessToken)
	if err != nil {
		h.logger.Error("oauth user fetch failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "Failed to fetch user")
		return
	}

	member, err := h.roster.FindByDiscordID(ctx, user.ID)
	if errors.Is(err, roster.ErrUnnamed) {
		h.errorRedirect(c, playerUnnamedMessage)
		return
	}
	if errors.Is(err, roster.ErrNotFound) {
		h.errorRedirect(c, playerNotFoundMessage)
		return
	}
	if err != nil {
		h.logger.Error("roster lookup failed", zap.Error(err))
		c.String(http.StatusInternalServerError, internalServerMessage)
		return
	}

	avatarURL := h.identity.AvatarURL(user)
	verifiedAt, err := h.roster.RecordLogin(ctx, user.ID, roster.Profile{
		DiscordName: user.DisplayName(),
		AvatarURL:   avatarURL,
		IPAddress:   ip,
	})
	if err != nil {
		// No token leaves the server when the roster write fails.
		h.logger.Error("failed to record login", zap.Error(err), zap.String("player", member.PlayerName))
		c.String(http.StatusInternalServerError, internalServerMessage)
		return
	}

	token, err := h.sessions.Issue(user.ID, member.PlayerName)
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		c.String(http.StatusInternalServerError, internalServerMessage)
		return
	}

	h.notifier.LoginEvent(ctx, discord.LoginEvent{
		PlayerName:  member.PlayerName,
		DiscordName: user.DisplayName(),
		DiscordID:   user.ID,
		AvatarURL:   avatarURL,
		IPAddress:   ip,
		City:        city,
		UserAgent:   userAgent,
		Online:      member.Online,
		PreJoin:     member.PreJoin,
		At:          verifiedAt,
	})

	h.setSessionCookie(c, token, int(h.sessions.TTL().Seconds()))
	c.Redirect(http.StatusFound, h.baseURL+"/countdown")
}

func (h *httpHandler) handleMe(c *gin.Context) {
	claims, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"playerName": claims.Name,
		"id":         claims.ID,
		"role":       claims.Role,
	})
}

func (h *httpHandler) handlePlayerData(c *gin.Context) {
	claims, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	member, err := h.roster.FindByPlayerName(c.Request.Context(), claims.Name)
	if errors.Is(err, roster.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Player not found"})
		return
	}
	if err != nil {
		h.logger.Error("roster lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	discordName := member.DiscordName
	if discordName == "" {
		discordName = unknownValuePlaceholder
	}
	ip := member.IPAddress
	if ip == "" {
		ip = unknownValuePlaceholder
	}

	c.JSON(http.StatusOK, gin.H{
		"discordName":   discordName,
		"discordAvatar": h.identity.StoredAvatarURL(member.DiscordID, member.DiscordAvatar),
		"ip":            ip,
		"playerName":    member.PlayerName,
		"online":        member.Online,
		"preJoin":       member.PreJoin,
	})
}

type userInfoRequest struct {
	PlayerName string `json:"playerName"`
}

func (h *httpHandler) handleUserInfo(c *gin.Context) {
	var request userInfoRequest
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.PlayerName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing playerName"})
		return
	}

	member, err := h.roster.FindByPlayerName(c.Request.Context(), request.PlayerName)
	if errors.Is(err, roster.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": playerNotFoundMessage})
		return
	}
	if err != nil {
		h.logger.Error("roster lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": internalServerMessage})
		return
	}

	discordName := member.DiscordName
	if discordName == "" {
		discordName = unknownValuePlaceholder
	}
	avatar := member.DiscordAvatar
	if avatar == "" {
		avatar = discord.DefaultAvatarURL
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"playerName":    member.PlayerName,
		"online":        member.Online,
		"preJoin":       member.PreJoin,
		"discordName":   discordName,
		"discordAvatar": avatar,
		"ip":            clientAddress(c),
	})
}

type checkOnlineRequest struct {
	PlayerName string `json:"playerName"`
}

// handleCheckOnline is the polling endpoint. The player name comes from the
// session token; a body value is only consulted when the token carries none.
func (h *httpHandler) handleCheckOnline(c *gin.Context) {
	token, err := c.Cookie(auth.SessionCookieName)
	if err != nil || token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized: no token"})
		return
	}

	claims, err := h.sessions.Verify(token)
	if err != nil {
		h.logger.Info("session validation failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized: invalid token"})
		return
	}

	playerName := claims.Name
	if playerName == "" {
		var request checkOnlineRequest
		if err := c.ShouldBindJSON(&request); err == nil {
			playerName = strings.TrimSpace(request.PlayerName)
		}
	}
	if playerName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing playerName"})
		return
	}

	status, err := h.roster.SyncPreJoin(c.Request.Context(), playerName)
	if errors.Is(err, roster.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": playerNotFoundMessage})
		return
	}
	if err != nil {
		h.logger.Error("presence sync failed", zap.Error(err), zap.String("player", playerName))
		c.JSON(http.StatusInternalServerError, gin.H{"message": internalServerMessage})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"online":  status.Online,
		"preJoin": status.PreJoin,
	})
}

type logoutRequest struct {
	PlayerName string `json:"playerName"`
}

func (h *httpHandler) handleLogout(c *gin.Context) {
	var request logoutRequest
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.PlayerName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Player name is required"})
		return
	}

	err := h.roster.SetOffline(c.Request.Context(), request.PlayerName)
	if errors.Is(err, roster.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Player not found"})
		return
	}
	if err != nil {
		h.logger.Error("logout failed", zap.Error(err), zap.String("player", request.PlayerName))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}
