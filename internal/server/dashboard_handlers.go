package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/toptier-net/staff-verify/internal/discord"
	"github.com/toptier-net/staff-verify/internal/roster"
	"go.uber.org/zap"
)

func (h *httpHandler) handleForceLogout(c *gin.Context) {
	claims, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	// Presence flags reset unconditionally. The bearer token stays valid until
	// expiry; there is no server-side revocation list.
	if err := h.roster.ForceOfflineByDiscordID(c.Request.Context(), claims.ID); err != nil {
		h.logger.Error("force logout failed", zap.Error(err), zap.String("discord_id", claims.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

type sendMessageRequest struct {
	Message      string          `json:"message"`
	SenderName   string          `json:"senderName"`
	SenderAvatar string          `json:"senderAvatar"`
	Embeds       []discord.Embed `json:"embeds"`
}

func (h *httpHandler) handleSendDiscordMessage(c *gin.Context) {
	claims, ok := sessionFromContext(c)
	if !ok || strings.TrimSpace(claims.Name) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var request sendMessageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Embed must be provided"})
		return
	}

	if err := discord.ValidateEmbeds(request.Embeds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.notifier.Announce(c.Request.Context(), request.Message, request.SenderName, request.SenderAvatar, request.Embeds)
	if errors.Is(err, discord.ErrRateLimited) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limited. Please try again later."})
		return
	}
	if errors.Is(err, discord.ErrWebhookNotConfigured) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Discord webhook not configured"})
		return
	}
	if err != nil {
		h.logger.Error("announce webhook failed", zap.Error(err), zap.String("sender", claims.Name))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message to Discord"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Message sent successfully"})
}

type teamMemberPayload struct {
	DiscordID         string    `json:"discord_id"`
	DiscordName       string    `json:"discordName"`
	DiscordAvatar     string    `json:"discordAvatar"`
	PlayerName        string    `json:"playerName"`
	IPAddress         string    `json:"ip_address"`
	Online            bool      `json:"online"`
	PreJoin           bool      `json:"preJoin"`
	VerifiedTimestamp time.Time `json:"verified_timestamp"`
}

func teamMemberFromRecord(member roster.StaffMember) teamMemberPayload {
	return teamMemberPayload{
		DiscordID:         member.DiscordID,
		DiscordName:       member.DiscordName,
		DiscordAvatar:     member.DiscordAvatar,
		PlayerName:        member.PlayerName,
		IPAddress:         member.IPAddress,
		Online:            member.Online,
		PreJoin:           member.PreJoin,
		VerifiedTimestamp: member.VerifiedTimestamp,
	}
}

func (h *httpHandler) handleTeamMembers(c *gin.Context) {
	claims, ok := sessionFromContext(c)
	if !ok || strings.TrimSpace(claims.Name) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	members, err := h.roster.ListMembers(c.Request.Context())
	if err != nil {
		h.logger.Error("team member list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	payload := make([]teamMemberPayload, 0, len(members))
	for _, member := range members {
		payload = append(payload, teamMemberFromRecord(member))
	}

	var currentUser interface{}
	if member, err := h.roster.FindByPlayerName(c.Request.Context(), claims.Name); err == nil {
		currentUser = teamMemberFromRecord(member)
	}

	c.JSON(http.StatusOK, gin.H{
		"teamMembers": payload,
		"currentUser": currentUser,
	})
}

type preJoinRequest struct {
	PlayerName string `json:"playerName"`
	PreJoin    bool   `json:"preJoin"`
}

// handlePreJoin is the explicit presence setter used at flow transitions such
// as entering the countdown, distinct from the mirror write in check-online.
func (h *httpHandler) handlePreJoin(c *gin.Context) {
	var request preJoinRequest
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.PlayerName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing playerName"})
		return
	}

	stored, err := h.roster.SetPreJoin(c.Request.Context(), request.PlayerName, request.PreJoin)
	if errors.Is(err, roster.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": playerNotFoundMessage})
		return
	}
	if err != nil {
		h.logger.Error("prejoin update failed", zap.Error(err), zap.String("player", request.PlayerName))
		c.JSON(http.StatusInternalServerError, gin.H{"message": internalServerMessage})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"playerName": request.PlayerName,
		"preJoin":    stored,
	})
}
