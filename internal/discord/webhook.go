package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	loginEmbedColor     = 0x00ff00
	loginWebhookSender  = "TOPTIERVerify Log"
	loginWebhookAvatar  = "https://verify.toptier.net/logo.png"
	defaultAnnounceName = "Dashboard User"
)

// ErrWebhookNotConfigured indicates the webhook URL was never set.
var ErrWebhookNotConfigured = errors.New("discord: webhook not configured")

// ErrRateLimited indicates the webhook rejected the call with a 429.
var ErrRateLimited = errors.New("discord: webhook rate limited")

// LoginEvent describes a completed login for the audit webhook.
type LoginEvent struct {
	PlayerName  string
	DiscordName string
	DiscordID   string
	AvatarURL   string
	IPAddress   string
	City        string
	UserAgent   string
	Online      bool
	PreJoin     bool
	At          time.Time
}

// NotifierConfig bundles configuration for the webhook notifier.
type NotifierConfig struct {
	LoginWebhookURL    string
	AnnounceWebhookURL string
	HTTPClient         *http.Client
	Logger             *zap.Logger
}

// Notifier posts structured messages to the configured Discord webhooks.
type Notifier struct {
	loginWebhookURL    string
	announceWebhookURL string
	httpClient         *http.Client
	logger             *zap.Logger
}

// NewNotifier constructs a Notifier. Empty webhook URLs are allowed; the
// corresponding sends become no-ops (login) or errors (announce).
func NewNotifier(cfg NotifierConfig) *Notifier {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		loginWebhookURL:    strings.TrimSpace(cfg.LoginWebhookURL),
		announceWebhookURL: strings.TrimSpace(cfg.AnnounceWebhookURL),
		httpClient:         httpClient,
		logger:             logger,
	}
}

type webhookPayload struct {
	Content   string  `json:"content,omitempty"`
	Username  string  `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Embeds    []Embed `json:"embeds"`
}

// LoginEvent posts the login audit embed. Best effort: every failure is logged
// and swallowed so the login flow never depends on the webhook being healthy.
func (n *Notifier) LoginEvent(ctx context.Context, event LoginEvent) {
	if n.loginWebhookURL == "" {
		return
	}

	embed := Embed{
		Title:     "New Login Notification",
		Color:     loginEmbedColor,
		Timestamp: event.At.UTC().Format(time.RFC3339),
		Fields: []EmbedField{
			{Name: "Player Name", Value: event.PlayerName, Inline: true},
			{Name: "Discord Name", Value: event.DiscordName, Inline: true},
			{Name: "Discord UUID", Value: event.DiscordID, Inline: true},
			{Name: "IP Address", Value: event.IPAddress, Inline: true},
			{Name: "City", Value: event.City, Inline: true},
			{Name: "Browser", Value: event.UserAgent, Inline: true},
			{Name: "Online Status", Value: onlineLabel(event.Online), Inline: true},
			{Name: "Pre Join Status", Value: preJoinLabel(event.PreJoin), Inline: true},
		},
		Thumbnail: &EmbedMedia{URL: event.AvatarURL},
	}
	payload := webhookPayload{
		Username:  loginWebhookSender,
		AvatarURL: loginWebhookAvatar,
		Embeds:    []Embed{embed},
	}

	if err := n.post(ctx, n.loginWebhookURL, payload); err != nil {
		n.logger.Warn("login webhook send failed", zap.Error(err), zap.String("player", event.PlayerName))
	}
}

// Announce relays a dashboard message through the announcement webhook. The
// caller is expected to have validated the embeds already; a 429 from Discord
// is reported as ErrRateLimited so handlers can pass the status through.
func (n *Notifier) Announce(ctx context.Context, message, senderName, senderAvatar string, embeds []Embed) error {
	if n.announceWebhookURL == "" {
		return ErrWebhookNotConfigured
	}

	username := strings.TrimSpace(senderName)
	if username == "" {
		username = defaultAnnounceName
	}
	payload := webhookPayload{
		Content:   message,
		Username:  username,
		AvatarURL: senderAvatar,
		Embeds:    embeds,
	}
	return n.post(ctx, n.announceWebhookURL, payload)
}

func (n *Notifier) post(ctx context.Context, webhookURL string, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	response, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return readUpstreamError(response)
	}
	return nil
}

func onlineLabel(online bool) string {
	if online {
		return "Online"
	}
	return "Offline"
}

func preJoinLabel(preJoin bool) string {
	if preJoin {
		return "True"
	}
	return "False"
}
