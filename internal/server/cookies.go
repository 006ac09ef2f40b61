package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/toptier-net/staff-verify/internal/auth"
)

// legacyNameCookie is a non-HTTP-only cookie older clients stored alongside
// the session token. Logout paths clear it so stale names never linger.
const legacyNameCookie = "playerName"

func (h *httpHandler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.SessionCookieName, token, maxAge, "/", "", h.production, true)
}

func (h *httpHandler) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.SessionCookieName, "", -1, "/", "", h.production, true)
	c.SetCookie(legacyNameCookie, "", -1, "/", "", false, false)
}
