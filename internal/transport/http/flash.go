package http

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	flashCookieName = "roomchat_flash"
	ctxKeyFlashes   = "flashes_out"
)

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashError   = "error"
)

// Flash is a one-time notice shown on the next rendered page.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Class maps the kind to an alert class.
func (f Flash) Class() string {
	if f.Kind == FlashError {
		return "danger"
	}
	return f.Kind
}

// addFlash queues a notice for the next page render.
func addFlash(c *gin.Context, kind, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	var pending []Flash
	if v, ok := c.Get(ctxKeyFlashes); ok {
		pending, _ = v.([]Flash)
	} else if cookie, err := c.Request.Cookie(flashCookieName); err == nil {
		pending = decodeFlashes(cookie.Value)
	}
	pending = append(pending, Flash{Kind: kind, Message: message})
	c.Set(ctxKeyFlashes, pending)

	payload, err := json.Marshal(pending)
	if err != nil {
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(payload),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlashes reads and clears the pending notices.
func takeFlashes(c *gin.Context) []Flash {
	cookie, err := c.Request.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	return decodeFlashes(cookie.Value)
}

func decodeFlashes(raw string) []Flash {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(decoded, &flashes); err != nil {
		return nil
	}
	return flashes
}
