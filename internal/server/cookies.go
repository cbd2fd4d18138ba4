package server

import (
	"net/http"
	"time"
)

const (
	// CookieName identifies the conversation for widget clients that don't
	// echo the X-Conversation-Id header.
	CookieName = "mesa_conversation"
	// CookieMaxAge bounds how long an idle conversation is resumable.
	CookieMaxAge = 24 * time.Hour
)

// SetConversationCookie refreshes the conversation cookie. SameSite=None
// because the widget is embedded cross-origin.
func SetConversationCookie(w http.ResponseWriter, conversationID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    conversationID,
		Path:     "/",
		MaxAge:   int(CookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
		Secure:   true,
	})
}

// ClearConversationCookie drops the conversation cookie.
func ClearConversationCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
		Secure:   true,
	})
}

// GetConversationCookie reads the conversation ID from the cookie.
func GetConversationCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}
