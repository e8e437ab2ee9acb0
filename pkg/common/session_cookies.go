package common

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const sessionCookie = "sid"

// SessionTracker is told about every session that gets a new cookie.
type SessionTracker interface {
	TrackSession(sessionId string, r *http.Request)
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, sessionId string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionId,
		Domain:   strings.TrimPrefix(r.Host, "."),
		SameSite: http.SameSiteNoneMode,
		Secure:   true,
		HttpOnly: true,
		MaxAge:   60 * 60 * 24 * 365,
		Path:     "/",
	})
}

// HandleSessionCookie returns the session id of the request, issuing a new
// one when the cookie is missing or not a valid id.
func HandleSessionCookie(tracker SessionTracker, w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	sessionId := uuid.NewString()
	if tracker != nil {
		go tracker.TrackSession(sessionId, r)
	}
	setSessionCookie(w, r, sessionId)
	return sessionId
}
